package handler

import (
	"net/http"
	"strconv"
	"time"

	"codedepartament.ru/sbp/internal/modules/team/dto"
	teamService "codedepartament.ru/sbp/internal/modules/team/service"
	"codedepartament.ru/sbp/pkg/apperror"
	"codedepartament.ru/sbp/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TeamHandler struct {
	service teamService.TeamService
}

func NewTeamHandler(service teamService.TeamService) *TeamHandler {
	return &TeamHandler{service: service}
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, "invalid id"))
		return 0, false
	}
	return uint(id), true
}

func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	team, err := h.service.CreateTeam(c.Request.Context(), userID, req, time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": team})
}

func (h *TeamHandler) Invite(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	candidateID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, "invalid user_id"))
		return
	}

	inv, err := h.service.Invite(c.Request.Context(), userID, req.TeamID, candidateID, time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": inv})
}

func (h *TeamHandler) ListInvitations(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListInvitations(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *TeamHandler) RespondToInvitation(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	inv, err := h.service.RespondToInvitation(c.Request.Context(), userID, id, *req.Accept, time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (h *TeamHandler) SubmitTeamApplication(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.TeamApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	app, err := h.service.SubmitTeamApplication(c.Request.Context(), userID, req.TeamID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": app})
}

func (h *TeamHandler) DecideTeamApplication(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.TeamApplicationDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	app, err := h.service.DecideTeamApplication(c.Request.Context(), userID, id, *req.Accept, req.Reason)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": app})
}

func (h *TeamHandler) ListOrganizerTeamApplications(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListOrganizerTeamApplications(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *TeamHandler) RespondToVacancy(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.VacancyResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	resp, err := h.service.RespondToPublicVacancy(c.Request.Context(), userID, req.TeamID, req.Text, time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (h *TeamHandler) DecideVacancyResponse(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	resp, err := h.service.DecideVacancyResponse(c.Request.Context(), userID, id, *req.Accept, time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *TeamHandler) ListCaptainVacancyResponses(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListCaptainVacancyResponses(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *TeamHandler) ListUserVacancyResponses(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListUserVacancyResponses(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *TeamHandler) ListPublicTeams(c *gin.Context) {
	var q dto.PublicTeamsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	list, err := h.service.ListPublicTeams(c.Request.Context(), q.CompetitionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *TeamHandler) ListUserTeams(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListUserTeams(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}
