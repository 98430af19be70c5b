package handler

import (
	"net/http"
	"strconv"
	"time"

	"codedepartament.ru/sbp/internal/modules/competition/dto"
	compService "codedepartament.ru/sbp/internal/modules/competition/service"
	"codedepartament.ru/sbp/pkg/apperror"
	"codedepartament.ru/sbp/pkg/response"
	"github.com/gin-gonic/gin"
)

type CompetitionHandler struct {
	service compService.CompetitionService
}

func NewCompetitionHandler(service compService.CompetitionService) *CompetitionHandler {
	return &CompetitionHandler{service: service}
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, "invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

func (h *CompetitionHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	competition, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": competition})
}

func (h *CompetitionHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CompetitionHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	competition, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": competition})
}

func (h *CompetitionHandler) ListPending(c *gin.Context) {
	list, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *CompetitionHandler) ListForRegion(c *gin.Context) {
	regionID, ok := idParam(c, "region_id")
	if !ok {
		return
	}

	list, err := h.service.ListForRegion(c.Request.Context(), regionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *CompetitionHandler) ListOrganized(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListOrganized(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *CompetitionHandler) ListParticipants(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	list, err := h.service.ListParticipants(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *CompetitionHandler) Decide(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.service.Decide(c.Request.Context(), userID, id, *req.Accept); err != nil {
		response.ResponseError(c, err)
		return
	}

	msg := "competition approved"
	if !*req.Accept {
		msg = "competition rejected and removed"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *CompetitionHandler) RefreshStatuses(c *gin.Context) {
	var req dto.StatusRefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}
	}

	now := time.Now().UTC()
	at := now
	if req.Time != nil {
		at = req.Time.UTC()
	}

	report, err := h.service.RefreshStatuses(c.Request.Context(), at)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	report.ServerTime = now
	c.JSON(http.StatusOK, report)
}

func (h *CompetitionHandler) Complete(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Complete(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "competition completed"})
}

func (h *CompetitionHandler) DistributeResults(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.DistributeResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.service.DistributeResults(c.Request.Context(), userID, id, req.Results); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "results distributed"})
}

func (h *CompetitionHandler) SubmitApplication(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	app, err := h.service.SubmitApplication(c.Request.Context(), userID, req.CompetitionID, time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": app})
}

func (h *CompetitionHandler) ListMyApplications(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	apps, err := h.service.ListMyApplications(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": apps})
}

func (h *CompetitionHandler) DecideApplication(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.ApplicationDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	app, err := h.service.DecideApplication(c.Request.Context(), userID, id, *req.Accept, req.Reason)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": app})
}

func (h *CompetitionHandler) ListOrganizerApplications(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	apps, err := h.service.ListOrganizerApplications(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": apps})
}
