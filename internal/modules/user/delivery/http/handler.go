package handler

import (
	"net/http"

	"codedepartament.ru/sbp/internal/modules/user/dto"
	userService "codedepartament.ru/sbp/internal/modules/user/service"
	"codedepartament.ru/sbp/pkg/apperror"
	commonDto "codedepartament.ru/sbp/pkg/dto"
	"codedepartament.ru/sbp/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	auth  userService.AuthService
	users userService.UserService
}

func NewUserHandler(auth userService.AuthService, users userService.UserService) *UserHandler {
	return &UserHandler{auth: auth, users: users}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if res.AccessToken == "" {
		c.JSON(http.StatusAccepted, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	profile, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) GetHistory(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	history, err := h.users.GetHistory(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *UserHandler) ListPendingApprovals(c *gin.Context) {
	users, err := h.users.ListPendingApprovals(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *UserHandler) DecideApproval(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, "invalid user id"))
		return
	}

	var req dto.ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.users.DecideApproval(c.Request.Context(), targetID, *req.Approve); err != nil {
		response.ResponseError(c, err)
		return
	}

	msg := "user approved"
	if !*req.Approve {
		msg = "user rejected and removed"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *UserHandler) ListByRating(c *gin.Context) {
	var q commonDto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	users, err := h.users.ListByRating(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) ListRegionalRepresentatives(c *gin.Context) {
	var q dto.RepresentativesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	users, err := h.users.ListRegionalRepresentatives(c.Request.Context(), q.RegionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}
