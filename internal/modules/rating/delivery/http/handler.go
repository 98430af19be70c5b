package http

import (
	"net/http"

	"codedepartament.ru/sbp/internal/modules/rating/dto"
	ratingService "codedepartament.ru/sbp/internal/modules/rating/service"
	"codedepartament.ru/sbp/pkg/response"
	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	service ratingService.RatingService
}

func NewRatingHandler(service ratingService.RatingService) *RatingHandler {
	return &RatingHandler{service: service}
}

func (h *RatingHandler) GetLeaderboard(c *gin.Context) {
	var q dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	entries, err := h.service.GetLeaderboard(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *RatingHandler) GetMyRank(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	rank, err := h.service.GetRank(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, rank)
}
