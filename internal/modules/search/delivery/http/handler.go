package handler

import (
	"net/http"

	"codedepartament.ru/sbp/internal/modules/search/dto"
	searchService "codedepartament.ru/sbp/internal/modules/search/service"
	"codedepartament.ru/sbp/pkg/response"
	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	service searchService.SearchService
}

func NewSearchHandler(service searchService.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) SearchCompetitions(c *gin.Context) {
	var q dto.CompetitionSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	hits, err := h.service.SearchCompetitions(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hits})
}

func (h *SearchHandler) SearchNews(c *gin.Context) {
	var q dto.NewsSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	hits, err := h.service.SearchNews(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hits})
}
