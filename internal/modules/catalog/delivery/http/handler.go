package handler

import (
	"net/http"

	catalog "codedepartament.ru/sbp/internal/modules/catalog/service"
	"codedepartament.ru/sbp/pkg/response"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	service catalog.CatalogService
}

func NewCatalogHandler(service catalog.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) ListRegions(c *gin.Context) {
	regions, err := h.service.ListRegions(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": regions})
}

func (h *CatalogHandler) ListDisciplines(c *gin.Context) {
	disciplines, err := h.service.ListDisciplines(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": disciplines})
}

func (h *CatalogHandler) ListRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.ListRoles()})
}
