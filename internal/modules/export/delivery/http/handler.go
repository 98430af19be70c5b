package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"codedepartament.ru/sbp/internal/modules/export/dto"
	exportService "codedepartament.ru/sbp/internal/modules/export/service"
	"codedepartament.ru/sbp/pkg/apperror"
	"codedepartament.ru/sbp/pkg/response"
	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	service exportService.ExportService
}

func NewExportHandler(service exportService.ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

func (h *ExportHandler) DownloadCSV(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	rows, err := h.service.Rows(c.Request.Context(), q.CompetitionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := exportService.WriteCSV(&buf, rows); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+exportService.FileName(q.CompetitionID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ExportHandler) PushToSheets(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, "invalid competition id"))
		return
	}

	res, err := h.service.PushToSheets(c.Request.Context(), uint(id))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}
