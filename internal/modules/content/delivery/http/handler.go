package handler

import (
	"net/http"
	"strconv"

	"codedepartament.ru/sbp/internal/modules/content/dto"
	contentService "codedepartament.ru/sbp/internal/modules/content/service"
	"codedepartament.ru/sbp/pkg/apperror"
	commonDto "codedepartament.ru/sbp/pkg/dto"
	"codedepartament.ru/sbp/pkg/response"
	"github.com/gin-gonic/gin"
)

const maxImageSize = 5 << 20

type ContentHandler struct {
	service contentService.ContentService
}

func NewContentHandler(service contentService.ContentService) *ContentHandler {
	return &ContentHandler{service: service}
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, "invalid id"))
		return 0, false
	}
	return uint(id), true
}

func (h *ContentHandler) ListFAQ(c *gin.Context) {
	faqs, err := h.service.ListFAQ(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": faqs})
}

func (h *ContentHandler) CreateFAQ(c *gin.Context) {
	var req dto.CreateFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	faq, err := h.service.CreateFAQ(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": faq})
}

func (h *ContentHandler) DeleteFAQ(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteFAQ(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "faq entry deleted"})
}

func (h *ContentHandler) ListNews(c *gin.Context) {
	var q commonDto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	news, err := h.service.ListNews(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, news)
}

func (h *ContentHandler) GetNews(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	news, err := h.service.GetNews(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": news})
}

func (h *ContentHandler) CreateNews(c *gin.Context) {
	var req dto.CreateNewsRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BindError(c, err)
		return
	}

	var image *commonDto.ImageFile
	if fh, err := c.FormFile("image"); err == nil {
		if fh.Size > maxImageSize {
			response.ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, "image must not exceed 5MB"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, "cannot read image"))
			return
		}
		defer f.Close()
		image = &commonDto.ImageFile{Reader: f, FileName: fh.Filename}
	}

	news, err := h.service.CreateNews(c.Request.Context(), req, image)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": news})
}

func (h *ContentHandler) DeleteNews(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteNews(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "news deleted"})
}
