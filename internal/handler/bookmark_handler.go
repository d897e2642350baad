package handler

import (
	"teamflow/internal/service"
	"teamflow/pkg/jwt"
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type BookmarkHandler struct {
	service *service.BookmarkService
}

func NewBookmarkHandler(s *service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{service: s}
}

// List 当前用户的收藏
func (h *BookmarkHandler) List(c *gin.Context) {
	bookmarks, err := h.service.List(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.List(c, bookmarks, len(bookmarks))
}

// Toggle 切换收藏
func (h *BookmarkHandler) Toggle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	type req struct {
		Note string `json:"note" binding:"max=256"`
	}
	var r req
	// 请求体可选
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&r); err != nil {
			response.BindError(c, err)
			return
		}
	}
	result, err := h.service.Toggle(c.Request.Context(), jwt.GetUserID(c), id, r.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}
