package handler

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"teamflow/internal/service"
	"teamflow/pkg/jwt"
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// FileLocator 将附件引用解析为本地路径
type FileLocator interface {
	Path(ref string) (string, error)
}

// FileHandler 附件列表、文件下载与知识库问答
type FileHandler struct {
	files    *service.FileService
	messages *service.MessageService
	locator  FileLocator
}

// NewFileHandler 创建FileHandler实例
func NewFileHandler(files *service.FileService, messages *service.MessageService, locator FileLocator) *FileHandler {
	return &FileHandler{files: files, messages: messages, locator: locator}
}

// List 最近的附件消息
func (h *FileHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 100
	}
	items, err := h.messages.ListFiles(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.List(c, items, len(items))
}

// Serve GET /uploads/*ref
func (h *FileHandler) Serve(c *gin.Context) {
	ref := strings.TrimPrefix(c.Param("ref"), "/")
	path, err := h.locator.Path(ref)
	if err != nil {
		response.NotFound(c, "File not found")
		return
	}
	c.File(path)
}

// Query 知识库问答
func (h *FileHandler) Query(c *gin.Context) {
	type req struct {
		Query string `json:"query" binding:"required"`
		Type  string `json:"type"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, "No query provided")
		return
	}
	result, err := h.files.Query(c.Request.Context(), r.Query, r.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// Ingest 批量导入文本文件（multipart: files）
func (h *FileHandler) Ingest(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "No files provided")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.BadRequest(c, "No files selected")
		return
	}

	files := make([]service.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(c, service.NewValidationError("Failed to read file"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(c, service.NewValidationError("Failed to read file"))
			return
		}
		files = append(files, service.UploadedFile{
			Name:        filepath.Base(fh.Filename),
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	result, err := h.files.Ingest(c.Request.Context(), files, jwt.GetUsername(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}
