package handler

import (
	"fmt"
	"io"
	"path/filepath"

	"teamflow/internal/service"
	"teamflow/pkg/jwt"
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChannelHandler 频道、置顶与频道内上传
type ChannelHandler struct {
	channels *service.ChannelService
	messages *service.MessageService
	files    *service.FileService
}

// NewChannelHandler 创建ChannelHandler实例
func NewChannelHandler(channels *service.ChannelService, messages *service.MessageService, files *service.FileService) *ChannelHandler {
	return &ChannelHandler{channels: channels, messages: messages, files: files}
}

// List 全部频道
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.channels.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.List(c, channels, len(channels))
}

// Create 创建频道，成功后全局广播 channel_created
func (h *ChannelHandler) Create(c *gin.Context) {
	type req struct {
		Name        string `json:"name" binding:"required,max=64"`
		Description string `json:"description" binding:"max=256"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BindError(c, err)
		return
	}
	channel, err := h.channels.Create(c.Request.Context(), jwt.GetUserID(c), r.Name, r.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, "频道创建成功", channel)
}

// Get 频道详情
func (h *ChannelHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	info, err := h.channels.Info(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, info)
}

// Pins 频道置顶消息
func (h *ChannelHandler) Pins(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.channels.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	pins, err := h.messages.ListPinned(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.List(c, pins, len(pins))
}

// Upload 上传文件到频道（multipart: file, description），作为消息广播到频道
func (h *ChannelHandler) Upload(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	channel, err := h.channels.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "No file provided")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "Failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, "Failed to read file")
		return
	}

	ctx := c.Request.Context()
	in := service.PostMessageInput{
		ChannelID: id,
		UserID:    jwt.GetUserID(c),
	}
	if err := h.messages.Precheck(ctx, &in); err != nil {
		writeError(c, err)
		return
	}
	username := jwt.GetUsername(c)
	att, err := h.files.Store(ctx, service.UploadedFile{
		Name:        filepath.Base(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, username, channel.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	in.Content = c.PostForm("description")
	if in.Content == "" {
		in.Content = fmt.Sprintf("Shared a file: %s", att.Name)
	}
	in.Attachment = att
	msg, err := h.messages.Post(ctx, in)
	if err != nil {
		h.files.Discard(att)
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, "文件上传成功", msg)
}
