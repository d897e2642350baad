package handler

import (
	"teamflow/internal/service"
	"teamflow/pkg/jwt"
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

type authResponse struct {
	User        *service.UserView `json:"user"`
	AccessToken string            `json:"access_token"`
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required,max=64"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BindError(c, err)
		return
	}
	user, token, err := h.service.Register(c.Request.Context(), r.Username, r.Email, r.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", &authResponse{User: user, AccessToken: token})
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
		Password        string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BindError(c, err)
		return
	}
	user, token, err := h.service.Login(c.Request.Context(), r.UsernameOrEmail, r.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", &authResponse{User: user, AccessToken: token})
}

// GetProfile 获取当前用户资料（需要JWT认证）
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.service.Profile(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, user)
}

// GetStatus 按用户名查询状态与活跃度
func (h *UserHandler) GetStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, status)
}
