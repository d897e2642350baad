package response

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 0 表示成功，其余与 HTTP 状态码一致
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误详情（仅 debug 模式）
}

// PageData 列表响应
type PageData struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// List 列表成功响应
func List(c *gin.Context, items interface{}, total int) {
	Success(c, PageData{Items: items, Total: total})
}

// Error 错误响应，HTTP 状态码与 Code 一致
func Error(c *gin.Context, code int, message string) {
	ErrorWithDetails(c, code, message, nil)
}

// ErrorWithDetails debug 模式下附带内部错误详情
func ErrorWithDetails(c *gin.Context, code int, message string, err error) {
	resp := Response{
		Code:    code,
		Message: message,
	}
	if gin.Mode() == gin.DebugMode && err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(httpStatus(code), resp)
}

func httpStatus(code int) int {
	if code >= 400 && code < 600 {
		return code
	}
	return http.StatusInternalServerError
}

// BindError 请求体绑定失败，校验错误转换为字段级描述，与 WebSocket 事件的错误文案一致
func BindError(c *gin.Context, err error) {
	BadRequest(c, DescribeBindError(err))
}

// DescribeBindError 取第一个字段错误；字段名取决于校验器注册的 TagNameFunc
func DescribeBindError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return "Missing required field: " + fe.Field()
		}
		return "Invalid field: " + fe.Field()
	}
	return "Invalid payload: " + err.Error()
}

// JSONFieldName 校验错误中使用 json 字段名
func JSONFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden 403错误
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}
