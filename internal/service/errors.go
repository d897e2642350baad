package service

import (
	"errors"
)

// 错误类别，边界层用 errors.Is 映射为响应码或私有 error 事件
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPersistence  = errors.New("persistence error")
)

// Error 携带对客户端可见的消息，Kind 为错误类别
type Error struct {
	Kind  error
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Msg + ": " + e.cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// 具名错误
var (
	ErrChannelNotFound        = &Error{Kind: ErrNotFound, Msg: "Channel not found"}
	ErrMessageNotFound        = &Error{Kind: ErrNotFound, Msg: "Message not found"}
	ErrThreadNotFound         = &Error{Kind: ErrNotFound, Msg: "Thread not found"}
	ErrUserNotFound           = &Error{Kind: ErrNotFound, Msg: "User not found"}
	ErrInvalidThreadReference = &Error{Kind: ErrValidation, Msg: "Invalid thread reference"}
	ErrRateLimited            = &Error{Kind: ErrValidation, Msg: "You are sending messages too fast"}
	ErrInvalidCredentials     = &Error{Kind: ErrUnauthorized, Msg: "Invalid credentials"}
)

func validation(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

// NewValidationError 供边界层（请求解码、参数校验）构造校验错误
func NewValidationError(msg string) error {
	return validation(msg)
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}

// persistence 包装存储层错误；msg 面向客户端，cause 只进日志
func persistence(msg string, cause error) error {
	return &Error{Kind: ErrPersistence, Msg: msg, cause: cause}
}

// PublicMessage 返回可以发给客户端的错误描述
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "Internal server error"
}
