package errors

import (
	"errors"
	"fmt"

	"smarttrading/pkg/errors/ecode"
)

// 带业务错误码的error，response层通过DecodeErr还原出code和message
type CodedError struct {
	Code    int
	Message string
	cause   error
}

func (e *CodedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("code=%d message=%s cause=%v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("code=%d message=%s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.cause
}

// New 创建一个业务错误
func New(code int, message string) error {
	if message == "" {
		message = ecode.Message(code)
	}
	return &CodedError{Code: code, Message: message}
}

// Wrap 包装底层错误并附加业务错误码
func Wrap(err error, code int, message string) error {
	if message == "" {
		message = ecode.Message(code)
	}
	return &CodedError{Code: code, Message: message, cause: err}
}

// DecodeErr 从error中解出错误码和提示信息
// err == nil 时返回Success
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, ecode.Message(ecode.Success)
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code, ce.Message
	}
	return ecode.InternalErr, err.Error()
}
