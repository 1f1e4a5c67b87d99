package apperr

import (
	"errors"
	"fmt"
)

// Kind 业务错误分类
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindPermissionDenied
	KindConflict
	KindInvalidTransition
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindConflict:
		return "conflict"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindValidation:
		return "validation_error"
	default:
		return "internal"
	}
}

// Error 携带分类的业务错误，保留错误链（errors.Is/As可用）
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New 创建指定分类的业务错误
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf 创建带格式化消息的业务错误
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并附加分类
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func PermissionDenied(msg string) *Error  { return New(KindPermissionDenied, msg) }
func Conflict(msg string) *Error          { return New(KindConflict, msg) }
func InvalidTransition(msg string) *Error { return New(KindInvalidTransition, msg) }
func Validation(msg string) *Error        { return New(KindValidation, msg) }

// KindOf 取出错误链中的分类，非业务错误归为internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool          { return KindOf(err) == KindNotFound }
func IsPermissionDenied(err error) bool  { return KindOf(err) == KindPermissionDenied }
func IsConflict(err error) bool          { return KindOf(err) == KindConflict }
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidTransition }
func IsValidation(err error) bool        { return KindOf(err) == KindValidation }
