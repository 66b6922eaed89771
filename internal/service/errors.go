package service

import (
	"errors"
	"strings"
	"time"

	"campus_feed/internal/repository/docstore"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrRemote       = errors.New("remote store failure")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// Error 带分类的业务错误。Error() 只返回给用户看的文案，分类通过 errors.Is 判断
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// remote 文档库等外部依赖失败，文案沿用下游错误信息
func remote(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Kind: ErrRemote, Msg: err.Error(), Err: err}
}

// storeErr docstore.ErrNotFound 转为 NotFound，其余视为远程错误
func storeErr(err error, notFoundMsg string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return &Error{Kind: ErrNotFound, Msg: notFoundMsg, Err: err}
	}
	return remote(err)
}

// ValidatePost 发帖前校验，内容去掉空白后不能为空
func ValidatePost(content string) error {
	if strings.TrimSpace(content) == "" {
		return newError(ErrValidation, "Post content cannot be empty")
	}
	return nil
}

// ValidateComment 评论前校验
func ValidateComment(text string) error {
	if strings.TrimSpace(text) == "" {
		return newError(ErrValidation, "Comment cannot be empty")
	}
	return nil
}

// ValidateEvent 创建活动前校验
func ValidateEvent(title string, date time.Time, location, department string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return newError(ErrValidation, "Event title is required")
	case date.IsZero():
		return newError(ErrValidation, "Event date is required")
	case strings.TrimSpace(location) == "":
		return newError(ErrValidation, "Event location is required")
	case strings.TrimSpace(department) == "":
		return newError(ErrValidation, "Department is required")
	}
	return nil
}
