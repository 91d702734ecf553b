package services

import (
	"errors"
	"fmt"
)

// 业务错误分类。调用方用 errors.Is 判断，handlers 据此映射 HTTP 状态码。
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateReport = errors.New("duplicate report")
	ErrValidation      = errors.New("validation error")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrStore           = errors.New("store failure")
)

func notFound(what string, id uint) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

// storeErr 包装数据库错误，保留原始错误链
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
