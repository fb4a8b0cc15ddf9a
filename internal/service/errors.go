package service

import "errors"

// 服务层错误类型,由handler映射为HTTP状态码
var (
	// ErrValidation 请求缺少必填字段 → 400
	ErrValidation = errors.New("请求参数无效")
	// ErrNotFound 目标不存在 → 404
	ErrNotFound = errors.New("资源不存在")
	// ErrConflict 唯一性冲突 → 409
	ErrConflict = errors.New("资源冲突")
)
