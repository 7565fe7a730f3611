// Package errs 定义核心流程使用的结构化错误类别.
// 分类器/提取器拿不到结果不算错误（返回 nil 结果），这里只覆盖真正的失败.
package errs

import (
	"errors"
	"fmt"
)

// Kind 错误类别.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation 输入校验失败（非法分页、排序字段、操作符等）.
	KindValidation
	// KindNotFound 目标实体不存在.
	KindNotFound
	// KindStorage 热存储、分区库或文件树操作失败.
	KindStorage
	// KindClassifierUnavailable 分类器画像/模型制品损坏或不可读.
	KindClassifierUnavailable
	// KindExtraction 文本提取协作方失败（含熔断拒绝）.
	KindExtraction
	// KindConflict 并发或状态冲突（如重复归档同一期间）.
	KindConflict
)

// Error 携带类别的错误.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}

	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Is 支持 errors.Is 按类别匹配：errs.Is(err, errs.KindNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.kind == e.kind && t.msg == "" && t.err == nil
}

// New 创建指定类别的错误.
func New(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并标注类别；err 为 nil 时返回 nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// Is 判断 err 是否属于某个类别.
func Is(err error, kind Kind) bool {
	return errors.Is(err, &Error{kind: kind})
}

// KindOf 返回 err 的类别，未标注时为 KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}

	return KindUnknown
}
