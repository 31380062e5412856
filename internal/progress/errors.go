package progress

import (
	"errors"
	"fmt"
)

// ErrStaleCourse 响应属于已经不是当前课程的请求
var ErrStaleCourse = errors.New("response for a stale course")

// LockedModuleError 对未解锁模块执行了操作
type LockedModuleError struct {
	ModuleID uint
}

func (e *LockedModuleError) Error() string {
	return fmt.Sprintf("module %d is locked", e.ModuleID)
}

// MissingDataError 引用的模块/内容/测验不存在
type MissingDataError struct {
	Kind string
	ID   uint
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func missing(kind string, id uint) error {
	return &MissingDataError{Kind: kind, ID: id}
}

// IsLocked 判断错误链中是否含有 LockedModuleError
func IsLocked(err error) bool {
	var le *LockedModuleError
	return errors.As(err, &le)
}

// IsMissing 判断错误链中是否含有 MissingDataError
func IsMissing(err error) bool {
	var me *MissingDataError
	return errors.As(err, &me)
}
