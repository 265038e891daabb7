package zones

import (
	"errors"
	"fmt"
)

var (
	ErrResource = errors.New("zone resource unavailable")
	ErrFormat   = errors.New("zone resource malformed")
)

// ResourceError：海域数据无法获取（文件不存在、网络失败、非 200）
type ResourceError struct {
	Source string
	Err    error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("load zones from %s: %v", e.Source, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

func (e *ResourceError) Is(target error) bool { return target == ErrResource }

// FormatError：数据可获取但不是合法的 FeatureCollection
type FormatError struct {
	Source string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse zones from %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse zones from %s: %s", e.Source, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }
