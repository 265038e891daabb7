package location

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnsupported         = errors.New("positioning is not supported on this platform")
	ErrPermissionDenied    = errors.New("location access denied by user")
	ErrPositionUnavailable = errors.New("location information unavailable")
	ErrTimeout             = errors.New("location request timed out")
	ErrLocationUnavailable = errors.New("current location not available")
	ErrInvalidSample       = errors.New("invalid location sample")
)

// 定位平台错误码（与 W3C Geolocation 保持一致）
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// PositionError：定位提供方返回的原始错误码
type PositionError struct {
	Code    int
	Message string
}

func (e *PositionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("position error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("position error %d", e.Code)
}

// Is：按错误码映射到哨兵错误，便于 errors.Is 判断
func (e *PositionError) Is(target error) bool {
	switch e.Code {
	case CodePermissionDenied:
		return target == ErrPermissionDenied
	case CodePositionUnavailable:
		return target == ErrPositionUnavailable
	case CodeTimeout:
		return target == ErrTimeout
	}
	return false
}

// 文档注释：定位错误归一化
// 背景：订阅者与一次性查询只需区分“拒绝/不可用/超时”；提供方可能返回平台错误码、上下文超时或任意错误。
// 约束：已可识别的错误原样返回；上下文超时映射为 ErrTimeout；其余包装为 ErrPositionUnavailable。
func MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrPositionUnavailable),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrUnsupported):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
}

// errorKind：指标标签
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	}
	return "position_unavailable"
}
