package alerts

import "time"

// Timer：可取消的延时任务
type Timer interface {
	Stop() bool
}

// Clock：时间来源与延时任务（测试中替换为可推进的假时钟）
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time                            { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock：系统时钟
func RealClock() Clock { return realClock{} }
