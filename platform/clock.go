package platform

import (
	"time"
)

// time and timers behind an interface so that schedule logic
// can be driven deterministically in tests

type ClockTimer interface {
	// reports whether the timer was stopped before firing
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(timeout time.Duration, callback func()) ClockTimer
}

type SystemClock struct{}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (self *SystemClock) Now() time.Time {
	return time.Now()
}

func (self *SystemClock) AfterFunc(timeout time.Duration, callback func()) ClockTimer {
	return time.AfterFunc(timeout, callback)
}
