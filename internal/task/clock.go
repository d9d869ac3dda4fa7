package task

import "time"

type Clock interface {
	Now() time.Time
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// TimerService schedules f to run once after d.
type TimerService interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

type runtimeTimers struct{}

func (runtimeTimers) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RuntimeTimers schedules callbacks with time.AfterFunc. Callbacks run on
// their own goroutine.
func RuntimeTimers() TimerService { return runtimeTimers{} }
