package chrono

import (
	"sync"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func (StandardTime) Now() time.Time {
	return time.Now()
}

// FixedTime is a TimeAPI that only moves when told to.
type FixedTime struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFixedTime(now time.Time) *FixedTime {
	return &FixedTime{now: now}
}

func (f *FixedTime) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *FixedTime) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
}
