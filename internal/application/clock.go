package application

import "time"

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock returns wall time in UTC; entitlement windows and stored
// timestamps are compared in UTC across both database drivers.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
