// Package service implements scheduling, run execution, history and
// statistics on top of the domain repositories.
package service

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time. Services take one so tests can pin time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

// shortID returns n hex characters of a random UUID.
func shortID(n int) string {
	id := uuid.New()
	s := hex.EncodeToString(id[:])
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// NewScheduleID returns "schedule_<8 hex>".
func NewScheduleID() string {
	return "schedule_" + shortID(8)
}

// NewRunID returns "<schedule id or adhoc>_<YYYYmmdd_HHMMSS>_<4 hex>".
func NewRunID(scheduleID string, at time.Time) string {
	if scheduleID == "" {
		scheduleID = adHocKey
	}
	return scheduleID + "_" + at.Format("20060102_150405") + "_" + shortID(4)
}
