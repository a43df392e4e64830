package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeaveRequestCovers(t *testing.T) {
	l := &LeaveRequest{StartDate: "2026-02-27", EndDate: "2026-03-03"}

	for date, want := range map[string]bool{
		"2026-02-26": false,
		"2026-02-27": true,
		"2026-03-01": true,
		"2026-03-03": true,
		"2026-03-04": false,
	} {
		assert.Equal(t, want, l.Covers(date), date)
	}
}
