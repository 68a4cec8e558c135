// Package job tracks the lifecycle of indexing runs through a small
// file-backed state machine, so out-of-process callers can poll status.
package job

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// State is the lifecycle phase of an indexing job.
type State string

const (
	StateStart      State = "START"
	StateProcessing State = "PROCESSING"
	StateEnd        State = "END"
	StateError      State = "ERROR"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateEnd || s == StateError
}

// Status is the persisted record for one job.
type Status struct {
	JobID     string     `json:"jobId"`
	State     State      `json:"status"`
	Message   string     `json:"message,omitempty"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// NewID builds a job identifier from a caller prefix and the current
// time. The millisecond suffix doubles as the recency sort key.
func NewID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, now.UnixMilli())
}

// idTimestamp extracts the millisecond suffix from a job id, or zero
// when the id does not follow the <prefix>-<millis> shape.
func idTimestamp(id string) int64 {
	i := strings.LastIndex(id, "-")
	if i < 0 {
		return 0
	}
	ms, err := strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

// sortByRecency orders job ids newest first.
func sortByRecency(ids []string) {
	sort.SliceStable(ids, func(a, b int) bool {
		return idTimestamp(ids[a]) > idTimestamp(ids[b])
	})
}
