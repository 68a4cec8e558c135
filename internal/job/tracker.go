package job

import (
	"fmt"
	"strings"
	"time"
)

// Tracker drives the job state machine over a Store.
type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Create registers a new job in the START state and returns its id.
func (t *Tracker) Create(prefix string) (string, error) {
	now := t.now().UTC()
	status := &Status{
		JobID:     NewID(prefix, now),
		State:     StateStart,
		StartTime: now,
	}
	if err := t.store.Write(status); err != nil {
		return "", err
	}
	return status.JobID, nil
}

// Update transitions a job to a new state. The original start time is
// preserved, terminal states stamp an end time, and transitions out of
// a terminal state are refused.
func (t *Tracker) Update(jobID string, state State, message string) error {
	prev, err := t.store.Read(jobID)
	if err != nil {
		return err
	}
	if prev == nil {
		return fmt.Errorf("unknown job %s", jobID)
	}
	if prev.State.Terminal() {
		return fmt.Errorf("job %s already finished as %s", jobID, prev.State)
	}

	status := &Status{
		JobID:     jobID,
		State:     state,
		Message:   message,
		StartTime: prev.StartTime,
	}
	if state.Terminal() {
		end := t.now().UTC()
		status.EndTime = &end
	}
	return t.store.Write(status)
}

// Get returns the status for a job, or nil when the job is unknown.
func (t *Tracker) Get(jobID string) (*Status, error) {
	return t.store.Read(jobID)
}

// ListRecent returns up to limit job statuses, newest first. A non-empty
// prefix keeps only jobs from that origin ("cli" or "mcp").
func (t *Tracker) ListRecent(limit int, prefix string) ([]*Status, error) {
	ids, err := t.store.List()
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		kept := ids[:0]
		for _, id := range ids {
			if strings.HasPrefix(id, prefix+"-") {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	sortByRecency(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	statuses := make([]*Status, 0, len(ids))
	for _, id := range ids {
		st, err := t.store.Read(id)
		if err != nil {
			return nil, err
		}
		if st != nil {
			statuses = append(statuses, st)
		}
	}
	return statuses, nil
}
