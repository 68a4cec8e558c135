package job

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists job status records. Read returns (nil, nil) when a job
// is unknown or its record cannot be read or decoded; stale or mangled
// state never blocks a new run.
type Store interface {
	Write(status *Status) error
	Read(jobID string) (*Status, error)
	List() ([]string, error)
}

const statusFile = "status.json"

// FSStore keeps one directory per job under a root, with the status
// record at <root>/<jobId>/status.json.
type FSStore struct {
	root string
}

func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

func (s *FSStore) Write(status *Status) error {
	dir := filepath.Join(s.root, status.JobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	tmp := filepath.Join(dir, statusFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write job status: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, statusFile)); err != nil {
		return fmt.Errorf("commit job status: %w", err)
	}
	return nil
}

func (s *FSStore) Read(jobID string) (*Status, error) {
	data, err := os.ReadFile(filepath.Join(s.root, jobID, statusFile))
	if err != nil {
		// Unreadable records read as absent, same as corrupt ones.
		return nil, nil
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		// Corrupt records read as absent.
		return nil, nil
	}
	return &status, nil
}

func (s *FSStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	mu   sync.Mutex
	jobs map[string]*Status
}

func NewMemStore() *MemStore {
	return &MemStore{jobs: make(map[string]*Status)}
}

func (s *MemStore) Write(status *Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *status
	s.jobs[status.JobID] = &copied
	return nil
}

func (s *MemStore) Read(jobID string) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	copied := *st
	return &copied, nil
}

func (s *MemStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids, nil
}
