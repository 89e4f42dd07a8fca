// Package store owns the mapping from upload number to ingested session. It
// enforces the capacity cap, TTL eviction and memory-pressure admission
// control, and is the only shared mutable state in the service.
package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"recallai/internal/models"
)

var (
	// ErrCapacityExceeded is returned when the store already holds the
	// maximum number of live sessions.
	ErrCapacityExceeded = errors.New("maximum uploads reached")
	// ErrResourceExhausted is returned when process memory usage is above
	// the configured threshold.
	ErrResourceExhausted = errors.New("server is under high load")
	// ErrNotFound is returned for unknown or already evicted sessions.
	ErrNotFound = errors.New("upload not found")
)

// Store is safe for concurrent use by request handlers and the sweeper. The
// mutex guards only the map; session contents are immutable after Admit, so
// callers may keep using a returned *Session after its eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*models.Session

	maxUploads   int
	ttl          time.Duration
	maxMemoryPct float64

	// memPercent is swappable so tests can simulate pressure.
	memPercent func() (float64, error)

	sweepOnce sync.Once
}

// New creates an empty store. ttl bounds session lifetime, maxMemoryPct is
// the admission-control threshold in percent of system memory.
func New(maxUploads int, ttl time.Duration, maxMemoryPct float64) *Store {
	s := &Store{
		sessions:     make(map[string]*models.Session),
		maxUploads:   maxUploads,
		ttl:          ttl,
		maxMemoryPct: maxMemoryPct,
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Printf("store: process handle unavailable: %v", err)
		s.memPercent = func() (float64, error) {
			return 0, fmt.Errorf("process handle unavailable: %w", err)
		}
		return s
	}
	s.memPercent = func() (float64, error) {
		pct, err := proc.MemoryPercent()
		return float64(pct), err
	}
	return s
}

// MemoryPercent samples the current process memory usage.
func (s *Store) MemoryPercent() (float64, error) {
	return s.memPercent()
}

// CheckAdmission is the cheap fail-fast check handlers run before starting
// extraction or embedding work. Admit repeats the authoritative checks at
// insert time.
func (s *Store) CheckAdmission() error {
	if err := s.checkMemory(); err != nil {
		return err
	}
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	if n >= s.maxUploads {
		return ErrCapacityExceeded
	}
	return nil
}

func (s *Store) checkMemory() error {
	pct, err := s.memPercent()
	if err != nil {
		// a broken sampler must not block ingestion
		log.Printf("store: memory sample failed: %v", err)
		return nil
	}
	if pct > s.maxMemoryPct {
		return fmt.Errorf("memory usage %.1f%% above %.1f%%: %w", pct, s.maxMemoryPct, ErrResourceExhausted)
	}
	return nil
}

// Admit inserts a fully built session and returns its upload number. The
// capacity check happens under the map lock, so the live-session count never
// exceeds the cap no matter how many handlers race. The session only becomes
// visible to readers here, complete.
func (s *Store) Admit(session *models.Session) (string, error) {
	if session == nil {
		return "", errors.New("nil session")
	}
	if session.Index == nil || len(session.Chunks) != session.Index.Size() {
		return "", fmt.Errorf("session has %d chunks but %d index rows", len(session.Chunks), indexSize(session))
	}
	if err := s.checkMemory(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.maxUploads {
		return "", ErrCapacityExceeded
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if _, exists := s.sessions[session.ID]; exists {
		return "", fmt.Errorf("duplicate session id %s", session.ID)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	s.sessions[session.ID] = session
	return session.ID, nil
}

func indexSize(session *models.Session) int {
	if session.Index == nil {
		return 0
	}
	return session.Index.Size()
}

// Get returns the live session for id, or ErrNotFound. The returned pointer
// stays valid for the caller even if the sweeper evicts the session while a
// query pipeline is still running against it.
func (s *Store) Get(id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictExpired removes every session older than the TTL and, should the
// store still be over capacity, the oldest sessions until the cap holds.
// Artifact files are deleted after the lock is released; deletion failures
// are logged and never abort or roll back an eviction.
func (s *Store) EvictExpired(now time.Time) int {
	var victims []*models.Session

	s.mu.Lock()
	for id, session := range s.sessions {
		if session.Expired(now, s.ttl) {
			delete(s.sessions, id)
			victims = append(victims, session)
		}
	}
	if len(s.sessions) > s.maxUploads {
		rest := make([]*models.Session, 0, len(s.sessions))
		for _, session := range s.sessions {
			rest = append(rest, session)
		}
		sort.Slice(rest, func(i, j int) bool {
			return rest[i].CreatedAt.Before(rest[j].CreatedAt)
		})
		for _, session := range rest[:len(rest)-s.maxUploads] {
			delete(s.sessions, session.ID)
			victims = append(victims, session)
		}
	}
	s.mu.Unlock()

	for _, session := range victims {
		s.removeArtifact(session)
	}
	return len(victims)
}

// Close evicts everything; called once at process shutdown.
func (s *Store) Close() {
	s.mu.Lock()
	victims := make([]*models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		victims = append(victims, session)
	}
	s.sessions = make(map[string]*models.Session)
	s.mu.Unlock()

	for _, session := range victims {
		s.removeArtifact(session)
	}
}

func (s *Store) removeArtifact(session *models.Session) {
	if session.SourcePath == "" {
		return
	}
	if err := os.Remove(session.SourcePath); err != nil && !os.IsNotExist(err) {
		log.Printf("store: remove artifact %s failed: %v", session.SourcePath, err)
	}
}
