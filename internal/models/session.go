package models

import (
	"time"

	"recallai/internal/vectorindex"
)

// Session is one ingested document or transcript together with the retrieval
// state derived from it. All fields are immutable once the session has been
// admitted to the store; chunk i corresponds to index row i.
type Session struct {
	ID         string
	RawText    string
	Chunks     []string
	Index      *vectorindex.Flat
	SourcePath string
	CreatedAt  time.Time
}

// Expired reports whether the session has outlived ttl at the given time.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}
