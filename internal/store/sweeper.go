package store

import (
	"context"
	"log"
	"time"
)

// StartSweeper launches the background eviction loop. Only the first call
// starts a goroutine, so at most one sweeper runs per store; the loop exits
// when ctx is cancelled, which in practice means process shutdown.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl
	}
	s.sweepOnce.Do(func() {
		go s.sweepLoop(ctx, interval)
	})
}

func (s *Store) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepPass(now)
		}
	}
}

// sweepPass runs a single eviction pass. Whatever goes wrong inside a pass
// is logged; the loop itself must survive until shutdown.
func (s *Store) sweepPass(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sweeper: recovered from %v", r)
		}
	}()

	if n := s.EvictExpired(now); n > 0 {
		log.Printf("sweeper: evicted %d sessions", n)
	}
	if pct, err := s.MemoryPercent(); err == nil {
		log.Printf("sweeper: memory usage %.2f%%, %d active uploads", pct, s.Len())
	} else {
		log.Printf("sweeper: memory sample failed: %v", err)
	}
}
