package history

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/database"
)

// Service tracks recent outputs in memory and, when a store is set, on disk
type Service struct {
	ring  *Ring
	store *Store
}

// NewService creates a history service. store may be nil.
func NewService(store *Store) *Service {
	return &Service{
		ring:  NewRing(DefaultCapacity),
		store: store,
	}
}

// Load fills the ring from the most recent persisted records
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	records, err := s.store.Recent(ctx, s.ring.Cap())
	if err != nil {
		return err
	}
	for _, rec := range records {
		s.ring.Add(rec.OutputPath)
	}
	return nil
}

// Record adds rec to the ring and persists it. A persistence failure is
// logged and does not undo the in-memory entry.
func (s *Service) Record(ctx context.Context, rec Record) {
	s.ring.Add(rec.OutputPath)
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, &rec); err != nil {
		log.Warn().Err(err).Str("output", rec.OutputPath).Msg("⚠️ Failed to persist output history")
	}
}

// Recent returns the recent output paths, oldest first
func (s *Service) Recent() []string {
	return s.ring.Items()
}

// Last returns the newest output path
func (s *Service) Last() (string, bool) {
	return s.ring.Last()
}

// Open creates a service backed by the sqlite database at path and loads the
// recent outputs. An empty path gives an in-memory service. The returned close
// function is always safe to call.
func Open(ctx context.Context, path string) (*Service, func() error, error) {
	if path == "" {
		return NewService(nil), func() error { return nil }, nil
	}

	db, err := database.NewSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewStore(ctx, db.GORM)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	svc := NewService(store)
	if err := svc.Load(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load output history: %w", err)
	}
	return svc, db.Close, nil
}
