package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Record is one saved OCR output
type Record struct {
	ID         uuid.UUID `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	SourcePath string    `json:"source_path"`
	OutputPath string    `json:"output_path"`
	Format     string    `json:"format"`
	Pages      int       `json:"pages"`
	CreatedAt  time.Time `json:"created_at"`
}

// outputRow is the ocr_outputs table. Seq keeps insertion order even when
// CreatedAt collides.
type outputRow struct {
	Seq        uint   `gorm:"primaryKey;autoIncrement"`
	RecordID   string `gorm:"column:record_id;uniqueIndex;not null"`
	RunID      string `gorm:"index;not null"`
	SourcePath string `gorm:"not null"`
	OutputPath string `gorm:"not null"`
	Format     string `gorm:"not null"`
	Pages      int    `gorm:"not null"`
	CreatedAt  int64  `gorm:"autoCreateTime:nano"`
}

func (outputRow) TableName() string {
	return "ocr_outputs"
}

// Store persists output records in sqlite
type Store struct {
	db *gorm.DB
}

// NewStore migrates the schema if needed
func NewStore(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&outputRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts rec, filling ID and CreatedAt when unset
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	row := outputRow{
		RecordID:   rec.ID.String(),
		RunID:      rec.RunID.String(),
		SourcePath: rec.SourcePath,
		OutputPath: rec.OutputPath,
		Format:     rec.Format,
		Pages:      rec.Pages,
		CreatedAt:  rec.CreatedAt.UnixNano(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, oldest first. Rows with unreadable IDs are skipped.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	var rows []outputRow
	if err := s.db.WithContext(ctx).Order("seq DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	// newest-first from the query; callers want insertion order
	records := make([]Record, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		rec, err := rows[i].record()
		if err != nil {
			log.Warn().Err(err).Uint("seq", rows[i].Seq).Msg("⚠️ Skipping corrupt history row")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r outputRow) record() (Record, error) {
	id, err := uuid.Parse(r.RecordID)
	if err != nil {
		return Record{}, fmt.Errorf("invalid record id %q: %w", r.RecordID, err)
	}
	runID, err := uuid.Parse(r.RunID)
	if err != nil {
		return Record{}, fmt.Errorf("invalid run id %q: %w", r.RunID, err)
	}
	return Record{
		ID:         id,
		RunID:      runID,
		SourcePath: r.SourcePath,
		OutputPath: r.OutputPath,
		Format:     r.Format,
		Pages:      r.Pages,
		CreatedAt:  time.Unix(0, r.CreatedAt),
	}, nil
}
