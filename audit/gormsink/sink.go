// Package gormsink stores audit entries in a SQL table through gorm. It
// works with any gorm dialect; the service uses sqlite and postgres.
package gormsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/marketgate/audit"
	"gorm.io/gorm"
)

// TableName is the table entries are written to.
const TableName = "security_audit_entries"

type row struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	EntryID   string    `gorm:"size:26;uniqueIndex;not null"`
	Timestamp time.Time `gorm:"index;not null"`
	Level     string    `gorm:"size:16;not null"`
	EventType string    `gorm:"size:32;index;not null"`
	Action    string    `gorm:"not null"`
	Success   bool
	IPAddress string `gorm:"size:64"`
	UserAgent string `gorm:"size:512"`
	UserID    string `gorm:"size:64;index"`
	Email     string `gorm:"size:320"`
	Resource  string `gorm:"size:256"`
	Details   string
	PrevHash  string `gorm:"size:64"`
	Hash      string `gorm:"size:64;not null"`
}

func (row) TableName() string { return TableName }

// Sink implements audit.Sink, audit.Reader and audit.ChainHead. Rows are
// only ever inserted.
type Sink struct {
	db *gorm.DB
}

// New migrates the entries table and returns a Sink.
func New(db *gorm.DB) (*Sink, error) {
	if db == nil {
		return nil, errors.New("gorm sink requires database handle")
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("migrate audit table: %w", err)
	}
	return &Sink{db: db}, nil
}

// Write implements audit.Sink.
func (s *Sink) Write(ctx context.Context, e audit.Entry) error {
	var details string
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		details = string(raw)
	}

	r := row{
		EntryID:   e.ID,
		Timestamp: e.Timestamp.UTC(),
		Level:     string(e.Level),
		EventType: string(e.EventType),
		Action:    e.Action,
		Success:   e.Success,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		UserID:    e.UserID,
		Email:     e.Email,
		Resource:  e.Resource,
		Details:   details,
		PrevHash:  e.PrevHash,
		Hash:      e.Hash,
	}
	return s.db.WithContext(ctx).Create(&r).Error
}

// Query implements audit.Reader.
func (s *Sink) Query(ctx context.Context, since time.Time) ([]audit.Entry, error) {
	var rows []row
	err := s.db.WithContext(ctx).
		Where("timestamp >= ?", since.UTC()).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// LastHash implements audit.ChainHead.
func (s *Sink) LastHash(ctx context.Context) (string, error) {
	var r row
	err := s.db.WithContext(ctx).Order("seq DESC").Limit(1).Find(&r).Error
	if err != nil {
		return "", err
	}
	return r.Hash, nil
}

func (r row) entry() (audit.Entry, error) {
	e := audit.Entry{
		ID:        r.EntryID,
		Timestamp: r.Timestamp.UTC(),
		Level:     audit.Level(r.Level),
		EventType: audit.EventType(r.EventType),
		Action:    r.Action,
		Success:   r.Success,
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
		UserID:    r.UserID,
		Email:     r.Email,
		Resource:  r.Resource,
		PrevHash:  r.PrevHash,
		Hash:      r.Hash,
	}
	if r.Details != "" {
		if err := json.Unmarshal([]byte(r.Details), &e.Details); err != nil {
			return audit.Entry{}, fmt.Errorf("decode details of %s: %w", r.EntryID, err)
		}
	}
	return e, nil
}
