package db

import (
	"context"
	"errors"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for records and simulation runs.
type Store interface {
	RecordStore
	SimulationStore

	// Close releases database resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}

// RecordStore persists per-day health records keyed by (user_id, date).
type RecordStore interface {
	// UpsertRecords writes records atomically. An existing (user_id, date)
	// row is replaced as a whole, so omitted metrics become absent.
	UpsertRecords(ctx context.Context, records []models.HealthRecord) error

	// ListRecords returns a user's records ordered by date.
	ListRecords(ctx context.Context, userID string) ([]models.HealthRecord, error)

	// GetRecord returns one record or ErrNotFound.
	GetRecord(ctx context.Context, userID, date string) (*models.HealthRecord, error)

	// ListUsers returns every user with at least one record, sorted.
	ListUsers(ctx context.Context) ([]string, error)
}

// SimulationStore persists simulation run summaries.
type SimulationStore interface {
	// SaveSimulationRun inserts run, assigning an ID and timestamp when unset.
	SaveSimulationRun(ctx context.Context, run *models.SimulationRun) error

	// ListSimulationRuns returns a user's runs, newest first.
	ListSimulationRuns(ctx context.Context, userID string, limit int) ([]*models.SimulationRun, error)
}
