package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/vistoria/internal/domain"
)

// BackupStore swaps the whole inspection data set for a restored one.
type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

// Replace deletes every property, with its observations and photo rows,
// and stores properties and observations in their place. It runs in one
// transaction: when any statement fails the previous data is kept.
func (s *BackupStore) Replace(ctx context.Context, properties []*domain.Property, observations []*domain.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := replace(ctx, tx, properties, observations); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			slog.Error("failed to roll back replace", "error", rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}
	return nil
}

func replace(ctx context.Context, tx *sql.Tx, properties []*domain.Property, observations []*domain.Observation) error {
	propertyStore := NewPropertyStore(tx)
	observationStore := NewObservationStore(tx)

	if err := propertyStore.DeleteAll(ctx); err != nil {
		return err
	}
	for _, p := range properties {
		if _, err := propertyStore.Create(ctx, p); err != nil {
			return err
		}
	}
	for _, o := range observations {
		if _, err := observationStore.Create(ctx, o); err != nil {
			return err
		}
	}
	return nil
}
