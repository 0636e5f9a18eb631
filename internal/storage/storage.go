// Package storage persists the item catalog and evaluation runs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/similar/internal/models"
)

// ErrNotFound is returned when a requested item or run does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines catalog and evaluation run persistence operations.
type Storage interface {
	// Catalog operations
	ReplaceItems(ctx context.Context, items []models.Item) error
	ListItems(ctx context.Context) ([]models.Item, error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	CountItems(ctx context.Context) (int64, error)

	// Evaluation runs
	CreateRun(ctx context.Context, run *models.EvaluationRun) error
	GetRun(ctx context.Context, id string) (*models.EvaluationRun, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.EvaluationRun, error)

	Close() error
}
