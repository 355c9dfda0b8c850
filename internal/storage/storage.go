// Package storage persists archived reports.
package storage

import (
	"context"

	"github.com/hyperjump/medscribe/internal/models"
)

// Storage defines archived report persistence.
type Storage interface {
	SaveReport(ctx context.Context, r *models.ArchivedReport) error
	GetReport(ctx context.Context, id string) (*models.ArchivedReport, error)
	DeleteReport(ctx context.Context, id string) error
	ListReports(ctx context.Context, offset, limit int) ([]*models.ArchivedReport, error)
	CountReports(ctx context.Context) (int64, error)

	Close() error
}
