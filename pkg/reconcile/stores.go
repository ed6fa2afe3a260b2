package reconcile

import (
	"context"

	"github.com/fernwood/rye/pkg/models"
)

// StageStore is the persistence boundary for individual stages. Implemented
// by internal/repositories/stage; tests substitute in-memory fakes.
type StageStore interface {
	// Create persists a new stage and returns the id the store assigned.
	Create(ctx context.Context, templateID string, stage *models.Stage) (string, error)
	// Update overwrites a persisted stage's fields, sequence and day offset
	// included.
	Update(ctx context.Context, stageID string, stage *models.Stage) error
	// Delete removes a persisted stage by id.
	Delete(ctx context.Context, stageID string) error
	// ListByTemplate returns every stage of a template ordered by day offset
	// then sequence.
	ListByTemplate(ctx context.Context, templateID string) ([]*models.Stage, error)
}

// TemplateStore is the persistence boundary for template metadata.
type TemplateStore interface {
	Create(ctx context.Context, siteID, name, description string) (*models.Template, error)
	Update(ctx context.Context, templateID, name, description string) error
	Get(ctx context.Context, templateID string) (*models.Template, error)
}
