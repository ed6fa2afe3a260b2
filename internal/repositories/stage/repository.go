package stage

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/fernwood/rye/pkg/database"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/tracing"
	"github.com/google/uuid"
)

// StageRepository defines the interface for stage data access. It satisfies
// reconcile.StageStore.
type StageRepository interface {
	Create(ctx context.Context, templateID string, stage *models.Stage) (string, error)
	Update(ctx context.Context, stageID string, stage *models.Stage) error
	Delete(ctx context.Context, stageID string) error
	ListByTemplate(ctx context.Context, templateID string) ([]*models.Stage, error)
}

// Repository implements StageRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new stage repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a stage and returns its assigned id
func (r *Repository) Create(ctx context.Context, templateID string, stage *models.Stage) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "StageRepository.Create")
	defer span.End()

	id := uuid.New().String()
	now := Now()

	row := FromStage(id, templateID, stage)
	row.CreatedAt.Time, row.CreatedAt.Valid = now, true
	row.UpdatedAt.Time, row.UpdatedAt.Valid = now, true

	ib := stageStruct.InsertInto(stagesTable, row)
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          id,
		"template_id": templateID,
		"name":        stage.EffectiveName(),
		"day_offset":  stage.DayOffset,
		"sequence":    stage.Sequence,
	}).Debug("Creating stage")

	_, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create stage")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to create stage")
	}

	return id, nil
}

// Update overwrites a persisted stage's fields
func (r *Repository) Update(ctx context.Context, stageID string, stage *models.Stage) error {
	ctx, span := tracing.StartSpan(ctx, "StageRepository.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(stagesTable)
	assignments := []string{
		ub.Assign("name", stage.EffectiveName()),
		ub.Assign("sequence", stage.Sequence),
		ub.Assign("day_offset", stage.DayOffset),
		ub.Assign("is_overnight", stage.IsOvernight),
		ub.Assign("bake_group_ids", database.JSONB[[]string]{Data: emptyIfNil(stage.BakeGroupIDs)}),
		ub.Assign("destination_group_ids", database.JSONB[[]string]{Data: emptyIfNil(stage.DestinationGroupIDs)}),
		ub.Assign("updated_at", Now()),
	}
	if stage.DurationHours != nil {
		assignments = append(assignments, ub.Assign("duration_hours", *stage.DurationHours))
	} else {
		assignments = append(assignments, ub.Assign("duration_hours", nil))
	}
	if stage.Instructions != "" {
		assignments = append(assignments, ub.Assign("instructions", stage.Instructions))
	} else {
		assignments = append(assignments, ub.Assign("instructions", nil))
	}
	if stage.TimeConstraint != nil {
		assignments = append(assignments, ub.Assign("time_constraint", stage.TimeConstraint.String()))
	} else {
		assignments = append(assignments, ub.Assign("time_constraint", nil))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", stageID))

	sql, args := ub.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         stageID,
		"day_offset": stage.DayOffset,
		"sequence":   stage.Sequence,
	}).Debug("Updating stage")

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update stage")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update stage")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "stage not found")
	}

	return nil
}

// Delete removes a persisted stage
func (r *Repository) Delete(ctx context.Context, stageID string) error {
	ctx, span := tracing.StartSpan(ctx, "StageRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(stagesTable)
	db.Where(db.Equal("id", stageID))

	sql, args := db.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id": stageID,
	}).Debug("Deleting stage")

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete stage")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete stage")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "stage not found")
	}

	return nil
}

// ListByTemplate retrieves all stages of a template ordered by day offset
// then sequence
func (r *Repository) ListByTemplate(ctx context.Context, templateID string) ([]*models.Stage, error) {
	ctx, span := tracing.StartSpan(ctx, "StageRepository.ListByTemplate")
	defer span.End()

	sb := stageStruct.SelectFrom(stagesTable)
	sb.Where(sb.Equal("template_id", templateID))
	sb.OrderBy("day_offset", "sequence").Asc()

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"template_id": templateID,
	}).Debug("Listing stages")

	var rows []StageRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list stages")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list stages")
	}

	return ToStages(rows), nil
}
