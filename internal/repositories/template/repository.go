package template

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

// TemplateRepository defines the interface for template metadata access
type TemplateRepository interface {
	Create(ctx context.Context, siteID, name, description string) (*models.Template, error)
	Update(ctx context.Context, id, name, description string) error
	Get(ctx context.Context, id string) (*models.Template, error)
	List(ctx context.Context, siteID string) ([]*models.Template, error)
	Archive(ctx context.Context, id string) error
}

// Repository implements TemplateRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new template repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new template
func (r *Repository) Create(ctx context.Context, siteID, name, description string) (*models.Template, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.Create")
	defer span.End()

	now := Now()
	tpl := &models.Template{
		ID:          uuid.New().String(),
		SiteID:      siteID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	row := FromTemplate(tpl)
	ib := templateStruct.InsertInto(templatesTable, row)
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":      tpl.ID,
		"site_id": siteID,
		"name":    name,
	}).Debug("Creating template")

	_, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create template")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create template")
	}

	return tpl, nil
}

// Update updates a template's name and description
func (r *Repository) Update(ctx context.Context, id, name, description string) error {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(templatesTable)
	ub.Set(
		ub.Assign("name", name),
		ub.Assign("description", description),
		ub.Assign("updated_at", Now()),
	)
	ub.Where(ub.Equal("id", id))

	sql, args := ub.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":   id,
		"name": name,
	}).Debug("Updating template")

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update template")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update template")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "template not found")
	}

	return nil
}

// Get retrieves a template by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Template, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.Get")
	defer span.End()

	sb := templateStruct.SelectFrom(templatesTable)
	sb.Where(sb.Equal("id", id))

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id": id,
	}).Debug("Getting template by ID")

	var row TemplateRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "template not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get template")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get template")
	}

	return ToTemplate(&row), nil
}

// List retrieves all non-archived templates for a site
func (r *Repository) List(ctx context.Context, siteID string) ([]*models.Template, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.List")
	defer span.End()

	sb := templateStruct.SelectFrom(templatesTable)
	sb.Where(
		sb.Equal("site_id", siteID),
		sb.Equal("is_archived", false),
	)
	sb.OrderBy("created_at").Desc()

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"site_id": siteID,
	}).Debug("Listing templates")

	var rows []TemplateRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list templates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list templates")
	}

	return ToTemplates(rows), nil
}

// Archive marks a template archived and removes its stages in one
// transaction, so a half-archived template can never be loaded.
func (r *Repository) Archive(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.Archive")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive template")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ub := database.NewUpdateBuilder()
	ub.Update(templatesTable)
	ub.Set(
		ub.Assign("is_archived", true),
		ub.Assign("updated_at", Now()),
	)
	ub.Where(ub.Equal("id", id))

	sql, args := ub.Build()
	result, err := tx.ExecContext(txCtx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to archive template")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive template")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "template not found")
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom("template_stages")
	db.Where(db.Equal("template_id", id))

	sql, args = db.Build()
	if _, err := tx.ExecContext(txCtx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete stages of archived template")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive template")
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive template")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id": id,
	}).Info("Archived template")

	return nil
}
