package group

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/fernwood/rye/pkg/database"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/tracing"
)

// GroupRepository defines read-only access to the group directories. The
// schedule core treats group ids as opaque; this repository only serves the
// pickers and display names in the editing UI.
type GroupRepository interface {
	List(ctx context.Context, siteID string, kind models.GroupKind) ([]*models.Group, error)
}

// Repository implements GroupRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new group repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// List retrieves the groups of one kind for a site, ordered by name
func (r *Repository) List(ctx context.Context, siteID string, kind models.GroupKind) ([]*models.Group, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.List")
	defer span.End()

	sb := groupStruct.SelectFrom(groupsTable)
	sb.Where(
		sb.Equal("site_id", siteID),
		sb.Equal("kind", string(kind)),
	)
	sb.OrderBy("name").Asc()

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"site_id": siteID,
		"kind":    kind,
	}).Debug("Listing production groups")

	var rows []GroupRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list production groups")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list production groups")
	}

	return ToGroups(rows), nil
}
