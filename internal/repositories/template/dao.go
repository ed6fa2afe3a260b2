package template

import (
	"database/sql"
	"time"

	"github.com/fernwood/rye/pkg/database"
	"github.com/fernwood/rye/pkg/models"
)

const (
	templatesTable = "templates"
)

// TemplateRow represents the database row for a template
type TemplateRow struct {
	ID          sql.NullString `db:"id"`
	SiteID      sql.NullString `db:"site_id"`
	Name        sql.NullString `db:"name"`
	Description sql.NullString `db:"description"`
	IsArchived  sql.NullBool   `db:"is_archived"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
}

var templateStruct = database.NewStruct(new(TemplateRow))

// FromTemplate converts a domain model to a database row
func FromTemplate(t *models.Template) *TemplateRow {
	return &TemplateRow{
		ID:          sql.NullString{String: t.ID, Valid: t.ID != ""},
		SiteID:      sql.NullString{String: t.SiteID, Valid: t.SiteID != ""},
		Name:        sql.NullString{String: t.Name, Valid: true},
		Description: sql.NullString{String: t.Description, Valid: true},
		IsArchived:  sql.NullBool{Bool: t.IsArchived, Valid: true},
		CreatedAt:   sql.NullTime{Time: t.CreatedAt, Valid: !t.CreatedAt.IsZero()},
		UpdatedAt:   sql.NullTime{Time: t.UpdatedAt, Valid: !t.UpdatedAt.IsZero()},
	}
}

// ToTemplate converts a database row to a domain model
func ToTemplate(row *TemplateRow) *models.Template {
	return &models.Template{
		ID:          row.ID.String,
		SiteID:      row.SiteID.String,
		Name:        row.Name.String,
		Description: row.Description.String,
		IsArchived:  row.IsArchived.Bool,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

// ToTemplates converts a slice of database rows to domain models
func ToTemplates(rows []TemplateRow) []*models.Template {
	templates := make([]*models.Template, len(rows))
	for i, row := range rows {
		templates[i] = ToTemplate(&row)
	}
	return templates
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
