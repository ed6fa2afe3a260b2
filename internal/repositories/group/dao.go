package group

import (
	"database/sql"

	"github.com/Gobusters/ectolinq"
	"github.com/fernwood/rye/pkg/database"
	"github.com/fernwood/rye/pkg/models"
)

const (
	groupsTable = "production_groups"
)

// GroupRow represents the database row for a production group
type GroupRow struct {
	ID        sql.NullString `db:"id"`
	SiteID    sql.NullString `db:"site_id"`
	Name      sql.NullString `db:"name"`
	Kind      sql.NullString `db:"kind"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

var groupStruct = database.NewStruct(new(GroupRow))

// ToGroup converts a database row to a domain model
func ToGroup(row *GroupRow) *models.Group {
	return &models.Group{
		ID:        row.ID.String,
		SiteID:    row.SiteID.String,
		Name:      row.Name.String,
		Kind:      models.GroupKind(row.Kind.String),
		CreatedAt: row.CreatedAt.Time,
	}
}

// ToGroups converts a slice of database rows to domain models
func ToGroups(rows []GroupRow) []*models.Group {
	return ectolinq.Map(rows, func(row GroupRow) *models.Group {
		return ToGroup(&row)
	})
}
