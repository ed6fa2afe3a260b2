package stage

import (
	"database/sql"
	"time"

	"github.com/fernwood/rye/pkg/database"
	"github.com/fernwood/rye/pkg/models"
)

const (
	stagesTable = "template_stages"
)

// StageRow represents the database row for a template stage
type StageRow struct {
	ID                  sql.NullString            `db:"id"`
	TemplateID          sql.NullString            `db:"template_id"`
	Name                sql.NullString            `db:"name"`
	Sequence            sql.NullInt64             `db:"sequence"`
	DayOffset           sql.NullInt64             `db:"day_offset"`
	DurationHours       sql.NullFloat64           `db:"duration_hours"`
	IsOvernight         sql.NullBool              `db:"is_overnight"`
	Instructions        sql.NullString            `db:"instructions"`
	TimeConstraint      sql.NullString            `db:"time_constraint"`
	BakeGroupIDs        database.JSONB[[]string]  `db:"bake_group_ids"`
	DestinationGroupIDs database.JSONB[[]string]  `db:"destination_group_ids"`
	CreatedAt           sql.NullTime              `db:"created_at"`
	UpdatedAt           sql.NullTime              `db:"updated_at"`
}

var stageStruct = database.NewStruct(new(StageRow))

// FromStage converts a domain stage to a database row. The row id must be a
// persisted id; the caller assigns it before insert.
func FromStage(id, templateID string, s *models.Stage) *StageRow {
	row := &StageRow{
		ID:          sql.NullString{String: id, Valid: id != ""},
		TemplateID:  sql.NullString{String: templateID, Valid: templateID != ""},
		Name:        sql.NullString{String: s.EffectiveName(), Valid: true},
		Sequence:    sql.NullInt64{Int64: int64(s.Sequence), Valid: true},
		DayOffset:   sql.NullInt64{Int64: int64(s.DayOffset), Valid: true},
		IsOvernight: sql.NullBool{Bool: s.IsOvernight, Valid: true},
		BakeGroupIDs: database.JSONB[[]string]{
			Data: emptyIfNil(s.BakeGroupIDs),
		},
		DestinationGroupIDs: database.JSONB[[]string]{
			Data: emptyIfNil(s.DestinationGroupIDs),
		},
	}
	if s.DurationHours != nil {
		row.DurationHours = sql.NullFloat64{Float64: *s.DurationHours, Valid: true}
	}
	if s.Instructions != "" {
		row.Instructions = sql.NullString{String: s.Instructions, Valid: true}
	}
	if s.TimeConstraint != nil {
		row.TimeConstraint = sql.NullString{String: s.TimeConstraint.String(), Valid: true}
	}
	return row
}

// ToStage converts a database row to a domain stage
func ToStage(row *StageRow) *models.Stage {
	s := &models.Stage{
		ID:                  models.PersistedStageID(row.ID.String),
		Name:                row.Name.String,
		Sequence:            int(row.Sequence.Int64),
		DayOffset:           int(row.DayOffset.Int64),
		IsOvernight:         row.IsOvernight.Bool,
		Instructions:        row.Instructions.String,
		BakeGroupIDs:        emptyIfNil(row.BakeGroupIDs.Data),
		DestinationGroupIDs: emptyIfNil(row.DestinationGroupIDs.Data),
	}
	if row.DurationHours.Valid {
		d := row.DurationHours.Float64
		s.DurationHours = &d
	}
	if row.TimeConstraint.Valid {
		tc := models.TimeOfDay(row.TimeConstraint.String)
		s.TimeConstraint = &tc
	}
	return s
}

// ToStages converts a slice of database rows to domain stages
func ToStages(rows []StageRow) []*models.Stage {
	stages := make([]*models.Stage, len(rows))
	for i, row := range rows {
		stages[i] = ToStage(&row)
	}
	return stages
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
