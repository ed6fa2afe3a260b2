package models

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock constraint on a stage ("start no later than
// 14:30"), stored as HH:MM.
type TimeOfDay string

const timeOfDayLayout = "15:04"

// ParseTimeOfDay validates an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if _, err := time.Parse(timeOfDayLayout, s); err != nil {
		return "", fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	return TimeOfDay(s), nil
}

func (t TimeOfDay) String() string {
	return string(t)
}

// Stage is one process step within a production day (e.g. "Mix dough").
//
// Sequence and DayOffset are owned by the sequencing engine and are never
// set directly by callers. DayOffset duplicates the owning day's offset for
// persistence convenience; the engine keeps the two in step.
//
// An empty BakeGroupIDs or DestinationGroupIDs list means the stage applies
// to every group, not to none.
type Stage struct {
	ID        StageID  `json:"id"`
	Name      string   `json:"name"`
	Sequence  int      `json:"sequence"`
	DayOffset int      `json:"day_offset"`

	DurationHours  *float64   `json:"duration_hours,omitempty"`
	IsOvernight    bool       `json:"is_overnight"`
	Instructions   string     `json:"instructions,omitempty"`
	TimeConstraint *TimeOfDay `json:"time_constraint,omitempty"`

	BakeGroupIDs        []string `json:"bake_group_ids"`
	DestinationGroupIDs []string `json:"destination_group_ids"`

	// IsDeleted marks a persisted stage for deletion. The tombstone is kept
	// in memory so the save pass can issue the delete; it is excluded from
	// every display and sequencing computation. Never persisted.
	IsDeleted bool `json:"is_deleted,omitempty"`
}

// IsNew reports whether the stage was created in this session and has never
// been persisted.
func (s *Stage) IsNew() bool {
	return !s.ID.IsPersisted()
}

// EffectiveName is the name the stage will be saved under: the entered name,
// or "Step {sequence}" when the name was left empty.
func (s *Stage) EffectiveName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Step %d", s.Sequence)
}

// Clone returns a deep copy of the stage.
func (s *Stage) Clone() *Stage {
	clone := *s
	if s.DurationHours != nil {
		d := *s.DurationHours
		clone.DurationHours = &d
	}
	if s.TimeConstraint != nil {
		tc := *s.TimeConstraint
		clone.TimeConstraint = &tc
	}
	if s.BakeGroupIDs != nil {
		clone.BakeGroupIDs = append([]string{}, s.BakeGroupIDs...)
	}
	if s.DestinationGroupIDs != nil {
		clone.DestinationGroupIDs = append([]string{}, s.DestinationGroupIDs...)
	}
	return &clone
}

// StagePatch is a partial update to a stage's editable fields. Nil pointers
// leave the field unchanged; the Clear flags reset the optional fields.
// Sequence and day offset are not patchable.
type StagePatch struct {
	Name                *string    `json:"name,omitempty"`
	DurationHours       *float64   `json:"duration_hours,omitempty"`
	ClearDuration       bool       `json:"clear_duration,omitempty"`
	IsOvernight         *bool      `json:"is_overnight,omitempty"`
	Instructions        *string    `json:"instructions,omitempty"`
	TimeConstraint      *TimeOfDay `json:"time_constraint,omitempty"`
	ClearTimeConstraint bool       `json:"clear_time_constraint,omitempty"`
	BakeGroupIDs        *[]string  `json:"bake_group_ids,omitempty"`
	DestinationGroupIDs *[]string  `json:"destination_group_ids,omitempty"`
}
