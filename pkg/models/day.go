package models

import "github.com/google/uuid"

// Day is a position in the template's timeline. Days are never persisted as
// their own records; they exist only as the grouping of stages that share a
// day offset, so the id is session-local.
//
// Offset is always Number - total day count: the last day is the delivery
// day at offset 0 and earlier days count down from it.
type Day struct {
	ID     string   `json:"id"`
	Number int      `json:"day_number"`
	Offset int      `json:"day_offset"`
	Stages []*Stage `json:"stages"`
}

// NewDay creates an empty day. Number and Offset are assigned by the
// sequencing engine when the day is placed in the document.
func NewDay() *Day {
	return &Day{
		ID:     uuid.New().String(),
		Stages: []*Stage{},
	}
}

// VisibleStages returns the stages not marked for deletion, in order.
func (d *Day) VisibleStages() []*Stage {
	visible := make([]*Stage, 0, len(d.Stages))
	for _, s := range d.Stages {
		if !s.IsDeleted {
			visible = append(visible, s)
		}
	}
	return visible
}

// VisibleCount returns the number of stages not marked for deletion.
func (d *Day) VisibleCount() int {
	count := 0
	for _, s := range d.Stages {
		if !s.IsDeleted {
			count++
		}
	}
	return count
}

// Clone returns a deep copy of the day and its stages.
func (d *Day) Clone() *Day {
	clone := &Day{
		ID:     d.ID,
		Number: d.Number,
		Offset: d.Offset,
		Stages: make([]*Stage, 0, len(d.Stages)),
	}
	for _, s := range d.Stages {
		clone.Stages = append(clone.Stages, s.Clone())
	}
	return clone
}
