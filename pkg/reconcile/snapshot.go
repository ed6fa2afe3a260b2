package reconcile

import (
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/schedule"
)

// Snapshot is the last-persisted shape of a template: the metadata and every
// persisted stage as the store last saw it, keyed by persisted id. The save
// pass diffs the live document against it instead of round-tripping to the
// store, so drag operations never cost a network call.
type Snapshot struct {
	Name        string
	Description string
	Stages      map[string]*models.Stage
}

// NewSnapshot returns an empty snapshot for a template that has never been
// saved.
func NewSnapshot() *Snapshot {
	return &Snapshot{Stages: map[string]*models.Stage{}}
}

// SnapshotOf captures the persisted portion of a document: metadata plus a
// deep copy of every persisted, non-deleted stage.
func SnapshotOf(doc *schedule.Document) *Snapshot {
	snap := NewSnapshot()
	snap.Name = doc.Name
	snap.Description = doc.Description
	for _, s := range doc.AllStages() {
		if s.ID.IsPersisted() && !s.IsDeleted {
			snap.Stages[s.ID.Value()] = s.Clone()
		}
	}
	return snap
}

func (s *Snapshot) put(stage *models.Stage) {
	s.Stages[stage.ID.Value()] = stage.Clone()
}

func (s *Snapshot) remove(stageID string) {
	delete(s.Stages, stageID)
}

// stageChanged reports whether any persisted field differs between the live
// stage and its snapshot entry. Sequence and day offset count: a move must
// be persisted like any other edit.
func stageChanged(current, snap *models.Stage) bool {
	if current.EffectiveName() != snap.EffectiveName() {
		return true
	}
	if current.Sequence != snap.Sequence || current.DayOffset != snap.DayOffset {
		return true
	}
	if current.IsOvernight != snap.IsOvernight {
		return true
	}
	if current.Instructions != snap.Instructions {
		return true
	}
	if !floatPtrEqual(current.DurationHours, snap.DurationHours) {
		return true
	}
	if !timeOfDayPtrEqual(current.TimeConstraint, snap.TimeConstraint) {
		return true
	}
	if !stringSliceEqual(current.BakeGroupIDs, snap.BakeGroupIDs) {
		return true
	}
	if !stringSliceEqual(current.DestinationGroupIDs, snap.DestinationGroupIDs) {
		return true
	}
	return false
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func timeOfDayPtrEqual(a, b *models.TimeOfDay) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
