package schedule

import (
	"github.com/fernwood/rye/pkg/models"
)

// The functions in this file are the only mutation entry points for a
// Document. None of them perform I/O. On a validation error the document is
// left untouched.

// AddDay appends a new empty day. The new day becomes the delivery day
// (offset 0) and every existing day shifts one day further out.
func AddDay(doc *Document) *models.Day {
	day := models.NewDay()
	doc.Days = append(doc.Days, day)
	renumberDays(doc)
	return day
}

// RemoveDay removes a day and renumbers the rest. A day that still has
// non-deleted stages cannot be removed, and neither can the last remaining
// day.
func RemoveDay(doc *Document, dayID string) error {
	idx := -1
	for i, day := range doc.Days {
		if day.ID == dayID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NewValidationError("remove_day", "day not found").AddDay(dayID)
	}
	if len(doc.Days) <= 1 {
		return NewValidationError("remove_day", "a template must keep at least one day").AddDay(dayID)
	}
	day := doc.Days[idx]
	if day.VisibleCount() > 0 {
		return NewValidationErrorf("remove_day", "day %d still has %d stages", day.Number, day.VisibleCount()).AddDay(dayID)
	}

	// tombstones in the removed day stay deletable: the save pass diffs the
	// snapshot against the document, so a persisted stage that vanished with
	// its day is still issued as a delete
	doc.Days = append(doc.Days[:idx], doc.Days[idx+1:]...)
	renumberDays(doc)
	return nil
}

// AddStage appends a new, never-persisted stage to the day.
func AddStage(doc *Document, dayID string) (*models.Stage, error) {
	day := doc.Day(dayID)
	if day == nil {
		return nil, NewValidationError("add_stage", "day not found").AddDay(dayID)
	}

	stage := &models.Stage{
		ID:                  models.NewTemporaryStageID(),
		Sequence:            day.VisibleCount() + 1,
		DayOffset:           day.Offset,
		BakeGroupIDs:        []string{},
		DestinationGroupIDs: []string{},
	}
	day.Stages = append(day.Stages, stage)
	return stage, nil
}

// UpdateStage applies a partial update to a stage's editable fields.
// Sequence and day offset are engine-owned and cannot be patched.
func UpdateStage(doc *Document, dayID, stageID string, patch models.StagePatch) (*models.Stage, error) {
	day := doc.Day(dayID)
	if day == nil {
		return nil, NewValidationError("update_stage", "day not found").AddDay(dayID)
	}
	stage := findVisibleStage(day, stageID)
	if stage == nil {
		return nil, NewValidationError("update_stage", "stage not found").AddDay(dayID).AddStage(stageID)
	}

	if patch.DurationHours != nil && *patch.DurationHours < 0 {
		return nil, NewValidationError("update_stage", "duration_hours must not be negative").AddStage(stageID)
	}

	if patch.Name != nil {
		stage.Name = *patch.Name
	}
	if patch.ClearDuration {
		stage.DurationHours = nil
	} else if patch.DurationHours != nil {
		d := *patch.DurationHours
		stage.DurationHours = &d
	}
	if patch.IsOvernight != nil {
		stage.IsOvernight = *patch.IsOvernight
	}
	if patch.Instructions != nil {
		stage.Instructions = *patch.Instructions
	}
	if patch.ClearTimeConstraint {
		stage.TimeConstraint = nil
	} else if patch.TimeConstraint != nil {
		tc := *patch.TimeConstraint
		stage.TimeConstraint = &tc
	}
	if patch.BakeGroupIDs != nil {
		stage.BakeGroupIDs = append([]string(nil), (*patch.BakeGroupIDs)...)
	}
	if patch.DestinationGroupIDs != nil {
		stage.DestinationGroupIDs = append([]string(nil), (*patch.DestinationGroupIDs)...)
	}

	return stage, nil
}

// DeleteStage removes a stage from a day. A stage created this session is
// dropped outright: it was never persisted so there is nothing to reconcile.
// A persisted stage becomes a tombstone the save pass turns into a delete
// call. Either way the remaining stages close ranks.
func DeleteStage(doc *Document, dayID, stageID string) error {
	day := doc.Day(dayID)
	if day == nil {
		return NewValidationError("delete_stage", "day not found").AddDay(dayID)
	}
	stage := findVisibleStage(day, stageID)
	if stage == nil {
		return NewValidationError("delete_stage", "stage not found").AddDay(dayID).AddStage(stageID)
	}

	if stage.IsNew() {
		removeStage(day, stage)
	} else {
		stage.IsDeleted = true
	}
	resequence(day)
	return nil
}

// MoveStage moves a stage to targetIndex within the target day's visible
// stage list. Tombstones never participate in the index arithmetic. An
// out-of-range target index (a drop on the day container rather than on a
// stage) inserts at the end. Moving a stage onto its own position is a
// no-op.
func MoveStage(doc *Document, stageID, targetDayID string, targetIndex int) error {
	sourceDay, stage := doc.FindStage(stageID)
	if stage == nil {
		return NewValidationError("move_stage", "stage not found").AddStage(stageID)
	}
	targetDay := doc.Day(targetDayID)
	if targetDay == nil {
		return NewValidationError("move_stage", "target day not found").AddDay(targetDayID)
	}

	if sourceDay == targetDay {
		visible := sourceDay.VisibleStages()
		current := visibleIndexOf(visible, stage)
		if targetIndex < 0 || targetIndex >= len(visible) {
			targetIndex = len(visible) - 1
		}
		if targetIndex == current {
			return nil
		}

		visible = append(visible[:current], visible[current+1:]...)
		visible = insertAt(visible, stage, targetIndex)
		rebuildStages(sourceDay, visible)
		resequence(sourceDay)
		return nil
	}

	removeStage(sourceDay, stage)
	resequence(sourceDay)

	stage.DayOffset = targetDay.Offset
	visible := targetDay.VisibleStages()
	if targetIndex < 0 || targetIndex > len(visible) {
		targetIndex = len(visible)
	}
	visible = insertAt(visible, stage, targetIndex)
	rebuildStages(targetDay, visible)
	resequence(targetDay)
	return nil
}

// PurgeTombstone drops a soft-deleted stage once its delete has been
// persisted. Looking up by persisted id only: live stages are never purged.
func PurgeTombstone(doc *Document, stageID string) {
	for _, day := range doc.Days {
		for i, s := range day.Stages {
			if s.IsDeleted && s.ID.IsPersisted() && s.ID.Value() == stageID {
				day.Stages = append(day.Stages[:i], day.Stages[i+1:]...)
				return
			}
		}
	}
}

// renumberDays recomputes day numbers and offsets from position, and pushes
// the offsets down onto each day's non-deleted stages.
func renumberDays(doc *Document) {
	total := len(doc.Days)
	for i, day := range doc.Days {
		day.Number = i + 1
		day.Offset = day.Number - total
		for _, s := range day.Stages {
			if !s.IsDeleted {
				s.DayOffset = day.Offset
			}
		}
	}
}

// resequence closes any gaps so the visible stages are numbered 1..N in
// document order.
func resequence(day *models.Day) {
	seq := 0
	for _, s := range day.Stages {
		if !s.IsDeleted {
			seq++
			s.Sequence = seq
		}
	}
}

func findVisibleStage(day *models.Day, stageID string) *models.Stage {
	for _, s := range day.Stages {
		if !s.IsDeleted && s.ID.Value() == stageID {
			return s
		}
	}
	return nil
}

func visibleIndexOf(visible []*models.Stage, stage *models.Stage) int {
	for i, s := range visible {
		if s == stage {
			return i
		}
	}
	return -1
}

func insertAt(stages []*models.Stage, stage *models.Stage, idx int) []*models.Stage {
	stages = append(stages, nil)
	copy(stages[idx+1:], stages[idx:])
	stages[idx] = stage
	return stages
}

func removeStage(day *models.Day, stage *models.Stage) {
	for i, s := range day.Stages {
		if s == stage {
			day.Stages = append(day.Stages[:i], day.Stages[i+1:]...)
			return
		}
	}
}

// rebuildStages replaces the day's visible ordering while carrying the
// tombstones over untouched.
func rebuildStages(day *models.Day, visible []*models.Stage) {
	rebuilt := make([]*models.Stage, 0, len(day.Stages))
	rebuilt = append(rebuilt, visible...)
	for _, s := range day.Stages {
		if s.IsDeleted {
			rebuilt = append(rebuilt, s)
		}
	}
	day.Stages = rebuilt
}
