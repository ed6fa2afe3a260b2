package session

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/reconcile"
	"github.com/fernwood/rye/pkg/schedule"
	"github.com/fernwood/rye/pkg/tracing"
)

// Session is one interactive template editing session: a single document,
// the snapshot of its last-persisted shape, and a dirty flag the hosting UI
// checks before discarding work.
//
// Sessions follow a single-writer model: one actor mutates a session at a
// time, so the mutators take no lock. Save is the exception; overlapping
// Save calls are serialized so two passes never race their diffs against
// the same snapshot.
type Session struct {
	doc    *schedule.Document
	snap   *reconcile.Snapshot
	dirty  bool
	saveMu sync.Mutex

	syncer *reconcile.Syncer
	logger ectologger.Logger
}

// NewSession starts a session authoring a brand new template: an empty
// document with one day at offset 0, nothing persisted yet.
func NewSession(siteID string, syncer *reconcile.Syncer, logger ectologger.Logger) *Session {
	return &Session{
		doc:    schedule.NewDocument(siteID),
		snap:   reconcile.NewSnapshot(),
		syncer: syncer,
		logger: logger,
	}
}

// LoadSession hydrates a session from a persisted template. A fetch failure
// aborts the whole load; no partial session is ever returned.
func LoadSession(ctx context.Context, templateID string, templates reconcile.TemplateStore, stages reconcile.StageStore, syncer *reconcile.Syncer, logger ectologger.Logger) (*Session, error) {
	ctx, span := tracing.StartSpan(ctx, "Session.Load")
	defer span.End()

	tpl, err := templates.Get(ctx, templateID)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("template_id", templateID).Error("Failed to load template")
		return nil, err
	}

	stageList, err := stages.ListByTemplate(ctx, templateID)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("template_id", templateID).Error("Failed to load template stages")
		return nil, err
	}

	doc := schedule.HydrateDocument(tpl, stageList)
	return &Session{
		doc:    doc,
		snap:   reconcile.SnapshotOf(doc),
		syncer: syncer,
		logger: logger,
	}, nil
}

// Document exposes the current document for rendering. Callers must not
// mutate it directly; all mutation goes through the session methods.
func (s *Session) Document() *schedule.Document {
	return s.doc
}

// TemplateID returns the persisted template id, or "" before the first
// successful save of a new template.
func (s *Session) TemplateID() string {
	return s.doc.TemplateID
}

// IsDirty reports whether the session has edits not yet reconciled with the
// store. The hosting UI uses it for the exit-intent warning.
func (s *Session) IsDirty() bool {
	return s.dirty
}

// SetMetadata updates the template name and description.
func (s *Session) SetMetadata(name, description string) {
	if s.doc.Name == name && s.doc.Description == description {
		return
	}
	s.doc.Name = name
	s.doc.Description = description
	s.dirty = true
}

// AddDay appends a new delivery day; all prior days move one further out.
func (s *Session) AddDay() *models.Day {
	day := schedule.AddDay(s.doc)
	s.dirty = true
	return day
}

// RemoveDay removes an empty day. Validation failures leave the session
// clean of the attempted change.
func (s *Session) RemoveDay(dayID string) error {
	if err := schedule.RemoveDay(s.doc, dayID); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// AddStage appends a new stage to a day.
func (s *Session) AddStage(dayID string) (*models.Stage, error) {
	stage, err := schedule.AddStage(s.doc, dayID)
	if err != nil {
		return nil, err
	}
	s.dirty = true
	return stage, nil
}

// UpdateStage applies a partial update to a stage.
func (s *Session) UpdateStage(dayID, stageID string, patch models.StagePatch) (*models.Stage, error) {
	stage, err := schedule.UpdateStage(s.doc, dayID, stageID, patch)
	if err != nil {
		return nil, err
	}
	s.dirty = true
	return stage, nil
}

// DeleteStage removes a stage (outright if never persisted, tombstoned
// otherwise).
func (s *Session) DeleteStage(dayID, stageID string) error {
	if err := schedule.DeleteStage(s.doc, dayID, stageID); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// MoveStage moves a stage within or across days.
func (s *Session) MoveStage(stageID, targetDayID string, targetIndex int) error {
	if err := schedule.MoveStage(s.doc, stageID, targetDayID, targetIndex); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Save reconciles local edits with the store. The dirty flag clears only
// when every issued call succeeded; after a partial failure the failed
// subset stays dirty and the next Save re-attempts exactly that subset.
func (s *Session) Save(ctx context.Context) (*reconcile.Report, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "Session.Save")
	defer span.End()

	if !s.dirty {
		return &reconcile.Report{}, nil
	}

	report, err := s.syncer.Save(ctx, s.doc, s.snap)
	if err != nil {
		return nil, err
	}

	if report.Ok() {
		s.dirty = false
	}
	return report, nil
}
