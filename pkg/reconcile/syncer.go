package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/schedule"
	"github.com/fernwood/rye/pkg/tracing"
)

// Syncer turns "what changed since the last persisted state" into the
// minimal set of store calls. Calls are independent per stage and issued
// concurrently: one slow or failing delete never blocks the other writes.
type Syncer struct {
	templates   TemplateStore
	stages      StageStore
	callTimeout time.Duration
	logger      ectologger.Logger
}

// NewSyncer creates a syncer. callTimeout bounds each individual store call;
// zero disables the per-call bound and leaves cancellation to the caller's
// context.
func NewSyncer(templates TemplateStore, stages StageStore, callTimeout time.Duration, logger ectologger.Logger) *Syncer {
	return &Syncer{
		templates:   templates,
		stages:      stages,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

type stageOp struct {
	kind  ItemKind
	stage *models.Stage
}

// Save diffs the document against the snapshot and issues the write set.
//
// On success of an individual call the snapshot entry for that item is
// refreshed immediately, so a later Save re-diffs and re-attempts only the
// items that still differ. Local state is never rolled back on a partial
// failure; the report tells the caller which named items failed.
func (s *Syncer) Save(ctx context.Context, doc *schedule.Document, snap *Snapshot) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.Save")
	defer span.End()

	report := &Report{}

	if doc.TemplateID == "" {
		tpl, err := s.templates.Create(ctx, doc.SiteID, doc.Name, doc.Description)
		report.add(ItemKindMetadata, "", doc.Name, err)
		if err != nil {
			// without a template id none of the stage writes can be issued
			s.logger.WithContext(ctx).WithError(err).Error("Failed to create template")
			return report, nil
		}
		doc.TemplateID = tpl.ID
		snap.Name = doc.Name
		snap.Description = doc.Description
	} else if doc.Name != snap.Name || doc.Description != snap.Description {
		err := s.templates.Update(ctx, doc.TemplateID, doc.Name, doc.Description)
		report.add(ItemKindMetadata, "", doc.Name, err)
		if err == nil {
			snap.Name = doc.Name
			snap.Description = doc.Description
		}
	}

	ops := s.classify(doc, snap)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, op := range ops {
		wg.Add(1)
		go func(op stageOp) {
			defer wg.Done()
			s.apply(ctx, op, doc, snap, report, &mu)
		}(op)
	}
	wg.Wait()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"template_id": doc.TemplateID,
		"calls":       len(report.Items),
		"failed":      len(report.Failed()),
	}).Info("Save pass completed")

	return report, nil
}

// classify walks the document and the snapshot and decides, per stage,
// which call (if any) the save pass owes the store.
func (s *Syncer) classify(doc *schedule.Document, snap *Snapshot) []stageOp {
	var ops []stageOp
	inDoc := map[string]bool{}

	for _, stage := range doc.AllStages() {
		if stage.ID.IsPersisted() {
			inDoc[stage.ID.Value()] = true
		}

		switch {
		case stage.IsDeleted && stage.ID.IsPersisted():
			ops = append(ops, stageOp{kind: ItemKindDelete, stage: stage})
		case stage.IsDeleted:
			// never persisted, nothing to reconcile
		case stage.IsNew():
			if stage.Name == "" {
				stage.Name = stage.EffectiveName()
			}
			ops = append(ops, stageOp{kind: ItemKindCreate, stage: stage})
		default:
			snapStage, ok := snap.Stages[stage.ID.Value()]
			if !ok || stageChanged(stage, snapStage) {
				ops = append(ops, stageOp{kind: ItemKindUpdate, stage: stage})
			}
		}
	}

	// persisted stages that vanished from the document entirely (a removed
	// day took its tombstones with it) still owe the store a delete
	for id, snapStage := range snap.Stages {
		if !inDoc[id] {
			ops = append(ops, stageOp{kind: ItemKindDelete, stage: snapStage})
		}
	}

	return ops
}

func (s *Syncer) apply(ctx context.Context, op stageOp, doc *schedule.Document, snap *Snapshot, report *Report, mu *sync.Mutex) {
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	switch op.kind {
	case ItemKindDelete:
		id := op.stage.ID.Value()
		err := s.stages.Delete(ctx, id)
		mu.Lock()
		defer mu.Unlock()
		report.add(ItemKindDelete, id, op.stage.EffectiveName(), err)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("stage_id", id).Error("Failed to delete stage")
			return
		}
		snap.remove(id)
		schedule.PurgeTombstone(doc, id)

	case ItemKindCreate:
		id, err := s.stages.Create(ctx, doc.TemplateID, op.stage)
		mu.Lock()
		defer mu.Unlock()
		report.add(ItemKindCreate, op.stage.ID.Value(), op.stage.EffectiveName(), err)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("stage_name", op.stage.Name).Error("Failed to create stage")
			return
		}
		op.stage.ID = models.PersistedStageID(id)
		snap.put(op.stage)

	case ItemKindUpdate:
		id := op.stage.ID.Value()
		err := s.stages.Update(ctx, id, op.stage)
		mu.Lock()
		defer mu.Unlock()
		report.add(ItemKindUpdate, id, op.stage.EffectiveName(), err)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("stage_id", id).Error("Failed to update stage")
			return
		}
		snap.put(op.stage)
	}
}
