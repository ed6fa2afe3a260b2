package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/schedule"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTemplateStore struct {
	mu         sync.Mutex
	templates  map[string]*models.Template
	creates    int
	updates    int
	failCreate error
	failUpdate error
}

func newFakeTemplateStore() *fakeTemplateStore {
	return &fakeTemplateStore{templates: map[string]*models.Template{}}
}

func (f *fakeTemplateStore) Create(ctx context.Context, siteID, name, description string) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	tpl := &models.Template{
		ID:          fmt.Sprintf("tpl-%d", len(f.templates)+1),
		SiteID:      siteID,
		Name:        name,
		Description: description,
	}
	f.templates[tpl.ID] = tpl
	return tpl, nil
}

func (f *fakeTemplateStore) Update(ctx context.Context, templateID, name, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.failUpdate != nil {
		return f.failUpdate
	}
	tpl, ok := f.templates[templateID]
	if !ok {
		return errors.New("template not found")
	}
	tpl.Name = name
	tpl.Description = description
	return nil
}

func (f *fakeTemplateStore) Get(ctx context.Context, templateID string) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[templateID]
	if !ok {
		return nil, errors.New("template not found")
	}
	return tpl, nil
}

type fakeStageStore struct {
	mu         sync.Mutex
	nextID     int
	stages     map[string]*models.Stage
	creates    int
	updates    int
	deletes    int
	failCreate map[string]error
	failUpdate map[string]error
	failDelete map[string]error
}

func newFakeStageStore() *fakeStageStore {
	return &fakeStageStore{
		stages:     map[string]*models.Stage{},
		failCreate: map[string]error{},
		failUpdate: map[string]error{},
		failDelete: map[string]error{},
	}
}

func (f *fakeStageStore) Create(ctx context.Context, templateID string, stage *models.Stage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if err := f.failCreate[stage.Name]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("db-%d", f.nextID)
	stored := stage.Clone()
	stored.ID = models.PersistedStageID(id)
	f.stages[id] = stored
	return id, nil
}

func (f *fakeStageStore) Update(ctx context.Context, stageID string, stage *models.Stage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if err := f.failUpdate[stageID]; err != nil {
		return err
	}
	if _, ok := f.stages[stageID]; !ok {
		return errors.New("stage not found")
	}
	stored := stage.Clone()
	stored.ID = models.PersistedStageID(stageID)
	f.stages[stageID] = stored
	return nil
}

func (f *fakeStageStore) Delete(ctx context.Context, stageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if err := f.failDelete[stageID]; err != nil {
		return err
	}
	if _, ok := f.stages[stageID]; !ok {
		return errors.New("stage not found")
	}
	delete(f.stages, stageID)
	return nil
}

func (f *fakeStageStore) ListByTemplate(ctx context.Context, templateID string) ([]*models.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Stage
	for _, s := range f.stages {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOffset != out[j].DayOffset {
			return out[i].DayOffset < out[j].DayOffset
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestSyncer() (*Syncer, *fakeTemplateStore, *fakeStageStore) {
	templates := newFakeTemplateStore()
	stages := newFakeStageStore()
	return NewSyncer(templates, stages, 0, testLogger()), templates, stages
}

func TestSave_NewTemplateCreatesEverything(t *testing.T) {
	syncer, templates, stages := newTestSyncer()

	doc := schedule.NewDocument("site-1")
	doc.Name = "Sourdough week"
	day := doc.Days[0]
	mix, err := schedule.AddStage(doc, day.ID)
	require.NoError(t, err)
	mix.Name = "Mix"
	prove, err := schedule.AddStage(doc, day.ID)
	require.NoError(t, err)
	prove.Name = "Prove"

	snap := NewSnapshot()
	report, err := syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.True(t, report.Ok())

	assert.Equal(t, 1, templates.creates)
	assert.Equal(t, 2, stages.creates)
	assert.NotEmpty(t, doc.TemplateID)

	// temporary ids were replaced by the ids the store assigned
	assert.True(t, mix.ID.IsPersisted())
	assert.True(t, prove.ID.IsPersisted())
	assert.False(t, mix.IsNew())

	// the snapshot now mirrors the persisted state
	assert.Len(t, snap.Stages, 2)
	assert.Equal(t, "Sourdough week", snap.Name)
}

func TestSave_UnchangedDocumentIssuesNoCalls(t *testing.T) {
	syncer, templates, stages := newTestSyncer()

	doc, snap := persistedDoc(t, syncer)
	templatesBefore, updatesBefore := templates.updates, stages.updates

	report, err := syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.True(t, report.Ok())
	assert.Empty(t, report.Items)
	assert.Equal(t, templatesBefore, templates.updates)
	assert.Equal(t, updatesBefore, stages.updates)
	assert.Equal(t, 0, stages.deletes)
}

func TestSave_DeletedStageIssuesExactlyOneDelete(t *testing.T) {
	syncer, _, stages := newTestSyncer()

	doc, snap := persistedDoc(t, syncer)
	day := doc.Days[0]
	target := day.VisibleStages()[0]
	targetID := target.ID.Value()
	require.NoError(t, schedule.DeleteStage(doc, day.ID, targetID))

	createsBefore := stages.creates
	report, err := syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.True(t, report.Ok())

	deletes := 0
	for _, item := range report.Items {
		switch item.Kind {
		case ItemKindDelete:
			deletes++
			assert.Equal(t, targetID, item.StageID)
		case ItemKindCreate:
			t.Fatalf("unexpected create for %q", item.StageName)
		}
	}
	assert.Equal(t, 1, deletes)
	assert.Equal(t, 1, stages.deletes)
	assert.Equal(t, createsBefore, stages.creates)

	// the delete is confirmed: tombstone purged, snapshot entry gone
	_, inSnap := snap.Stages[targetID]
	assert.False(t, inSnap)
	for _, s := range doc.AllStages() {
		assert.NotEqual(t, targetID, s.ID.Value())
	}
}

func TestSave_RemovedDayStillDeletesItsStages(t *testing.T) {
	syncer, _, stages := newTestSyncer()

	doc, snap := persistedDoc(t, syncer)
	schedule.AddDay(doc)
	firstDay := doc.Days[0]
	var persistedIDs []string
	for _, s := range firstDay.VisibleStages() {
		persistedIDs = append(persistedIDs, s.ID.Value())
		require.NoError(t, schedule.DeleteStage(doc, firstDay.ID, s.ID.Value()))
	}
	require.NoError(t, schedule.RemoveDay(doc, firstDay.ID))

	report, err := syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.True(t, report.Ok())
	assert.Equal(t, len(persistedIDs), stages.deletes)
	for _, id := range persistedIDs {
		_, inSnap := snap.Stages[id]
		assert.False(t, inSnap)
	}
}

func TestSave_MovePersistsSequenceAndOffset(t *testing.T) {
	syncer, _, stages := newTestSyncer()

	doc, snap := persistedDoc(t, syncer)
	day := doc.Days[0]
	visible := day.VisibleStages()
	require.Len(t, visible, 2)
	moved := visible[1]

	require.NoError(t, schedule.MoveStage(doc, moved.ID.Value(), day.ID, 0))

	report, err := syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.True(t, report.Ok())

	// both stages changed sequence, both get updated
	assert.Equal(t, 2, stages.updates)
	stored := stages.stages[moved.ID.Value()]
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.Sequence)
}

func TestSave_PartialFailureRetriesOnlyFailedItems(t *testing.T) {
	syncer, _, stages := newTestSyncer()

	doc, snap := persistedDoc(t, syncer)
	day := doc.Days[0]
	visible := day.VisibleStages()
	first, second := visible[0], visible[1]

	name := "Chill"
	_, err := schedule.UpdateStage(doc, day.ID, first.ID.Value(), models.StagePatch{Name: &name})
	require.NoError(t, err)
	name = "Shape"
	_, err = schedule.UpdateStage(doc, day.ID, second.ID.Value(), models.StagePatch{Name: &name})
	require.NoError(t, err)

	stages.failUpdate[second.ID.Value()] = errors.New("connection reset")

	report, err := syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.False(t, report.Ok())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, second.ID.Value(), report.Failed()[0].StageID)
	assert.Equal(t, "connection reset", report.Failed()[0].Error)

	// the failed stage is the only difference left against the snapshot
	delete(stages.failUpdate, second.ID.Value())
	updatesBefore := stages.updates

	report, err = syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.True(t, report.Ok())
	require.Len(t, report.Items, 1)
	assert.Equal(t, second.ID.Value(), report.Items[0].StageID)
	assert.Equal(t, updatesBefore+1, stages.updates)
}

func TestSave_MetadataCreateFailureShortCircuits(t *testing.T) {
	syncer, templates, stages := newTestSyncer()
	templates.failCreate = errors.New("unique violation")

	doc := schedule.NewDocument("site-1")
	doc.Name = "Dupe"
	_, err := schedule.AddStage(doc, doc.Days[0].ID)
	require.NoError(t, err)

	report, err := syncer.Save(context.Background(), doc, NewSnapshot())
	require.NoError(t, err)
	assert.False(t, report.Ok())
	require.Len(t, report.Items, 1)
	assert.Equal(t, ItemKindMetadata, report.Items[0].Kind)
	assert.Equal(t, 0, stages.creates, "stage writes need a template id")
	assert.Empty(t, doc.TemplateID)
}

func TestSave_MetadataUpdateOnlyWhenChanged(t *testing.T) {
	syncer, templates, _ := newTestSyncer()

	doc, snap := persistedDoc(t, syncer)
	doc.Name = "Renamed"

	report, err := syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.True(t, report.Ok())
	assert.Equal(t, 1, templates.updates)
	assert.Equal(t, "Renamed", snap.Name)

	_, err = syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	assert.Equal(t, 1, templates.updates, "an unchanged name owes no call")
}

func TestSave_NamelessNewStageGetsPositionalName(t *testing.T) {
	syncer, _, stages := newTestSyncer()

	doc := schedule.NewDocument("site-1")
	doc.Name = "Baguettes"
	s, err := schedule.AddStage(doc, doc.Days[0].ID)
	require.NoError(t, err)
	require.Empty(t, s.Name)

	report, err := syncer.Save(context.Background(), doc, NewSnapshot())
	require.NoError(t, err)
	require.True(t, report.Ok())

	stored := stages.stages[s.ID.Value()]
	require.NotNil(t, stored)
	assert.Equal(t, "Step 1", stored.Name)
}

func TestSaveThenReload_RoundTrips(t *testing.T) {
	syncer, templates, stages := newTestSyncer()

	doc := schedule.NewDocument("site-1")
	doc.Name = "Rye"
	schedule.AddDay(doc)
	dayOne, dayTwo := doc.Days[0], doc.Days[1]
	for _, name := range []string{"Levain", "Mix"} {
		s, err := schedule.AddStage(doc, dayOne.ID)
		require.NoError(t, err)
		s.Name = name
	}
	bake, err := schedule.AddStage(doc, dayTwo.ID)
	require.NoError(t, err)
	bake.Name = "Bake"

	report, err := syncer.Save(context.Background(), doc, NewSnapshot())
	require.NoError(t, err)
	require.True(t, report.Ok())

	tpl, err := templates.Get(context.Background(), doc.TemplateID)
	require.NoError(t, err)
	persisted, err := stages.ListByTemplate(context.Background(), doc.TemplateID)
	require.NoError(t, err)

	reloaded := schedule.HydrateDocument(tpl, persisted)

	require.Len(t, reloaded.Days, len(doc.Days))
	for i, day := range doc.Days {
		reloadedDay := reloaded.Days[i]
		assert.Equal(t, day.Offset, reloadedDay.Offset)
		require.Equal(t, day.VisibleCount(), reloadedDay.VisibleCount())
		for j, s := range day.VisibleStages() {
			got := reloadedDay.VisibleStages()[j]
			assert.Equal(t, s.Name, got.Name)
			assert.Equal(t, s.Sequence, got.Sequence)
			assert.Equal(t, s.DayOffset, got.DayOffset)
		}
	}
}

func TestStageChanged(t *testing.T) {
	base := func() *models.Stage {
		dur := 2.0
		return &models.Stage{
			ID:            models.PersistedStageID("s1"),
			Name:          "Mix",
			Sequence:      1,
			DayOffset:     -1,
			DurationHours: &dur,
			BakeGroupIDs:  []string{"g1"},
		}
	}

	assert.False(t, stageChanged(base(), base()))

	renamed := base()
	renamed.Name = "Mix dough"
	assert.True(t, stageChanged(renamed, base()))

	moved := base()
	moved.Sequence = 2
	assert.True(t, stageChanged(moved, base()))

	cleared := base()
	cleared.DurationHours = nil
	assert.True(t, stageChanged(cleared, base()))

	regrouped := base()
	regrouped.BakeGroupIDs = []string{"g1", "g2"}
	assert.True(t, stageChanged(regrouped, base()))
}

// persistedDoc saves a fresh two-stage document so the caller starts from a
// clean persisted state with a matching snapshot.
func persistedDoc(t *testing.T, syncer *Syncer) (*schedule.Document, *Snapshot) {
	t.Helper()
	doc := schedule.NewDocument("site-1")
	doc.Name = "Sourdough week"
	day := doc.Days[0]
	for _, name := range []string{"Mix", "Bake"} {
		s, err := schedule.AddStage(doc, day.ID)
		require.NoError(t, err)
		s.Name = name
	}

	snap := NewSnapshot()
	report, err := syncer.Save(context.Background(), doc, snap)
	require.NoError(t, err)
	require.True(t, report.Ok())
	return doc, snap
}
