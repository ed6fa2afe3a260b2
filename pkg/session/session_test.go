package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/reconcile"
	"github.com/fernwood/rye/pkg/schedule"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type fakeTemplateStore struct {
	mu        sync.Mutex
	templates map[string]*models.Template
	failGet   error
}

func newFakeTemplateStore() *fakeTemplateStore {
	return &fakeTemplateStore{templates: map[string]*models.Template{}}
}

func (f *fakeTemplateStore) Create(ctx context.Context, siteID, name, description string) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	if f.failGet != nil {
		return nil, f.failGet
	}
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
	failUpdate map[string]error
}

func newFakeStageStore() *fakeStageStore {
	return &fakeStageStore{
		stages:     map[string]*models.Stage{},
		failUpdate: map[string]error{},
	}
}

func (f *fakeStageStore) Create(ctx context.Context, templateID string, stage *models.Stage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	if err := f.failUpdate[stageID]; err != nil {
		return err
	}
	stored := stage.Clone()
	stored.ID = models.PersistedStageID(stageID)
	f.stages[stageID] = stored
	return nil
}

func (f *fakeStageStore) Delete(ctx context.Context, stageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	return out, nil
}

func newTestStack() (*fakeTemplateStore, *fakeStageStore, *reconcile.Syncer, ectologger.Logger) {
	logger := testLogger()
	templates := newFakeTemplateStore()
	stages := newFakeStageStore()
	return templates, stages, reconcile.NewSyncer(templates, stages, 0, logger), logger
}

func TestNewSession_StartsClean(t *testing.T) {
	_, _, syncer, logger := newTestStack()

	sess := NewSession("site-1", syncer, logger)

	assert.False(t, sess.IsDirty())
	assert.Empty(t, sess.TemplateID())
	require.Len(t, sess.Document().Days, 1)
}

func TestSession_MutationsMarkDirty(t *testing.T) {
	_, _, syncer, logger := newTestStack()
	sess := NewSession("site-1", syncer, logger)

	sess.SetMetadata("Sourdough week", "")
	assert.True(t, sess.IsDirty())
}

func TestSession_UnchangedMetadataStaysClean(t *testing.T) {
	_, _, syncer, logger := newTestStack()
	sess := NewSession("site-1", syncer, logger)
	sess.SetMetadata("Sourdough week", "")
	saveOK(t, sess)

	sess.SetMetadata("Sourdough week", "")
	assert.False(t, sess.IsDirty())
}

func TestSession_ValidationFailureStaysClean(t *testing.T) {
	_, _, syncer, logger := newTestStack()
	sess := NewSession("site-1", syncer, logger)

	err := sess.RemoveDay(sess.Document().Days[0].ID)
	require.Error(t, err)
	assert.True(t, schedule.IsValidationError(err))
	assert.False(t, sess.IsDirty())
}

func TestSession_SaveCleanIsNoop(t *testing.T) {
	templates, _, syncer, logger := newTestStack()
	sess := NewSession("site-1", syncer, logger)

	report, err := sess.Save(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Empty(t, templates.templates, "a clean session owes the store nothing")
}

func TestSession_SaveClearsDirtyAndAssignsTemplateID(t *testing.T) {
	_, _, syncer, logger := newTestStack()
	sess := NewSession("site-1", syncer, logger)
	sess.SetMetadata("Sourdough week", "The weekly run")
	_, err := sess.AddStage(sess.Document().Days[0].ID)
	require.NoError(t, err)

	report, err := sess.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Ok())
	assert.False(t, sess.IsDirty())
	assert.NotEmpty(t, sess.TemplateID())
}

func TestSession_PartialFailureStaysDirty(t *testing.T) {
	_, stages, syncer, logger := newTestStack()
	sess := NewSession("site-1", syncer, logger)
	sess.SetMetadata("Sourdough week", "")
	day := sess.Document().Days[0]
	_, err := sess.AddStage(day.ID)
	require.NoError(t, err)
	saveOK(t, sess)

	stage := day.VisibleStages()[0]
	name := "Mix"
	_, err = sess.UpdateStage(day.ID, stage.ID.Value(), models.StagePatch{Name: &name})
	require.NoError(t, err)

	stages.failUpdate[stage.ID.Value()] = errors.New("connection reset")
	report, err := sess.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Ok())
	assert.True(t, sess.IsDirty(), "a failed subset keeps the session dirty")

	delete(stages.failUpdate, stage.ID.Value())
	report, err = sess.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Ok())
	require.Len(t, report.Items, 1, "only the failed item is retried")
	assert.False(t, sess.IsDirty())
}

func TestLoadSession_HydratesCleanSession(t *testing.T) {
	templates, stages, syncer, logger := newTestStack()

	authored := NewSession("site-1", syncer, logger)
	authored.SetMetadata("Rye", "")
	day := authored.Document().Days[0]
	s, err := authored.AddStage(day.ID)
	require.NoError(t, err)
	name := "Mix"
	_, err = authored.UpdateStage(day.ID, s.ID.Value(), models.StagePatch{Name: &name})
	require.NoError(t, err)
	saveOK(t, authored)

	sess, err := LoadSession(context.Background(), authored.TemplateID(), templates, stages, syncer, logger)
	require.NoError(t, err)

	assert.False(t, sess.IsDirty())
	assert.Equal(t, authored.TemplateID(), sess.TemplateID())
	assert.Equal(t, "Rye", sess.Document().Name)
	require.Equal(t, 1, sess.Document().VisibleStageCount())
	loaded := sess.Document().Days[0].VisibleStages()[0]
	assert.Equal(t, "Mix", loaded.Name)
	assert.False(t, loaded.IsNew())
}

func TestLoadSession_FetchFailureReturnsNoSession(t *testing.T) {
	templates, stages, syncer, logger := newTestStack()
	templates.failGet = errors.New("connection refused")

	sess, err := LoadSession(context.Background(), "tpl-1", templates, stages, syncer, logger)
	require.Error(t, err)
	assert.Nil(t, sess)
}

func TestManager_OpenGetSaveClose(t *testing.T) {
	templates, stages, syncer, logger := newTestStack()
	manager := NewManager(templates, stages, syncer, nil, nil, 0, logger)

	id, sess, err := manager.Open(context.Background(), "site-1")
	require.NoError(t, err)
	require.NotNil(t, sess)

	got, err := manager.Get(id)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	sess.SetMetadata("Sourdough week", "")
	report, err := manager.Save(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, report.Ok())
	assert.False(t, sess.IsDirty())

	require.NoError(t, manager.Close(context.Background(), id))
	_, err = manager.Get(id)
	require.Error(t, err)
}

func TestManager_OpenTemplate(t *testing.T) {
	templates, stages, syncer, logger := newTestStack()
	manager := NewManager(templates, stages, syncer, nil, nil, 0, logger)

	id, sess, err := manager.Open(context.Background(), "site-1")
	require.NoError(t, err)
	sess.SetMetadata("Rye", "")
	_, err = manager.Save(context.Background(), id)
	require.NoError(t, err)
	templateID := sess.TemplateID()
	require.NoError(t, manager.Close(context.Background(), id))

	id2, reopened, err := manager.OpenTemplate(context.Background(), templateID)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
	assert.Equal(t, templateID, reopened.TemplateID())
	assert.False(t, reopened.IsDirty())
}

func TestManager_UnknownSession(t *testing.T) {
	templates, stages, syncer, logger := newTestStack()
	manager := NewManager(templates, stages, syncer, nil, nil, 0, logger)

	_, err := manager.Get("nope")
	require.Error(t, err)
	_, err = manager.Save(context.Background(), "nope")
	require.Error(t, err)
	require.Error(t, manager.Close(context.Background(), "nope"))
}

func saveOK(t *testing.T, sess *Session) {
	t.Helper()
	report, err := sess.Save(context.Background())
	require.NoError(t, err)
	require.True(t, report.Ok())
}
