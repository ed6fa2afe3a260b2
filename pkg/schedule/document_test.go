package schedule

import (
	"testing"

	"github.com/fernwood/rye/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrateDocument_GroupsByOffset(t *testing.T) {
	tpl := &models.Template{ID: "tpl-1", SiteID: "site-1", Name: "Rye", Description: "Weekly rye run"}
	stages := []*models.Stage{
		{ID: models.PersistedStageID("s3"), Name: "Bake", Sequence: 1, DayOffset: 0},
		{ID: models.PersistedStageID("s1"), Name: "Mix", Sequence: 1, DayOffset: -1},
		{ID: models.PersistedStageID("s2"), Name: "Prove", Sequence: 2, DayOffset: -1},
	}

	doc := HydrateDocument(tpl, stages)

	assert.Equal(t, "tpl-1", doc.TemplateID)
	assert.Equal(t, "Rye", doc.Name)
	require.Len(t, doc.Days, 2)

	dayOne := doc.Days[0]
	assert.Equal(t, -1, dayOne.Offset)
	require.Len(t, dayOne.Stages, 2)
	assert.Equal(t, "Mix", dayOne.Stages[0].Name)
	assert.Equal(t, "Prove", dayOne.Stages[1].Name)

	dayTwo := doc.Days[1]
	assert.Equal(t, 0, dayTwo.Offset)
	require.Len(t, dayTwo.Stages, 1)
	assert.Equal(t, "Bake", dayTwo.Stages[0].Name)
}

func TestHydrateDocument_CollapsesOffsetGaps(t *testing.T) {
	tpl := &models.Template{ID: "tpl-1", SiteID: "site-1"}
	// offsets -3 and 0 with nothing in between: the emptied days collapse
	stages := []*models.Stage{
		{ID: models.PersistedStageID("s1"), Name: "Levain", Sequence: 1, DayOffset: -3},
		{ID: models.PersistedStageID("s2"), Name: "Bake", Sequence: 1, DayOffset: 0},
	}

	doc := HydrateDocument(tpl, stages)

	require.Len(t, doc.Days, 2)
	assert.Equal(t, -1, doc.Days[0].Offset)
	assert.Equal(t, -1, doc.Days[0].Stages[0].DayOffset)
	assert.Equal(t, 0, doc.Days[1].Offset)
}

func TestHydrateDocument_ResequencesGaps(t *testing.T) {
	tpl := &models.Template{ID: "tpl-1", SiteID: "site-1"}
	stages := []*models.Stage{
		{ID: models.PersistedStageID("s1"), Name: "Mix", Sequence: 2, DayOffset: 0},
		{ID: models.PersistedStageID("s2"), Name: "Bake", Sequence: 7, DayOffset: 0},
	}

	doc := HydrateDocument(tpl, stages)

	visible := doc.Days[0].VisibleStages()
	require.Len(t, visible, 2)
	assert.Equal(t, 1, visible[0].Sequence)
	assert.Equal(t, 2, visible[1].Sequence)
	assert.Equal(t, "Mix", visible[0].Name)
}

func TestHydrateDocument_NoStages(t *testing.T) {
	tpl := &models.Template{ID: "tpl-1", SiteID: "site-1"}

	doc := HydrateDocument(tpl, nil)

	require.Len(t, doc.Days, 1)
	assert.Equal(t, 0, doc.Days[0].Offset)
}

func TestDocument_FindStageSkipsTombstones(t *testing.T) {
	doc := hydratedTwoStageDoc(t)
	day := doc.Days[0]
	require.NoError(t, DeleteStage(doc, day.ID, "stage-1"))

	foundDay, stage := doc.FindStage("stage-1")
	assert.Nil(t, foundDay)
	assert.Nil(t, stage)

	foundDay, stage = doc.FindStage("stage-2")
	require.NotNil(t, stage)
	assert.Equal(t, day, foundDay)
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	doc := hydratedTwoStageDoc(t)
	clone := doc.Clone()

	name := "Chill"
	_, err := UpdateStage(doc, doc.Days[0].ID, "stage-1", models.StagePatch{Name: &name})
	require.NoError(t, err)
	AddDay(doc)

	assert.Len(t, clone.Days, 1)
	assert.Equal(t, "Mix", clone.Days[0].Stages[0].Name)
	assert.Equal(t, 0, clone.Days[0].Offset)
}
