package schedule

import (
	"sort"

	"github.com/fernwood/rye/pkg/models"
)

// Document is the in-memory aggregate for one template editing session:
// template metadata plus an ordered list of days. The last day is always the
// delivery day (offset 0); that is derived from position, never flagged.
//
// A document always has at least one day. It is mutated only through the
// engine operations in this package, which keep the sequence and offset
// invariants intact after every call.
type Document struct {
	TemplateID  string `json:"template_id,omitempty"`
	SiteID      string `json:"site_id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	Days []*models.Day `json:"days"`
}

// NewDocument creates an empty document for authoring a new template: one
// empty day at offset 0.
func NewDocument(siteID string) *Document {
	doc := &Document{
		SiteID: siteID,
		Days:   []*models.Day{models.NewDay()},
	}
	renumberDays(doc)
	return doc
}

// HydrateDocument rebuilds a document from a persisted template and its
// stage list. Stages are grouped by day offset into one day per distinct
// offset, ordered from furthest-out to delivery day, and the offsets are
// renumbered into a dense sequence so gaps left by emptied days collapse.
func HydrateDocument(tpl *models.Template, stages []*models.Stage) *Document {
	doc := &Document{
		TemplateID:  tpl.ID,
		SiteID:      tpl.SiteID,
		Name:        tpl.Name,
		Description: tpl.Description,
	}

	byOffset := map[int][]*models.Stage{}
	offsets := []int{}
	for _, s := range stages {
		if _, ok := byOffset[s.DayOffset]; !ok {
			offsets = append(offsets, s.DayOffset)
		}
		byOffset[s.DayOffset] = append(byOffset[s.DayOffset], s)
	}
	sort.Ints(offsets)

	for _, offset := range offsets {
		day := models.NewDay()
		group := byOffset[offset]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Sequence < group[j].Sequence
		})
		day.Stages = group
		doc.Days = append(doc.Days, day)
	}

	if len(doc.Days) == 0 {
		doc.Days = []*models.Day{models.NewDay()}
	}

	renumberDays(doc)
	for _, day := range doc.Days {
		resequence(day)
	}
	return doc
}

// Day returns the day with the given id, or nil.
func (d *Document) Day(dayID string) *models.Day {
	for _, day := range d.Days {
		if day.ID == dayID {
			return day
		}
	}
	return nil
}

// FindStage locates a non-deleted stage by id across all days.
func (d *Document) FindStage(stageID string) (*models.Day, *models.Stage) {
	for _, day := range d.Days {
		for _, s := range day.Stages {
			if !s.IsDeleted && s.ID.Value() == stageID {
				return day, s
			}
		}
	}
	return nil, nil
}

// AllStages returns every stage in document order, tombstones included.
// This is the view the reconciliation pass diffs against the snapshot.
func (d *Document) AllStages() []*models.Stage {
	var all []*models.Stage
	for _, day := range d.Days {
		all = append(all, day.Stages...)
	}
	return all
}

// VisibleStageCount returns the total number of non-deleted stages.
func (d *Document) VisibleStageCount() int {
	count := 0
	for _, day := range d.Days {
		count += day.VisibleCount()
	}
	return count
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	clone := &Document{
		TemplateID:  d.TemplateID,
		SiteID:      d.SiteID,
		Name:        d.Name,
		Description: d.Description,
		Days:        make([]*models.Day, 0, len(d.Days)),
	}
	for _, day := range d.Days {
		clone.Days = append(clone.Days, day.Clone())
	}
	return clone
}
