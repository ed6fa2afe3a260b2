package reconcile

// ItemKind names the kind of write a save pass issued for one item.
type ItemKind string

const (
	ItemKindMetadata ItemKind = "metadata"
	ItemKindCreate   ItemKind = "create"
	ItemKindUpdate   ItemKind = "update"
	ItemKindDelete   ItemKind = "delete"
)

// Item is the outcome of one persistence call within a save pass.
type Item struct {
	Kind      ItemKind `json:"kind"`
	StageID   string   `json:"stage_id,omitempty"`
	StageName string   `json:"stage_name,omitempty"`
	Err       error    `json:"-"`
	Error     string   `json:"error,omitempty"`
}

// Report lists every persistence call a save pass issued and how each one
// fared. A partial failure never rolls local edits back; the failed subset
// is simply still dirty and the next save re-attempts it.
type Report struct {
	Items []Item `json:"items"`
}

// Ok reports whether every issued call succeeded.
func (r *Report) Ok() bool {
	for _, item := range r.Items {
		if item.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the items whose calls failed.
func (r *Report) Failed() []Item {
	var failed []Item
	for _, item := range r.Items {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

func (r *Report) add(kind ItemKind, stageID, stageName string, err error) {
	item := Item{
		Kind:      kind,
		StageID:   stageID,
		StageName: stageName,
		Err:       err,
	}
	if err != nil {
		item.Error = err.Error()
	}
	r.Items = append(r.Items, item)
}
