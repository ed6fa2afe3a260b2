package models

import "time"

// GroupKind distinguishes the two group directories a stage can reference.
type GroupKind string

const (
	// GroupKindBake groups products that are baked together (e.g. "Sourdough").
	GroupKindBake GroupKind = "bake"
	// GroupKindDestination groups delivery destinations (e.g. "Cafe fleet").
	GroupKindDestination GroupKind = "destination"
)

// Group is a read-only directory entry used to validate and display the
// group associations on a stage. Unknown ids referenced by a stage are
// treated as opaque.
type Group struct {
	ID        string    `json:"id" db:"id"`
	SiteID    string    `json:"site_id" db:"site_id"`
	Name      string    `json:"name" db:"name"`
	Kind      GroupKind `json:"kind" db:"kind"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
