package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

type stageIDKind int

const (
	stageIDTemporary stageIDKind = iota + 1
	stageIDPersisted
)

// StageID is a discriminated stage identifier: either a session-local
// temporary id for a stage that has never been persisted, or the opaque id
// the store returned for a persisted stage. The two cases are distinguished
// by construction, not by inspecting the string.
type StageID struct {
	kind  stageIDKind
	value string
}

// NewTemporaryStageID mints a session-local id for a stage created in the
// current editing session.
func NewTemporaryStageID() StageID {
	return StageID{kind: stageIDTemporary, value: uuid.New().String()}
}

// PersistedStageID wraps an id returned by the stage store.
func PersistedStageID(id string) StageID {
	return StageID{kind: stageIDPersisted, value: id}
}

// IsPersisted reports whether the id refers to a stage the store knows about.
func (id StageID) IsPersisted() bool {
	return id.kind == stageIDPersisted
}

func (id StageID) IsZero() bool {
	return id.kind == 0
}

// Value returns the raw identifier string. Callers must not use it to decide
// persistence; use IsPersisted.
func (id StageID) Value() string {
	return id.value
}

func (id StageID) Equal(other StageID) bool {
	return id.kind == other.kind && id.value == other.value
}

func (id StageID) String() string {
	return id.value
}

func (id StageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}
