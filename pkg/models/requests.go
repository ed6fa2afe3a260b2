package models

// CreateTemplateRequest creates a bare template header without opening an
// editing session.
type CreateTemplateRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"omitempty"`
}

// TemplateResponse wraps a single template
type TemplateResponse struct {
	Template Template `json:"template"`
	Stages   []*Stage `json:"stages,omitempty"`
}

// TemplateListResponse wraps a template listing
type TemplateListResponse struct {
	Items []*Template `json:"items"`
}

// GroupListResponse wraps a group directory listing
type GroupListResponse struct {
	Items []*Group `json:"items"`
}

// OpenSessionRequest opens an editing session. With a template id the
// persisted template is loaded; without one a new template is authored.
type OpenSessionRequest struct {
	TemplateID string `json:"template_id" validate:"omitempty,uuid"`
}

// SetMetadataRequest updates the session document's name and description
type SetMetadataRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"omitempty"`
}

// UpdateStageRequest carries a stage patch. TimeConstraint is validated as
// HH:MM in the handler before it reaches the engine.
type UpdateStageRequest struct {
	StagePatch
}

// MoveStageRequest is a fully resolved drag-and-drop instruction: the UI
// translates the pointer gesture into a stage id, target day and index.
type MoveStageRequest struct {
	StageID     string `json:"stage_id" validate:"required"`
	TargetDayID string `json:"target_day_id" validate:"required"`
	TargetIndex int    `json:"target_index"`
}
