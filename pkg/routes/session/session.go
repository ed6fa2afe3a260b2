package session

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/fernwood/rye/pkg/appcontext"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/schedule"
	"github.com/fernwood/rye/pkg/session"
	"github.com/fernwood/rye/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Register registers editing session routes. These are the HTTP face of the
// session controller: every mutation is a discrete, already-resolved
// instruction and nothing is persisted until save.
func Register(g *echo.Group) {
	g.POST("", Open)
	g.GET("/:id", GetDocument)
	g.DELETE("/:id", Close)
	g.PUT("/:id/metadata", SetMetadata)
	g.POST("/:id/days", AddDay)
	g.DELETE("/:id/days/:dayId", RemoveDay)
	g.POST("/:id/days/:dayId/stages", AddStage)
	g.PATCH("/:id/days/:dayId/stages/:stageId", UpdateStage)
	g.DELETE("/:id/days/:dayId/stages/:stageId", DeleteStage)
	g.POST("/:id/moves", MoveStage)
	g.POST("/:id/save", Save)
}

// StageView is the wire shape of a stage in a session document. Tombstones
// are filtered out before this view is built.
type StageView struct {
	ID             string            `json:"id"`
	IsNew          bool              `json:"is_new"`
	Name           string            `json:"name"`
	Sequence       int               `json:"sequence"`
	DayOffset      int               `json:"day_offset"`
	DurationHours  *float64          `json:"duration_hours,omitempty"`
	IsOvernight    bool              `json:"is_overnight"`
	Instructions   string            `json:"instructions,omitempty"`
	TimeConstraint *models.TimeOfDay `json:"time_constraint,omitempty"`

	BakeGroupIDs        []string `json:"bake_group_ids"`
	DestinationGroupIDs []string `json:"destination_group_ids"`
}

// DayView is the wire shape of a day in a session document
type DayView struct {
	ID     string      `json:"id"`
	Number int         `json:"day_number"`
	Offset int         `json:"day_offset"`
	Stages []StageView `json:"stages"`
}

// DocumentResponse is the full session state the editing UI renders
type DocumentResponse struct {
	SessionID   string    `json:"session_id"`
	TemplateID  string    `json:"template_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Days        []DayView `json:"days"`
	Dirty       bool      `json:"dirty"`
}

// SaveResponse reports the outcome of a save pass
type SaveResponse struct {
	Saved  bool             `json:"saved"`
	Report *reconcileReport `json:"report"`
	Dirty  bool             `json:"dirty"`
}

type reconcileReport struct {
	Items []reconcileItem `json:"items"`
}

type reconcileItem struct {
	Kind      string `json:"kind"`
	StageID   string `json:"stage_id,omitempty"`
	StageName string `json:"stage_name,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Open opens a new editing session: a blank template for the site, or a
// persisted template when a template id is supplied.
func Open(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.Open")
	defer span.End()

	var req models.OpenSessionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get session manager")
	}

	var sessionID string
	var sess *session.Session
	if req.TemplateID != "" {
		sessionID, sess, err = manager.OpenTemplate(ctx, req.TemplateID)
	} else {
		siteID := appcontext.GetSiteID(ctx)
		if siteID == "" {
			return httperror.NewHTTPError(http.StatusUnauthorized, "site_id is required")
		}
		sessionID, sess, err = manager.Open(ctx, siteID)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, documentResponse(sessionID, sess))
}

// GetDocument returns the session's current document
func GetDocument(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.GetDocument")
	defer span.End()

	sessionID := c.Param("id")
	sess, err := getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, documentResponse(sessionID, sess))
}

// Close discards the session and releases its edit lease
func Close(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.Close")
	defer span.End()

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get session manager")
	}

	if err := manager.Close(ctx, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetMetadata updates the document's name and description
func SetMetadata(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.SetMetadata")
	defer span.End()

	var req models.SetMetadataRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sessionID := c.Param("id")
	sess, err := getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.SetMetadata(req.Name, req.Description)
	return c.JSON(http.StatusOK, documentResponse(sessionID, sess))
}

// AddDay appends a new delivery day
func AddDay(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.AddDay")
	defer span.End()

	sessionID := c.Param("id")
	sess, err := getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.AddDay()
	return c.JSON(http.StatusOK, documentResponse(sessionID, sess))
}

// RemoveDay removes an empty day
func RemoveDay(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.RemoveDay")
	defer span.End()

	sessionID := c.Param("id")
	sess, err := getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := sess.RemoveDay(c.Param("dayId")); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, documentResponse(sessionID, sess))
}

// AddStage appends a new stage to a day
func AddStage(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.AddStage")
	defer span.End()

	sessionID := c.Param("id")
	sess, err := getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if _, err := sess.AddStage(c.Param("dayId")); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, documentResponse(sessionID, sess))
}

// UpdateStage applies a partial update to a stage
func UpdateStage(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.UpdateStage")
	defer span.End()

	var req models.UpdateStageRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.TimeConstraint != nil {
		if _, err := models.ParseTimeOfDay(req.TimeConstraint.String()); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	sessionID := c.Param("id")
	sess, err := getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if _, err := sess.UpdateStage(c.Param("dayId"), c.Param("stageId"), req.StagePatch); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, documentResponse(sessionID, sess))
}

// DeleteStage removes a stage from a day
func DeleteStage(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.DeleteStage")
	defer span.End()

	sessionID := c.Param("id")
	sess, err := getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := sess.DeleteStage(c.Param("dayId"), c.Param("stageId")); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, documentResponse(sessionID, sess))
}

// MoveStage applies a resolved drag-and-drop instruction
func MoveStage(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.MoveStage")
	defer span.End()

	var req models.MoveStageRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sessionID := c.Param("id")
	sess, err := getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := sess.MoveStage(req.StageID, req.TargetDayID, req.TargetIndex); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, documentResponse(sessionID, sess))
}

// Save reconciles the session's edits with the store and reports per-item
// outcomes. A partial failure returns 200 with the failed items listed;
// nothing local is rolled back.
func Save(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "session_handler.Save")
	defer span.End()

	ctx, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get session manager")
	}

	sessionID := c.Param("id")
	report, err := manager.Save(ctx, sessionID)
	if err != nil {
		return err
	}

	sess, err := manager.Get(sessionID)
	if err != nil {
		return err
	}

	resp := SaveResponse{
		Saved: report.Ok(),
		Dirty: sess.IsDirty(),
		Report: &reconcileReport{
			Items: make([]reconcileItem, 0, len(report.Items)),
		},
	}
	for _, item := range report.Items {
		resp.Report.Items = append(resp.Report.Items, reconcileItem{
			Kind:      string(item.Kind),
			StageID:   item.StageID,
			StageName: item.StageName,
			Error:     item.Error,
		})
	}

	return c.JSON(http.StatusOK, resp)
}

func getSession(ctx context.Context, sessionID string) (*session.Session, error) {
	_, manager, err := ectoinject.GetContext[*session.Manager](ctx)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get session manager")
	}
	return manager.Get(sessionID)
}

func toHTTPError(err error) error {
	if verr, ok := err.(*schedule.ValidationError); ok {
		return verr.ToHTTPError()
	}
	return err
}

func documentResponse(sessionID string, sess *session.Session) DocumentResponse {
	doc := sess.Document()
	resp := DocumentResponse{
		SessionID:   sessionID,
		TemplateID:  doc.TemplateID,
		Name:        doc.Name,
		Description: doc.Description,
		Days:        make([]DayView, 0, len(doc.Days)),
		Dirty:       sess.IsDirty(),
	}
	for _, day := range doc.Days {
		view := DayView{
			ID:     day.ID,
			Number: day.Number,
			Offset: day.Offset,
			Stages: make([]StageView, 0, day.VisibleCount()),
		}
		for _, s := range day.VisibleStages() {
			view.Stages = append(view.Stages, StageView{
				ID:                  s.ID.Value(),
				IsNew:               s.IsNew(),
				Name:                s.Name,
				Sequence:            s.Sequence,
				DayOffset:           s.DayOffset,
				DurationHours:       s.DurationHours,
				IsOvernight:         s.IsOvernight,
				Instructions:        s.Instructions,
				TimeConstraint:      s.TimeConstraint,
				BakeGroupIDs:        s.BakeGroupIDs,
				DestinationGroupIDs: s.DestinationGroupIDs,
			})
		}
		resp.Days = append(resp.Days, view)
	}
	return resp
}
