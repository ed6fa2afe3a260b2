package template

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/fernwood/rye/internal/repositories/stage"
	"github.com/fernwood/rye/internal/repositories/template"
	"github.com/fernwood/rye/pkg/appcontext"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Register registers template routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.DELETE("/:id", Archive)
}

// List returns all non-archived templates for the site
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "template_handler.List")
	defer span.End()

	siteID := appcontext.GetSiteID(ctx)
	if siteID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "site_id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*template.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.List(ctx, siteID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.TemplateListResponse{Items: items})
}

// Create creates a bare template header
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "template_handler.Create")
	defer span.End()

	siteID := appcontext.GetSiteID(ctx)
	if siteID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "site_id is required")
	}

	var req models.CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*template.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Create(ctx, siteID, req.Name, req.Description)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, models.TemplateResponse{Template: *result})
}

// Get returns a template with its stages
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "template_handler.Get")
	defer span.End()

	id := c.Param("id")

	ctx, templates, err := ectoinject.GetContext[*template.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	tpl, err := templates.Get(ctx, id)
	if err != nil {
		return err
	}

	ctx, stages, err := ectoinject.GetContext[*stage.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	stageList, err := stages.ListByTemplate(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.TemplateResponse{Template: *tpl, Stages: stageList})
}

// Archive archives a template and removes its stages
func Archive(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "template_handler.Archive")
	defer span.End()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*template.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Archive(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
