package group

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/fernwood/rye/internal/repositories/group"
	"github.com/fernwood/rye/pkg/appcontext"
	"github.com/fernwood/rye/pkg/models"
	"github.com/fernwood/rye/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers group directory routes
func Register(g *echo.Group) {
	g.GET("", List)
}

// List returns the site's production groups of the requested kind. The
// editing UI renders these as the membership pickers on a stage.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "group_handler.List")
	defer span.End()

	siteID := appcontext.GetSiteID(ctx)
	if siteID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "site_id is required")
	}

	kind := models.GroupKind(c.QueryParam("kind"))
	if kind != models.GroupKindBake && kind != models.GroupKindDestination {
		return httperror.NewHTTPError(http.StatusBadRequest, "kind must be 'bake' or 'destination'")
	}

	ctx, repo, err := ectoinject.GetContext[*group.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.List(ctx, siteID, kind)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.GroupListResponse{Items: items})
}
