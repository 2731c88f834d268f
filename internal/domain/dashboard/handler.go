package dashboard

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medibook/booking/internal/domain/identity"
	"github.com/medibook/booking/internal/domain/scheduling"
)

type Handler struct {
	agg *Aggregator
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.GetDashboard)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	actor, err := identity.RequireActor(c)
	if err != nil {
		return err
	}
	s, err := h.agg.Summary(c.Request().Context(), actor)
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrUnauthorized):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, scheduling.ErrStorage):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}
