package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medibook/booking/internal/platform/auth"
)

// ErrNoActor is returned when a request carries no usable identity.
var ErrNoActor = errors.New("no authenticated actor")

// ActorFromContext converts the identity left by the auth middleware into an
// Actor. Unknown roles and malformed ids are rejected.
func ActorFromContext(ctx context.Context) (Actor, error) {
	rawID := auth.UserIDFromContext(ctx)
	if rawID == "" {
		return Actor{}, ErrNoActor
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Actor{}, ErrNoActor
	}
	role, err := ParseRole(auth.RoleFromContext(ctx))
	if err != nil {
		return Actor{}, ErrNoActor
	}
	return Actor{ID: id, Role: role}, nil
}

// RequireActor resolves the request's Actor or answers 401.
func RequireActor(c echo.Context) (Actor, error) {
	actor, err := ActorFromContext(c.Request().Context())
	if err != nil {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return actor, nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/me", h.GetMe)
	api.PUT("/me", h.UpdateMe)

	users := api.Group("/users", auth.RequireRole(string(RoleAdmin)))
	users.POST("", h.CreateUser)
	users.GET("", h.ListUsers)
	users.GET("/:id", h.GetUser)
}

func (h *Handler) GetMe(c echo.Context) error {
	actor, err := RequireActor(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

type updateMeRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *Handler) UpdateMe(c echo.Context) error {
	actor, err := RequireActor(c)
	if err != nil {
		return err
	}
	var req updateMeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Rename(c.Request().Context(), actor.ID, req.DisplayName); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.GetUser(c.Request().Context(), actor.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var u User
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateUser(c.Request().Context(), &u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	role, err := ParseRole(c.QueryParam("role"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	users, err := h.svc.ListByRole(c.Request().Context(), role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if users == nil {
		users = []*User{}
	}
	return c.JSON(http.StatusOK, users)
}
