package scheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medibook/booking/internal/domain/identity"
	"github.com/medibook/booking/internal/platform/auth"
	"github.com/medibook/booking/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments")
	g.POST("", h.RequestAppointment, auth.RequireRole(string(identity.RolePatient)))
	g.GET("", h.ListAppointments)
	g.GET("/:id", h.GetAppointment)
	g.GET("/:id/history", h.GetHistory)
	g.POST("/:id/approve", h.transitionHandler(ActionApprove))
	g.POST("/:id/reject", h.transitionHandler(ActionReject))
	g.POST("/:id/cancel", h.transitionHandler(ActionCancel))
}

// httpError maps an engine error kind to a status code.
func httpError(err error) error {
	switch Kind(err) {
	case ErrValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case ErrUnauthorized:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case ErrNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case ErrInvalidTransition:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case ErrStorage:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type requestAppointmentRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Reason   string    `json:"reason"`
}

func (h *Handler) RequestAppointment(c echo.Context) error {
	actor, err := identity.RequireActor(c)
	if err != nil {
		return err
	}
	var req requestAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	at, err := ParseTimeOfDay(req.Time)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.RequestAppointment(c.Request().Context(), actor, req.DoctorID, date, at, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	actor, err := identity.RequireActor(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListForUser(c.Request().Context(), actor)
	if err != nil {
		return httpError(err)
	}
	if s := c.QueryParam("status"); s != "" {
		st, err := ParseStatus(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		items = filterStatus(items, st)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func filterStatus(items []*Appointment, st Status) []*Appointment {
	f := AppointmentFilter{Statuses: []Status{st}}
	out := make([]*Appointment, 0, len(items))
	for _, a := range items {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

type appointmentDetail struct {
	Appointment    *Appointment `json:"appointment"`
	AllowedActions []Action     `json:"allowed_actions"`
}

func (h *Handler) GetAppointment(c echo.Context) error {
	actor, err := identity.RequireActor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appointmentDetail{Appointment: a, AllowedActions: AllowedActions(actor, a)})
}

func (h *Handler) GetHistory(c echo.Context) error {
	actor, err := identity.RequireActor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	history, err := h.svc.History(c.Request().Context(), id, actor)
	if err != nil {
		return httpError(err)
	}
	if history == nil {
		history = []StatusChange{}
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) transitionHandler(action Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := identity.RequireActor(c)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		a, err := h.svc.Transition(c.Request().Context(), id, actor, action)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, a)
	}
}
