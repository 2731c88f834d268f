package scheduling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medibook/booking/internal/domain/identity"
	"github.com/medibook/booking/internal/platform/auth"
)

func newRequest(method, target, body string, actor identity.Actor) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if !actor.IsZero() {
		req = req.WithContext(auth.WithIdentity(req.Context(), actor.ID.String(), string(actor.Role), ""))
	}
	return req
}

func expectHTTPStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestHandler_RequestAppointment(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()

	body := `{"doctor_id":"` + f.doctor.ID.String() + `","date":"2026-03-12","time":"3:00 PM","reason":"chest pain"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, "/appointments", body, f.patient), rec)
	if err := h.RequestAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusPending || got.Time.String() != "15:00" || got.PatientID != f.patient.ID {
		t.Errorf("unexpected appointment %+v", got)
	}
}

func TestHandler_RequestAppointment_Errors(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	doc := f.doctor.ID.String()

	tests := []struct {
		name  string
		body  string
		actor identity.Actor
		want  int
	}{
		{"bad date", `{"doctor_id":"` + doc + `","date":"12/03/2026","time":"10:00","reason":"x"}`, f.patient, http.StatusBadRequest},
		{"bad time", `{"doctor_id":"` + doc + `","date":"2026-03-12","time":"later","reason":"x"}`, f.patient, http.StatusBadRequest},
		{"past date", `{"doctor_id":"` + doc + `","date":"2026-03-10","time":"10:00","reason":"x"}`, f.patient, http.StatusBadRequest},
		{"empty reason", `{"doctor_id":"` + doc + `","date":"2026-03-12","time":"10:00","reason":""}`, f.patient, http.StatusBadRequest},
		{"doctor books", `{"doctor_id":"` + doc + `","date":"2026-03-12","time":"10:00","reason":"x"}`, f.doctor, http.StatusForbidden},
		{"anonymous", `{"doctor_id":"` + doc + `","date":"2026-03-12","time":"10:00","reason":"x"}`, identity.Actor{}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(newRequest(http.MethodPost, "/appointments", tt.body, tt.actor), httptest.NewRecorder())
			expectHTTPStatus(t, h.RequestAppointment(c), tt.want)
		})
	}
}

func TestHandler_TransitionStatusCodes(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	call := func(action Action, id string, actor identity.Actor) (*httptest.ResponseRecorder, error) {
		rec := httptest.NewRecorder()
		c := e.NewContext(newRequest(http.MethodPost, "/", "", actor), rec)
		c.SetParamNames("id")
		c.SetParamValues(id)
		return rec, h.transitionHandler(action)(c)
	}

	_, err := call(ActionApprove, a.ID.String(), f.patient)
	expectHTTPStatus(t, err, http.StatusForbidden)

	rec, err := call(ActionApprove, a.ID.String(), f.doctor)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	_, err = call(ActionReject, a.ID.String(), f.doctor)
	expectHTTPStatus(t, err, http.StatusConflict)

	_, err = call(ActionCancel, "d0c70000-0000-4000-8000-0000000000ff", f.patient)
	expectHTTPStatus(t, err, http.StatusNotFound)

	_, err = call(ActionCancel, "not-a-uuid", f.patient)
	expectHTTPStatus(t, err, http.StatusBadRequest)
}

func TestHandler_ListAppointments(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	for i := 1; i <= 3; i++ {
		f.book(t, f.patient, f.doctor.ID, i, NewTimeOfDay(9, 0))
	}
	f.book(t, f.patient2, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "/appointments?limit=2", "", f.patient), rec)
	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data    []Appointment `json:"data"`
		Total   int           `json:"total"`
		HasMore bool          `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || len(resp.Data) != 2 || !resp.HasMore {
		t.Errorf("unexpected page total=%d len=%d more=%v", resp.Total, len(resp.Data), resp.HasMore)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(newRequest(http.MethodGet, "/appointments?status=approved", "", f.doctor), rec)
	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 || len(resp.Data) != 0 {
		t.Errorf("expected no approved appointments, got %d", resp.Total)
	}

	c = e.NewContext(newRequest(http.MethodGet, "/appointments?status=done", "", f.doctor), httptest.NewRecorder())
	expectHTTPStatus(t, h.ListAppointments(c), http.StatusBadRequest)
}

func TestHandler_GetAppointment(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "/", "", f.doctor), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.GetAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var detail struct {
		Appointment    Appointment `json:"appointment"`
		AllowedActions []Action    `json:"allowed_actions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Appointment.ID != a.ID || len(detail.AllowedActions) != 2 {
		t.Errorf("unexpected detail %+v", detail)
	}

	c = e.NewContext(newRequest(http.MethodGet, "/", "", f.patient2), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	expectHTTPStatus(t, h.GetAppointment(c), http.StatusNotFound)
}

func TestHandler_GetHistory(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "/", "", f.patient), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.GetHistory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rows []StatusChange
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].To != StatusPending {
		t.Errorf("unexpected history %+v", rows)
	}
}

func TestHTTPError_StorageHidesDetail(t *testing.T) {
	err := httpError(ErrStorage)
	httpErr := err.(*echo.HTTPError)
	if httpErr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", httpErr.Code)
	}
	if httpErr.Message != "storage unavailable" {
		t.Errorf("unexpected message %v", httpErr.Message)
	}
}
