package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/trigger"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/waveform"
)

// fakeAPI implements service.API on top of plain fields.
type fakeAPI struct {
	params     model.PulseParameters
	lastUpdate model.ParameterUpdate
	setCalls   int
	triggerErr error
	busy       bool
}

var _ service.API = (*fakeAPI)(nil)

func (f *fakeAPI) GetParameters(ctx context.Context) (model.PulseParameters, error) {
	return f.params, nil
}

func (f *fakeAPI) SetParameters(ctx context.Context, update model.ParameterUpdate) (model.PulseParameters, error) {
	f.setCalls++
	f.lastUpdate = update
	f.params = update.ApplyTo(f.params)
	return f.params, nil
}

func (f *fakeAPI) Trigger(ctx context.Context) error {
	return f.triggerErr
}

func (f *fakeAPI) Busy() bool {
	return f.busy
}

func newTestServer(api service.API) *server {
	return &server{
		log:        zerolog.Nop(),
		requestLog: zerolog.Nop(),
		api:        api,
	}
}

func postForm(t *testing.T, handler echo.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if err := handler(c); err != nil {
		c.Echo().HTTPErrorHandler(err, c)
	}
	return rec
}

func TestSetParamsPartialUpdate(t *testing.T) {
	api := &fakeAPI{params: model.DefaultPulseParameters()}
	s := newTestServer(api)

	rec := postForm(t, s.handleSetParams, url.Values{
		"p1h": []string{"42"},
		"p2l": []string{"7"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if api.setCalls != 1 {
		t.Fatalf("expected 1 SetParameters call, got %d", api.setCalls)
	}
	if api.lastUpdate.Pulse1High == nil || *api.lastUpdate.Pulse1High != 42 {
		t.Error("p1h not applied")
	}
	if api.lastUpdate.Pulse1Low != nil || api.lastUpdate.Pulse2High != nil {
		t.Error("absent fields must not be part of the update")
	}
	if api.lastUpdate.Pulse2Low == nil || *api.lastUpdate.Pulse2Low != 7 {
		t.Error("p2l not applied")
	}
}

// TestSetParamsRejectsPerField verifies that one malformed value does not
// block the valid fields of the same request.
func TestSetParamsRejectsPerField(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "banana"},
		{"negative", "-1"},
		{"too large", "4294967296"},
		{"empty", ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			api := &fakeAPI{params: model.DefaultPulseParameters()}
			s := newTestServer(api)

			rec := postForm(t, s.handleSetParams, url.Values{
				"p1h": []string{test.value},
				"p1l": []string{"13"},
			})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			// The valid field must still have been applied.
			if api.setCalls != 1 {
				t.Fatalf("expected 1 SetParameters call, got %d", api.setCalls)
			}
			if api.lastUpdate.Pulse1Low == nil || *api.lastUpdate.Pulse1Low != 13 {
				t.Error("valid field p1l not applied")
			}
			if api.lastUpdate.Pulse1High != nil {
				t.Error("malformed field p1h must not be applied")
			}
		})
	}
}

func TestSetParamsIgnoresUnknownKeys(t *testing.T) {
	api := &fakeAPI{params: model.DefaultPulseParameters()}
	s := newTestServer(api)

	rec := postForm(t, s.handleSetParams, url.Values{
		"frequency": []string{"1000"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if api.setCalls != 0 {
		t.Errorf("expected no SetParameters call, got %d", api.setCalls)
	}
}

func TestTriggerResponses(t *testing.T) {
	tests := []struct {
		name       string
		triggerErr error
		wantCode   int
	}{
		{"success", nil, http.StatusOK},
		{"busy", trigger.BusyError, http.StatusConflict},
		{"overflow", &waveform.OverflowError{Field: "p2l", Micros: 4000000000}, http.StatusUnprocessableEntity},
		{"hardware failure", context.DeadlineExceeded, http.StatusBadGateway},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			api := &fakeAPI{triggerErr: test.triggerErr}
			s := newTestServer(api)

			req := httptest.NewRequest(http.MethodGet, "/trigger", nil)
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)
			if err := s.handleTrigger(c); err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			if rec.Code != test.wantCode {
				t.Errorf("expected %d, got %d: %s", test.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetParams(t *testing.T) {
	api := &fakeAPI{params: model.PulseParameters{
		Pulse1High: 9, Pulse1Low: 2, Pulse2High: 4, Pulse2Low: 500,
	}}
	s := newTestServer(api)

	req := httptest.NewRequest(http.MethodGet, "/params", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if err := s.handleGetParams(c); err != nil {
		t.Fatalf("handleGetParams failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, fragment := range []string{`"p1h":9`, `"p1l":2`, `"p2h":4`, `"p2l":500`} {
		if !strings.Contains(body, fragment) {
			t.Errorf("response %q misses %s", body, fragment)
		}
	}
}
