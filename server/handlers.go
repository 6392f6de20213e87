package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/trigger"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/waveform"
)

// handleIndex renders the operator page.
func (s *server) handleIndex(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := s.api.GetParameters(ctx)
	if err != nil {
		return maskAny(err)
	}
	return s.renderPage(c, current)
}

// handleGetParams returns the current parameters in microseconds.
func (s *server) handleGetParams(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := s.api.GetParameters(ctx)
	if err != nil {
		return maskAny(err)
	}
	return c.JSON(http.StatusOK, current)
}

// handleSetParams applies a parameter update from form data.
// Unrecognized keys are ignored; malformed values are rejected per field
// without aborting the whole request.
func (s *server) handleSetParams(c echo.Context) error {
	ctx := c.Request().Context()
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form data")
	}

	var update model.ParameterUpdate
	var badFields []string
	parseField := func(key string, target **uint32) {
		if !values.Has(key) {
			return
		}
		raw := values.Get(key)
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			s.requestLog.Warn().
				Str("field", key).
				Str("value", raw).
				Msg("rejecting malformed parameter value")
			badFields = append(badFields, key)
			return
		}
		v := uint32(parsed)
		*target = &v
	}
	parseField("p1h", &update.Pulse1High)
	parseField("p1l", &update.Pulse1Low)
	parseField("p2h", &update.Pulse2High)
	parseField("p2l", &update.Pulse2Low)

	if !update.IsEmpty() {
		if _, err := s.api.SetParameters(ctx, update); err != nil {
			return maskAny(err)
		}
	}
	if len(badFields) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("invalid value for %s", strings.Join(badFields, ", ")))
	}
	return c.String(http.StatusOK, "Parameters Set!")
}

// handleTrigger requests a double pulse generation.
func (s *server) handleTrigger(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.api.Trigger(ctx); err != nil {
		var overflow *waveform.OverflowError
		switch {
		case trigger.IsBusy(err):
			return c.String(http.StatusConflict, "Busy!")
		case errors.As(err, &overflow):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, overflow.Error())
		default:
			s.requestLog.Error().Err(err).Msg("trigger failed")
			return echo.NewHTTPError(http.StatusBadGateway, "Failed to trigger DPT!")
		}
	}
	return c.String(http.StatusOK, "Triggered!")
}

func (s *server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *server) handleFavicon(c echo.Context) error {
	return c.NoContent(http.StatusNotFound)
}

var (
	maskAny = errors.WithStack
)
