package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"retail-dashboard/internal/aggregate"
	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
)

// controlsFromQuery reads mode, country, product, start and end. Empty
// dates are left zero for the service to default.
func controlsFromQuery(q url.Values) (models.Controls, error) {
	return buildControls(q.Get("mode"), q.Get("country"), q.Get("product"), q.Get("start"), q.Get("end"))
}

func buildControls(mode, country, product, start, end string) (models.Controls, error) {
	c := models.Controls{
		Mode:    models.Mode(strings.TrimSpace(mode)),
		Country: country,
		Product: product,
	}

	var err error
	if c.Start, err = parseDay(start); err != nil {
		return c, errors.ValidationWrap(err, "start must be a date formatted YYYY-MM-DD")
	}
	if c.End, err = parseDay(end); err != nil {
		return c, errors.ValidationWrap(err, "end must be a date formatted YYYY-MM-DD")
	}
	return c, nil
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// writeServiceError maps service failures onto the error envelope. Requests
// the client abandoned get no body.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	requestID := observability.GetRequestID(r.Context())

	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
	case stderrors.Is(err, context.Canceled):
		logger.DebugContext(r.Context(), "request cancelled by client")
		return
	case stderrors.Is(err, aggregate.ErrInvalidControls):
		appErr = errors.ValidationWrap(err, "invalid analysis controls")
	case stderrors.Is(err, services.ErrNotLoaded):
		appErr = errors.ServiceUnavailable("dataset is not loaded")
	case stderrors.Is(err, context.DeadlineExceeded):
		appErr = errors.Wrap(err, errors.CodeServiceUnavail, "analysis timed out")
	default:
		appErr = errors.InternalWrap(err, "analysis failed")
	}

	errors.WriteError(w, r, logger, appErr, requestID)
}
