package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/arsalyy/greeka-todo-api/domain"
)

func respond(c echo.Context, status int, message string, data any) error {
	m := metricsFrom(c)
	start := time.Now()
	err := c.JSON(status, envelope{Success: status < 400, Message: message, Data: data})
	m.ObserveEncode(time.Since(start))
	if err != nil {
		m.SetErrorStage("encode_response")
	}
	return err
}

// respondError maps a service error onto the envelope. Unexpected errors are
// logged and answered with a generic message.
func respondError(c echo.Context, logger *log.Logger, err error) error {
	m := metricsFrom(c)
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, errInvalidBody):
		m.SetErrorStage("decode")
		return respond(c, http.StatusBadRequest, msgInvalidBody, nil)
	case errors.As(err, &verr):
		m.SetErrorStage("validation")
		return respond(c, http.StatusBadRequest, verr.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		m.SetErrorStage("not_found")
		return respond(c, http.StatusNotFound, err.Error(), nil)
	}
	m.SetErrorStage("storage")
	m.Fail(err)
	if logger != nil {
		logger.WithFields(log.Fields{
			"method": c.Request().Method,
			"route":  c.Path(),
		}).WithError(err).Error("task request failed")
	}
	return respond(c, http.StatusInternalServerError, msgInternal, nil)
}

// respondNotFound answers for an id that cannot name any task.
func respondNotFound(c echo.Context, raw string) error {
	metricsFrom(c).SetErrorStage("not_found")
	return respond(c, http.StatusNotFound, fmt.Sprintf("Task with ID %s not found", raw), nil)
}

// ErrorHandler renders errors escaping the handlers, such as unknown routes,
// disallowed methods and rejected gzip bodies, inside the envelope.
func ErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		message := msgInternal
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				message = s
			} else {
				message = http.StatusText(code)
			}
		}
		if code >= 500 && logger != nil {
			logger.WithError(err).Error("unhandled request error")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, envelope{Success: false, Message: message, Data: nil})
	}
}
