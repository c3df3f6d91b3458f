package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const healthTimeout = 2 * time.Second

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, tasks Tasks, health Pinger, logger *log.Logger) {
	if logger == nil {
		panic("Logger is not initialized")
	}
	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = ErrorHandler(logger)

	g := e.Group("/tasks", observe(logger), decompressRequests())
	g.POST("", createTask(tasks, logger))
	g.GET("", listTasks(tasks, logger))
	g.GET("/:id", getTask(tasks, logger))
	g.PATCH("/:id", updateTask(tasks, logger))
	g.DELETE("/:id", deleteTask(tasks, logger))

	e.GET("/healthz", healthz(health, logger))
}

func healthz(health Pinger, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				logger.WithError(err).Warn("health check failed")
				return respond(c, http.StatusServiceUnavailable, msgStoreUnavailable, healthResponse{Status: "unavailable"})
			}
		}
		return respond(c, http.StatusOK, "ok", healthResponse{Status: "ok"})
	}
}

func createTask(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, err := decodeCreateTask(c.Request().Body)
		if err != nil {
			return respondError(c, logger, err)
		}
		start := time.Now()
		task, err := tasks.Create(c.Request().Context(), in)
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		metricsFrom(c).SetItemsReturned(1)
		return respond(c, http.StatusCreated, msgTaskCreated, task)
	}
}

func listTasks(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, err := parseListQuery(c.QueryParams())
		if err != nil {
			return respondError(c, logger, err)
		}
		start := time.Now()
		page, err := tasks.List(c.Request().Context(), in)
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		metricsFrom(c).SetItemsReturned(len(page.Items))
		return respond(c, http.StatusOK, msgTasksRetrieved, page)
	}
}

func getTask(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseTaskID(c.Param("id"))
		if !ok {
			return respondNotFound(c, c.Param("id"))
		}
		start := time.Now()
		task, err := tasks.Get(c.Request().Context(), id)
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		metricsFrom(c).SetItemsReturned(1)
		return respond(c, http.StatusOK, msgTaskRetrieved, task)
	}
}

func updateTask(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseTaskID(c.Param("id"))
		if !ok {
			return respondNotFound(c, c.Param("id"))
		}
		in, err := decodeUpdateTask(c.Request().Body)
		if err != nil {
			return respondError(c, logger, err)
		}
		start := time.Now()
		task, err := tasks.Update(c.Request().Context(), id, in)
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		metricsFrom(c).SetItemsReturned(1)
		return respond(c, http.StatusOK, msgTaskUpdated, task)
	}
}

func deleteTask(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseTaskID(c.Param("id"))
		if !ok {
			return respondNotFound(c, c.Param("id"))
		}
		start := time.Now()
		task, err := tasks.Delete(c.Request().Context(), id)
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		metricsFrom(c).SetItemsReturned(1)
		return respond(c, http.StatusOK, msgTaskDeleted, task)
	}
}
