package main

import (
	"context"
	"errors"
	"net/http"

	"cloud-hospital/queue/queue-tracker/pkg/config"
	"cloud-hospital/queue/queue-tracker/pkg/infra"
	"cloud-hospital/queue/queue-tracker/pkg/msg"
	"cloud-hospital/queue/queue-tracker/pkg/store"
	"cloud-hospital/queue/queue-tracker/pkg/viewer"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type TicketStateLoader interface {
	Load(ctx context.Context, queueId msg.QueueId) (*store.TicketState, error)
}

type errorResponse struct {
	Message string `json:"message"`
}

type Application struct {
	config     *config.Config
	hub        *viewer.Hub
	factory    viewer.SessionFactory
	saver      viewer.StateSaver
	loader     TicketStateLoader
	wsUpgrader *websocket.Upgrader
	logger     *zap.SugaredLogger
	viewerLog  *zap.SugaredLogger
}

func ProvideApplication(config *config.Config, hub *viewer.Hub, factory viewer.SessionFactory, saver viewer.StateSaver, loader TicketStateLoader, loggerFactory *infra.LoggerFactory) *Application {
	return &Application{
		config:     config,
		hub:        hub,
		factory:    factory,
		saver:      saver,
		loader:     loader,
		wsUpgrader: &websocket.Upgrader{},
		logger:     loggerFactory.Create("Application").Sugar(),
		viewerLog:  loggerFactory.Create("Viewer").Sugar(),
	}
}

func (a *Application) Run() {
	go a.hub.Run()
}

func (a *Application) Shutdown() {
	a.hub.Shutdown()
}

// HandleWs upgrades a browser connection and tracks the ticket named by
// the queue_id query param. The browser may switch tickets later on.
func (a *Application) HandleWs(c echo.Context) error {
	queueId := msg.QueueId(c.QueryParam("queue_id")).Normalize()
	conn, err := a.wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	v := viewer.NewViewer(conn, c.RealIP(), a.config.SendBufferSize(), a.hub, a.factory, a.saver, a.viewerLog)
	v.Run(queueId)
	return nil
}

// HandleTicketState serves the last view a viewer saw for a ticket.
func (a *Application) HandleTicketState(c echo.Context) error {
	queueId := msg.QueueId(c.Param("queueId")).Normalize()
	if queueId.IsEmpty() {
		return c.JSON(http.StatusBadRequest, &errorResponse{Message: msg.ErrMissingQueueId.Error()})
	}

	state, err := a.loader.Load(c.Request().Context(), queueId)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, &errorResponse{Message: "Queue not found"})
	}
	if err != nil {
		a.logger.Errorf("cannot load state of queueId[%v] %v", queueId, err)
		return c.JSON(http.StatusInternalServerError, &errorResponse{Message: "Failed to fetch queue details."})
	}

	return c.JSON(http.StatusOK, state)
}
