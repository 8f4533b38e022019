package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud-hospital/queue/queue-tracker/pkg/infra"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownWait = 10 * time.Second

type Server struct {
	application   *Application
	server        *http.Server
	loggerFactory *infra.LoggerFactory
	logger        *zap.SugaredLogger

	// Closed once Shutdown is done.
	done chan struct{}
}

func ProvideServer(application *Application, metrics *infra.Metrics, loggerFactory *infra.LoggerFactory) *Server {
	logger := loggerFactory.Create("Server").Sugar()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogRequestID: true,
		LogStatus:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Infof("%v %v id[%v] status[%v] latency[%vms]", v.Method, v.URI, v.RequestID, v.Status, v.Latency.Milliseconds())
			return nil
		},
	}))

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello, World!\n")
	})

	e.PUT("/debug", func(c echo.Context) error {
		infra.LoggerLevel.SetLevel(zapcore.DebugLevel)
		logger.Info("debug logging enabled")
		return c.NoContent(http.StatusOK)
	})

	e.DELETE("/debug", func(c echo.Context) error {
		infra.LoggerLevel.SetLevel(zapcore.InfoLevel)
		logger.Info("debug logging disabled")
		return c.NoContent(http.StatusOK)
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	e.GET("/ws", application.HandleWs)
	e.GET("/tickets/:queueId", application.HandleTicketState)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	return &Server{
		application: application,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%v", port),
			Handler: e,
		},
		loggerFactory: loggerFactory,
		logger:        logger,
		done:          make(chan struct{}),
	}
}

func (s *Server) Run() {
	s.logger.Infof("server running application")
	s.application.Run()

	s.logger.Infof("server starts listening on addr[%v]", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		s.logger.Error(err)
		return
	}
	<-s.done
}

// Shutdown closes every viewer first, so their sessions are torn down
// before the listener goes away.
func (s *Server) Shutdown() {
	s.logger.Infof("server shutting down")
	s.application.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Errorf("server shutdown err %v", err)
	}
	s.loggerFactory.Sync()
	close(s.done)
}
