package tracking

import (
	"cloud-hospital/queue/queue-tracker/pkg/config"
	"cloud-hospital/queue/queue-tracker/pkg/infra"
	"cloud-hospital/queue/queue-tracker/pkg/msg"

	"go.uber.org/zap"
)

// Factory creates sessions sharing the same collaborators and options.
type Factory struct {
	fetcher SnapshotFetcher
	dialer  Dialer
	options Options
	logger  *zap.SugaredLogger
}

func ProvideFactory(cfg *config.Config, fetcher SnapshotFetcher, dialer Dialer, metrics *infra.Metrics, loggerFactory *infra.LoggerFactory) *Factory {
	return NewFactory(fetcher, dialer, Options{
		SnapshotTimeout: cfg.SnapshotTimeout(),
		ConnectTimeout:  cfg.ConnectTimeout(),
		Reconnect: ReconnectPolicy{
			MaxAttempts: cfg.MaxReconnectAttempts(),
			BaseDelay:   cfg.ReconnectBaseDelay(),
			MaxDelay:    cfg.ReconnectMaxDelay(),
		},
		Metrics: metrics,
	}, loggerFactory.Create("Session").Sugar())
}

func NewFactory(fetcher SnapshotFetcher, dialer Dialer, options Options, logger *zap.SugaredLogger) *Factory {
	return &Factory{
		fetcher: fetcher,
		dialer:  dialer,
		options: options,
		logger:  logger,
	}
}

func (f *Factory) NewSession(queueId msg.QueueId) *Session {
	return NewSession(queueId, f.fetcher, f.dialer, f.options, f.logger)
}
