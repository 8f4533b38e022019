//go:build wireinject
// +build wireinject

package main

import (
	"cloud-hospital/queue/queue-tracker/pkg/channel"
	"cloud-hospital/queue/queue-tracker/pkg/config"
	"cloud-hospital/queue/queue-tracker/pkg/infra"
	"cloud-hospital/queue/queue-tracker/pkg/snapshot"
	"cloud-hospital/queue/queue-tracker/pkg/store"
	"cloud-hospital/queue/queue-tracker/pkg/tracking"
	"cloud-hospital/queue/queue-tracker/pkg/viewer"

	"github.com/google/wire"
)

func Setup() (*Server, error) {
	wire.Build(
		ProvideServer,
		ProvideApplication,
		config.ProvideConfig,
		infra.ProvideLoggerFactory,
		infra.ProvideMetrics,
		infra.ProvideHttpClient,
		infra.ProvideRedisClient,
		snapshot.ProvideHttpFetcher,
		channel.ProvideWsDialer,
		tracking.ProvideFactory,
		store.ProvideRedisStateStore,
		viewer.ProvideHub,
		wire.Bind(new(tracking.SnapshotFetcher), new(*snapshot.HttpFetcher)),
		wire.Bind(new(tracking.Dialer), new(*channel.WsDialer)),
		wire.Bind(new(viewer.SessionFactory), new(*tracking.Factory)),
		wire.Bind(new(viewer.StateSaver), new(*store.RedisStateStore)),
		wire.Bind(new(TicketStateLoader), new(*store.RedisStateStore)),
	)
	return nil, nil
}
