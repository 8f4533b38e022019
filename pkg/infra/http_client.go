package infra

import (
	"cloud-hospital/queue/queue-tracker/pkg/config"

	"github.com/imroc/req/v3"
)

func ProvideHttpClient(cfg *config.Config) *req.Client {
	client := req.C().
		SetBaseURL(*cfg.SnapshotBaseUrl).
		SetCommonHeader("Accept", "application/json")

	// Per request deadlines come from the tracking session's context.
	if timeout := cfg.SnapshotTimeout(); timeout > 0 {
		client.SetTimeout(timeout)
	}

	if retries := *cfg.SnapshotRetryCount; retries > 0 {
		client.SetCommonRetryCount(retries).
			SetCommonRetryBackoffInterval(cfg.ReconnectBaseDelay(), cfg.ReconnectMaxDelay())
	}

	return client
}
