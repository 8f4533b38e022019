package config

import (
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	SnapshotBaseUrl *string
	ChannelUrl      *string

	SnapshotTimeoutSeconds *int
	SnapshotRetryCount     *int
	ConnectTimeoutSeconds  *int

	PingIntervalSeconds *int

	ReconnectAttempts     *int
	ReconnectBaseDelayMs  *int
	ReconnectMaxDelayMs   *int
	ViewerSendBufferSize  *int
	TicketStateTtlSeconds *int
}

var CFG = &Config{
	SnapshotBaseUrl:        pflag.String("snapshot-base-url", "https://jb3v9lrzx2.execute-api.us-east-1.amazonaws.com", "Base url of the queue service answering snapshot queries at /queue/trackqueue."),
	ChannelUrl:             pflag.String("channel-url", "wss://g3jo9j2tn5.execute-api.us-east-1.amazonaws.com/queue/", "Websocket url pushing partial ticket updates."),
	SnapshotTimeoutSeconds: pflag.Int("snapshot-timeout-seconds", 10, "Timeout of one snapshot query. 0 means no timeout."),
	SnapshotRetryCount:     pflag.Int("snapshot-retry-count", 0, "Number of retries of a failed snapshot query."),
	ConnectTimeoutSeconds:  pflag.Int("connect-timeout-seconds", 10, "Timeout of opening the push channel. 0 means no timeout."),
	PingIntervalSeconds:    pflag.Int("ping-interval-seconds", 30, "Send pings to the push channel with this interval. 0 disables pings."),
	ReconnectAttempts:      pflag.Int("reconnect-attempts", 0, "Max number of times a dropped push channel is reopened. 0 never reopens, the page has to be reloaded."),
	ReconnectBaseDelayMs:   pflag.Int("reconnect-base-delay-ms", 500, "Base delay of the exponential reconnect backoff."),
	ReconnectMaxDelayMs:    pflag.Int("reconnect-max-delay-ms", 30000, "Cap of the exponential reconnect backoff."),
	ViewerSendBufferSize:   pflag.Int("viewer-send-buffer-size", 64, "Number of outbound messages buffered per browser viewer."),
	TicketStateTtlSeconds:  pflag.Int("ticket-state-ttl-seconds", 3600, "How long the last known state of a ticket is kept in redis."),
}

func ProvideConfig() *Config {
	return CFG
}

func seconds(v *int) time.Duration {
	if v == nil || *v <= 0 {
		return 0
	}
	return time.Duration(*v) * time.Second
}

func millis(v *int) time.Duration {
	if v == nil || *v <= 0 {
		return 0
	}
	return time.Duration(*v) * time.Millisecond
}

func (c *Config) SnapshotTimeout() time.Duration { return seconds(c.SnapshotTimeoutSeconds) }

func (c *Config) ConnectTimeout() time.Duration { return seconds(c.ConnectTimeoutSeconds) }

func (c *Config) PingInterval() time.Duration { return seconds(c.PingIntervalSeconds) }

func (c *Config) ReconnectBaseDelay() time.Duration { return millis(c.ReconnectBaseDelayMs) }

func (c *Config) ReconnectMaxDelay() time.Duration { return millis(c.ReconnectMaxDelayMs) }

func (c *Config) TicketStateTtl() time.Duration { return seconds(c.TicketStateTtlSeconds) }

func (c *Config) MaxReconnectAttempts() int {
	if c.ReconnectAttempts == nil || *c.ReconnectAttempts < 0 {
		return 0
	}
	return *c.ReconnectAttempts
}

func (c *Config) SendBufferSize() int {
	if c.ViewerSendBufferSize == nil || *c.ViewerSendBufferSize <= 0 {
		return 64
	}
	return *c.ViewerSendBufferSize
}
