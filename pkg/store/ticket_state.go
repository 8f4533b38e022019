package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud-hospital/queue/queue-tracker/pkg/config"
	"cloud-hospital/queue/queue-tracker/pkg/infra"
	"cloud-hospital/queue/queue-tracker/pkg/msg"
	"cloud-hospital/queue/queue-tracker/pkg/tracking"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("ticket state not found")

const ticketKeyPrefix = "ticket:"

// One redis hash per ticket.
type ticketRecord struct {
	State         string `redis:"state"`
	ChannelStatus string `redis:"channelStatus"`
	ErrorKind     string `redis:"errorKind"`
	ErrorMessage  string `redis:"errorMessage"`
	Ticket        string `redis:"ticket"`
	UpdatedAt     int64  `redis:"updatedAt"`
}

func (r *ticketRecord) fields() map[string]interface{} {
	return map[string]interface{}{
		"state":         r.State,
		"channelStatus": r.ChannelStatus,
		"errorKind":     r.ErrorKind,
		"errorMessage":  r.ErrorMessage,
		"ticket":        r.Ticket,
		"updatedAt":     r.UpdatedAt,
	}
}

type TicketState struct {
	msg.TrackStateServerEvent
	UpdatedAt time.Time `json:"updatedAt"`
}

func ticketKey(queueId msg.QueueId) string {
	return ticketKeyPrefix + string(queueId)
}

func toRecord(view tracking.View, now time.Time) (*ticketRecord, error) {
	event := view.ToEvent()
	ticket, err := json.Marshal(event.Ticket)
	if err != nil {
		return nil, err
	}

	return &ticketRecord{
		State:         event.State,
		ChannelStatus: event.ChannelStatus,
		ErrorKind:     event.ErrorKind,
		ErrorMessage:  event.ErrorMessage,
		Ticket:        string(ticket),
		UpdatedAt:     now.UnixMilli(),
	}, nil
}

func fromRecord(record *ticketRecord) (*TicketState, error) {
	state := &TicketState{
		TrackStateServerEvent: msg.TrackStateServerEvent{
			State:         record.State,
			ChannelStatus: record.ChannelStatus,
			ErrorKind:     record.ErrorKind,
			ErrorMessage:  record.ErrorMessage,
		},
		UpdatedAt: time.UnixMilli(record.UpdatedAt),
	}

	if record.Ticket != "" {
		if err := json.Unmarshal([]byte(record.Ticket), &state.Ticket); err != nil {
			return nil, fmt.Errorf("corrupted ticket: %w", err)
		}
	}
	return state, nil
}

// RedisStateStore keeps the last known view of every tracked ticket, so
// it can be served without opening a session.
type RedisStateStore struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      *zap.SugaredLogger
}

func ProvideRedisStateStore(redisClient *redis.Client, cfg *config.Config, loggerFactory *infra.LoggerFactory) *RedisStateStore {
	return &RedisStateStore{
		redisClient: redisClient,
		ttl:         cfg.TicketStateTtl(),
		logger:      loggerFactory.Create("StateStore").Sugar(),
	}
}

func (s *RedisStateStore) Save(ctx context.Context, view tracking.View) error {
	record, err := toRecord(view, time.Now())
	if err != nil {
		return err
	}

	key := ticketKey(view.QueueId)
	_, err = s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, record.fields())
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		s.logger.Errorf("err saving state of queueId[%v] %v", view.QueueId, err)
		return err
	}
	return nil
}

func (s *RedisStateStore) Load(ctx context.Context, queueId msg.QueueId) (*TicketState, error) {
	cmd := s.redisClient.HGetAll(ctx, ticketKey(queueId))
	values, err := cmd.Result()
	if err != nil {
		s.logger.Errorf("err reading state of queueId[%v] %v", queueId, err)
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	record := &ticketRecord{}
	if err := cmd.Scan(record); err != nil {
		return nil, err
	}
	state, err := fromRecord(record)
	if err != nil {
		return nil, err
	}
	state.QueueId = queueId
	return state, nil
}
