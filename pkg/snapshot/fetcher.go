package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud-hospital/queue/queue-tracker/pkg/infra"
	"cloud-hospital/queue/queue-tracker/pkg/msg"
	"cloud-hospital/queue/queue-tracker/pkg/tracking"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"
)

const trackQueuePath = "/queue/trackqueue"

// APIError is a non-success answer of the queue service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("queue service error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) UserMessage() string {
	return e.Message
}

// NetworkError is a failure to reach the queue service at all.
type NetworkError struct {
	Url string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during GET %s: %v", e.Url, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Both bodies are decoded loosely, unknown fields are ignored and the
// message of an error body may be missing.
type trackQueueResult struct {
	Data *msg.TicketSnapshot `json:"data"`
}

type errorResult struct {
	Message string `json:"message"`
}

type HttpFetcher struct {
	httpClient *req.Client
	logger     *zap.SugaredLogger
}

func ProvideHttpFetcher(httpClient *req.Client, loggerFactory *infra.LoggerFactory) *HttpFetcher {
	return &HttpFetcher{
		httpClient: httpClient,
		logger:     loggerFactory.Create("SnapshotFetcher").Sugar(),
	}
}

func (f *HttpFetcher) FetchSnapshot(ctx context.Context, queueId msg.QueueId) (*msg.TicketSnapshot, error) {
	resp, err := f.httpClient.R().
		SetContext(ctx).
		SetQueryParam("queue_id", string(queueId)).
		Get(trackQueuePath)

	if err != nil {
		f.logger.Errorf("request failed queueId[%v] %v", queueId, err)
		return nil, &NetworkError{Url: trackQueuePath, Err: err}
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, &NetworkError{Url: trackQueuePath, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result := &errorResult{}
		if err := json.Unmarshal(body, result); err != nil || result.Message == "" {
			result.Message = "Failed to fetch queue details."
		}
		f.logger.Warnf("request failed with status[%v] queueId[%v] message[%v]", resp.StatusCode, queueId, result.Message)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: result.Message}
	}

	result := &trackQueueResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("%w: %v", tracking.ErrMalformedSnapshot, err)
	}
	if result.Data == nil {
		return nil, fmt.Errorf("%w: missing data", tracking.ErrMalformedSnapshot)
	}

	f.logger.Debugf("retrieved snapshot[%+v]", result.Data)
	return result.Data, nil
}
