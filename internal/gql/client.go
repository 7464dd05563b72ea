package gql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
	"github.com/Lpaydat/micro-2048-verifier/internal/metrics"
)

// Endpoint addresses one chain+application pair on the target node.
type Endpoint struct {
	BaseURL string
	Chain   model.ChainID
	App     model.AppID
}

func (e Endpoint) URL() string {
	return fmt.Sprintf("%s/chains/%s/applications/%s", e.BaseURL, e.Chain, e.App)
}

// Client issues single GraphQL request/response operations. It performs no
// retries; consistency polling retries belong to the poller, and transport
// flakiness must surface unchanged so the verifier can classify it.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "gql"),
	}
}

// Execute posts one operation to the endpoint and returns the decoded data
// payload. Operation text is static; all caller data travels through
// variables so it is escaped by JSON encoding, never spliced into the query.
//
// Classification of the result:
//   - GraphQL errors array present -> *ServiceError (wins over HTTP status,
//     since the backend answered with a structured refusal)
//   - non-2xx status               -> *HTTPError
//   - undecodable 2xx body         -> *DecodeError
//   - timeouts and connection faults surface as the underlying net errors
func (c *Client) Execute(ctx context.Context, ep Endpoint, operation string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(Request{Query: operation, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.TransportRequestsTotal.WithLabelValues(ep.Chain.String(), "network_error").Inc()
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TransportRequestsTotal.WithLabelValues(ep.Chain.String(), "network_error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}
	metrics.TransportLatencySeconds.WithLabelValues(ep.Chain.String()).Observe(time.Since(start).Seconds())

	var gqlResp Response
	decodeErr := json.Unmarshal(respBody, &gqlResp)

	if decodeErr == nil && len(gqlResp.Errors) > 0 {
		messages := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			messages = append(messages, e.Message)
		}
		c.logger.Debug("service reported errors", "url", ep.URL(), "errors", messages)
		metrics.TransportRequestsTotal.WithLabelValues(ep.Chain.String(), "rejected").Inc()
		return nil, &ServiceError{Messages: messages}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.TransportRequestsTotal.WithLabelValues(ep.Chain.String(), "http_error").Inc()
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if decodeErr != nil {
		metrics.TransportRequestsTotal.WithLabelValues(ep.Chain.String(), "malformed").Inc()
		return nil, &DecodeError{Err: decodeErr}
	}

	metrics.TransportRequestsTotal.WithLabelValues(ep.Chain.String(), "ok").Inc()
	return gqlResp.Data, nil
}

// IsRejection reports whether err is a structured backend refusal.
func IsRejection(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsTransport reports whether err is an infrastructure fault: a timeout, a
// connection error, a non-2xx status, or an undecodable payload. Exactly one
// of IsRejection/IsTransport holds for any non-nil Execute error.
func IsTransport(err error) bool {
	return err != nil && !IsRejection(err)
}
