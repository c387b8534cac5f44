package hydrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cppla/eventboard/models"
)

// rawEnvelope is the legacy API response for a raw board dump.
type rawEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Rows []models.Post `json:"rows"`
	} `json:"data"`
}

// HTTPSource reads boards from the association's legacy API.
type HTTPSource struct {
	client *resty.Client
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a source against baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(1).
		SetRetryWaitTime(200 * time.Millisecond)
	return &HTTPSource{client: client}
}

func rawPath(key models.BoardKey) string {
	if key.IsGlobal() {
		return "/api/v1/boards/{kind}/raw"
	}
	return "/api/v1/events/{eventId}/boards/{kind}/raw"
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, key models.BoardKey) ([]models.Post, error) {
	req := s.client.R().
		SetContext(ctx).
		SetPathParam("kind", string(key.Kind))
	if !key.IsGlobal() {
		req.SetPathParam("eventId", key.EventID)
	}

	res, err := req.Get(rawPath(key))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", key, res.StatusCode())
	}

	var env rawEnvelope
	if err := json.Unmarshal(res.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("fetch %s: api code %d: %s", key, env.Code, env.Message)
	}
	return env.Data.Rows, nil
}
