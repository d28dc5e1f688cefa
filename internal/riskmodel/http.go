package riskmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configure the HTTP scorer.
type Options struct {
	Endpoint string
	Timeout  time.Duration
}

// HTTPScorer posts feature tables to a remote scoring service.
type HTTPScorer struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// NewHTTPScorer constructs an HTTP-backed Scorer.
func NewHTTPScorer(opts Options, logger zerolog.Logger) *HTTPScorer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScorer{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "riskmodel").Logger(),
	}
}

type scoreRequest struct {
	Rows []FeatureRow `json:"rows"`
}

type scoreResponse struct {
	Scores []Score `json:"scores"`
	Model  string  `json:"model"`
}

// ScoreFeatures submits the feature table and decodes per-entity probabilities.
func (s *HTTPScorer) ScoreFeatures(ctx context.Context, rows []FeatureRow) ([]Score, error) {
	if s.endpoint == "" {
		return nil, fmt.Errorf("riskmodel endpoint not configured")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(scoreRequest{Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("marshal score request: %w", err)
	}

	url := s.endpoint + "/v1/churn/score"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("riskmodel responded with status %d", resp.StatusCode)
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}

	for i := range decoded.Scores {
		if decoded.Scores[i].Model == "" {
			decoded.Scores[i].Model = decoded.Model
		}
	}

	s.logger.Debug().Int("rows", len(rows)).Int("scores", len(decoded.Scores)).Msg("feature table scored")
	return decoded.Scores, nil
}

var _ Scorer = (*HTTPScorer)(nil)
