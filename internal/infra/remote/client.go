package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"exampro-service/internal/app"
	"exampro-service/internal/domain"
)

// ComputePath is where a peer instance exposes the recomputation callable.
const ComputePath = "/internal/leaderboard/compute"

// Client calls a peer's recomputation endpoint. Every failure, including
// non-2xx answers and undecodable bodies, is reported as ErrRemoteUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) Compute(ctx context.Context, req app.ComputeRequest) (domain.LeaderboardPage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.LeaderboardPage{}, fmt.Errorf("marshal compute request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ComputePath, bytes.NewReader(body))
	if err != nil {
		return domain.LeaderboardPage{}, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.LeaderboardPage{}, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.LeaderboardPage{}, fmt.Errorf("%w: status %d: %s",
			domain.ErrRemoteUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var page domain.LeaderboardPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return domain.LeaderboardPage{}, fmt.Errorf("%w: decode response: %v", domain.ErrRemoteUnavailable, err)
	}
	return page, nil
}
