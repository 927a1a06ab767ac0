package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tweetsync/pkg/config"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/models"
)

// maxDetailBytes caps how much of an error body is kept per row
const maxDetailBytes = 2048

// RESTSink posts rows to a PostgREST endpoint (Supabase's /rest/v1)
type RESTSink struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// restRow is the exact JSON body; field order and names are part of the
// remote table contract.
type restRow struct {
	Timestamp string `json:"Timestamp"`
	Content   string `json:"Content"`
}

// NewRESTSink targets {cfg.URL}/rest/v1/{cfg.Table}
func NewRESTSink(cfg config.RemoteConfig) *RESTSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RESTSink{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + url.PathEscape(cfg.Table),
		apiKey:   cfg.APIKey,
	}
}

// Endpoint returns the URL rows are posted to
func (s *RESTSink) Endpoint() string {
	return s.endpoint
}

// Send posts one row. 200 and 201 count as inserted; anything else,
// including transport failures, is rejected with a description.
func (s *RESTSink) Send(ctx context.Context, row models.Row) (models.UploadStatus, string) {
	body, err := json.Marshal(restRow{
		Timestamp: row.Timestamp.UTC().Format(time.RFC3339Nano),
		Content:   row.Content,
	})
	if err != nil {
		return models.StatusRejected, fmt.Sprintf("marshal row: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.StatusRejected, fmt.Sprintf("create request: %v", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		logger.LogRequest(http.MethodPost, s.endpoint, 0, time.Since(start))
		return models.StatusRejected, fmt.Sprintf("send request: %v", err)
	}
	defer resp.Body.Close()
	logger.LogRequest(http.MethodPost, s.endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.StatusInserted, ""
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
	detail := strings.TrimSpace(string(respBody))
	if detail == "" {
		detail = resp.Status
	}
	return models.StatusRejected, fmt.Sprintf("status %d: %s", resp.StatusCode, detail)
}

// Close releases idle connections
func (s *RESTSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
