// Package webhook forwards processed CV data to the downstream review system.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/pkg/config"
)

// CandidateEmailHeader identifies the submitter of the integration to the receiver
const CandidateEmailHeader = "X-Candidate-Email"

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 4 << 10

// Payload is the JSON document posted for each processed CV
type Payload struct {
	CVData   domain.CVData `json:"cv_data"`
	Metadata Metadata      `json:"metadata"`
}

// Metadata describes the applicant and when the CV was processed
type Metadata struct {
	ApplicantName      string `json:"applicant_name"`
	Email              string `json:"email"`
	Status             string `json:"status"`
	CVProcessed        bool   `json:"cv_processed"`
	ProcessedTimestamp string `json:"processed_timestamp"`
}

// NewPayload stamps processedAt in UTC with a trailing Z
func NewPayload(cv domain.CVData, applicantName, applicantEmail, status string, processedAt time.Time) Payload {
	return Payload{
		CVData: cv,
		Metadata: Metadata{
			ApplicantName:      applicantName,
			Email:              applicantEmail,
			Status:             status,
			CVProcessed:        true,
			ProcessedTimestamp: processedAt.UTC().Format("2006-01-02T15:04:05.000000Z"),
		},
	}
}

// Sender delivers a payload
type Sender interface {
	Send(ctx context.Context, payload Payload) error
}

// Client posts payloads to a single webhook URL
type Client struct {
	url            string
	candidateEmail string
	httpClient     *http.Client
}

// New creates a client from cfg; a zero timeout defaults to 10s
func New(cfg config.WebhookConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:            cfg.URL,
		candidateEmail: cfg.CandidateEmail,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Send posts the payload once. Any non-2xx response is an error.
func (c *Client) Send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CandidateEmailHeader, c.candidateEmail)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook: receiver returned %d: %s", resp.StatusCode, string(respBody))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
