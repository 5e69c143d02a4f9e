package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
)

// HTTPSender posts messages to a JSON SMS gateway with a bearer key.
type HTTPSender struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

func NewHTTPSender(url, apiKey, from string) *HTTPSender {
	return &HTTPSender{
		url:    url,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type smsRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *HTTPSender) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(smsRequest{From: s.from, To: phone, Text: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
// Used when no gateway is configured.
type LogSender struct {
	logger apt.Logger
}

func NewLogSender(logger apt.Logger) *LogSender {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, phone, message string) error {
	s.logger.Info("sms not delivered, no gateway configured", "phone", phone, "message", message)
	return nil
}
