package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/huddle-chat/huddle/internal/config"
	"go.uber.org/zap"
)

// TokenResult records the outcome of a single token in a multicast send.
type TokenResult struct {
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

// MulticastResult summarizes a multicast push request. Partial per-token
// failures (stale tokens and the like) live in Results and never fail the
// request as a whole.
type MulticastResult struct {
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Results      []TokenResult `json:"results"`
}

// Provider is the out-of-band push channel. The dispatcher only ever issues
// a single multicast per dispatch.
type Provider interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*MulticastResult, error)
}

// HTTPProvider talks to an FCM-style multicast endpoint over HTTP. The
// client timeout bounds every call; a stalled provider cannot hang a
// dispatch.
type HTTPProvider struct {
	endpoint  string
	serverKey string
	client    *http.Client
	logger    *zap.Logger
}

func NewHTTPProvider(cfg *config.PushConfig, logger *zap.Logger) *HTTPProvider {
	return &HTTPProvider{
		endpoint:  cfg.Endpoint,
		serverKey: cfg.ServerKey,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

type multicastRequest struct {
	RegistrationIDs []string             `json:"registration_ids"`
	Notification    multicastNotifBody   `json:"notification"`
	Data            map[string]string    `json:"data,omitempty"`
}

type multicastNotifBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type multicastResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// SendMulticast submits one push request carrying all tokens.
func (p *HTTPProvider) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*MulticastResult, error) {
	payload, err := json.Marshal(&multicastRequest{
		RegistrationIDs: tokens,
		Notification:    multicastNotifBody{Title: title, Body: body},
		Data:            data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.serverKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	var decoded multicastResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}

	result := &MulticastResult{
		SuccessCount: decoded.Success,
		FailureCount: decoded.Failure,
	}
	for i, r := range decoded.Results {
		tr := TokenResult{Error: r.Error}
		if i < len(tokens) {
			tr.Token = tokens[i]
		}
		result.Results = append(result.Results, tr)
		if r.Error != "" {
			p.logger.Warn("Push delivery failed for token",
				zap.String("token", tr.Token),
				zap.String("error", r.Error),
			)
		}
	}

	return result, nil
}
