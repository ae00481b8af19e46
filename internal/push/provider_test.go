package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huddle-chat/huddle/internal/config"
	"go.uber.org/zap"
)

func TestHTTPProvider_SendMulticast(t *testing.T) {
	var gotAuth string
	var gotReq multicastRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": 1,
			"failure": 1,
			"results": []map[string]string{
				{"message_id": "m1"},
				{"error": "NotRegistered"},
			},
		})
	}))
	defer server.Close()

	provider := NewHTTPProvider(&config.PushConfig{
		Endpoint:  server.URL,
		ServerKey: "test-key",
		Timeout:   5 * time.Second,
	}, zap.NewNop())

	result, err := provider.SendMulticast(context.Background(),
		[]string{"tok-a", "tok-b"}, "Title", "Body", map[string]string{"room_id": "r1"})
	if err != nil {
		t.Fatalf("SendMulticast failed: %v", err)
	}

	if gotAuth != "key=test-key" {
		t.Errorf("Expected auth header 'key=test-key', got '%s'", gotAuth)
	}
	if len(gotReq.RegistrationIDs) != 2 {
		t.Errorf("Expected 2 registration ids, got %d", len(gotReq.RegistrationIDs))
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("Expected 1 success / 1 failure, got %d / %d", result.SuccessCount, result.FailureCount)
	}
	if result.Results[1].Token != "tok-b" || result.Results[1].Error != "NotRegistered" {
		t.Errorf("Unexpected per-token result: %+v", result.Results[1])
	}
}

func TestHTTPProvider_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := NewHTTPProvider(&config.PushConfig{
		Endpoint: server.URL,
		Timeout:  5 * time.Second,
	}, zap.NewNop())

	if _, err := provider.SendMulticast(context.Background(), []string{"tok"}, "t", "b", nil); err == nil {
		t.Error("Expected error for non-OK provider status")
	}
}
