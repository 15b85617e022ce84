package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/metrics"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

func completionResponse(content string) ChatCompletionResponse {
	var resp ChatCompletionResponse
	resp.Choices = []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}{
		{Index: 0, Message: ChatMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
	}
	return resp
}

func TestClientChat(t *testing.T) {
	var gotReq ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(completionResponse("hello"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1", "test-key", "test-model", 512, 0.2)
	resp, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "hello" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("request model = %s, want test-model", gotReq.Model)
	}
	if gotReq.MaxTokens != 512 {
		t.Errorf("request max_tokens = %d, want 512", gotReq.MaxTokens)
	}
}

func TestClientChat_SystemPromptInjection(t *testing.T) {
	var gotReq ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(completionResponse("ok"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "m", 128, 0, WithSystemPrompt("be brief"))

	t.Run("injects default system message", func(t *testing.T) {
		if _, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "q"}}); err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != "be brief" {
			t.Errorf("expected injected system message, got %+v", gotReq.Messages)
		}
	})

	t.Run("keeps caller system message", func(t *testing.T) {
		msgs := []ChatMessage{{Role: "system", Content: "custom"}, {Role: "user", Content: "q"}}
		if _, err := client.Chat(context.Background(), msgs); err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if len(gotReq.Messages) != 2 || gotReq.Messages[0].Content != "custom" {
			t.Errorf("expected caller system message, got %+v", gotReq.Messages)
		}
	})
}

func TestClientChat_RecordsRequestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse("ok"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "m", 128, 0, WithRole("judge"))
	before := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("judge", "ok"))

	if _, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "q"}}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	after := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("judge", "ok"))
	if after != before+1 {
		t.Errorf("ok counter = %v, want %v", after, before+1)
	}
}

func TestClientChat_RecordsErrorMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "m", 128, 0)
	before := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("task", "error"))

	if _, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "q"}}); err == nil {
		t.Fatal("expected error for 400 response")
	}

	after := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("task", "error"))
	if after != before+1 {
		t.Errorf("error counter = %v, want %v", after, before+1)
	}
}

func TestClientChat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "m", 128, 0)
	if _, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "q"}}); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestServiceChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse("answer"))
	}))
	defer server.Close()

	svc := NewService(NewClient(server.URL, "", "m", 128, 0))
	resp, err := svc.Chat(context.Background(), []ports.LLMMessage{{Role: "user", Content: "q"}})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "answer" {
		t.Errorf("Content = %q, want %q", resp.Content, "answer")
	}
}

func TestServiceChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatCompletionResponse{})
	}))
	defer server.Close()

	svc := NewService(NewClient(server.URL, "", "m", 128, 0))
	if _, err := svc.Chat(context.Background(), []ports.LLMMessage{{Role: "user", Content: "q"}}); err == nil {
		t.Error("expected error for empty choices")
	}
}
