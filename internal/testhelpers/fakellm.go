package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// LLMRequest is the part of a chat completion request the fake inspects.
type LLMRequest struct {
	Model      string
	Prompt     string
	SchemaName string
	Strict     bool
	Schema     json.RawMessage
}

// LLMResponder answers a request with an HTTP status and the assistant message content. A 200 status with empty
// content yields a response without choices.
type LLMResponder func(req LLMRequest) (status int, content string)

// FakeLLM serves the OpenAI chat completions endpoint.
type FakeLLM struct {
	// URL is the base URL to hand to the client, including the /v1/ prefix.
	URL string

	mu       sync.Mutex
	requests []LLMRequest
	respond  LLMResponder
}

// NewFakeLLM starts a fake chat completions server that is closed when the test finishes.
func NewFakeLLM(t *testing.T, respond LLMResponder) *FakeLLM {
	t.Helper()
	f := &FakeLLM{URL: "", mu: sync.Mutex{}, requests: nil, respond: respond}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", f.handleCompletion)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	f.URL = srv.URL + "/v1/"
	return f
}

// SetResponder replaces the responder for subsequent requests.
func (f *FakeLLM) SetResponder(respond LLMResponder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}

// Requests returns the requests received so far.
func (f *FakeLLM) Requests() []LLMRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LLMRequest(nil), f.requests...)
}

type completionBody struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type       string `json:"type"`
		JSONSchema struct {
			Name   string          `json:"name"`
			Strict bool            `json:"strict"`
			Schema json.RawMessage `json:"schema"`
		} `json:"json_schema"`
	} `json:"response_format"`
}

func (f *FakeLLM) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var body completionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"message":%q,"type":"invalid_request_error"}}`, err.Error()),
			http.StatusBadRequest)
		return
	}
	req := LLMRequest{Model: body.Model, Prompt: "", SchemaName: "", Strict: false, Schema: nil}
	for _, m := range body.Messages {
		if m.Role != "user" {
			continue
		}
		var text string
		if err := json.Unmarshal(m.Content, &text); err == nil {
			req.Prompt = text
		}
	}
	if body.ResponseFormat != nil && body.ResponseFormat.Type == "json_schema" {
		req.SchemaName = body.ResponseFormat.JSONSchema.Name
		req.Strict = body.ResponseFormat.JSONSchema.Strict
		req.Schema = body.ResponseFormat.JSONSchema.Schema
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()

	status, content := respond(req)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": content, "type": "server_error", "code": nil, "param": nil},
		})
		return
	}
	choices := []any{}
	if content != "" {
		choices = append(choices, map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"logprobs":      nil,
			"message":       map[string]any{"role": "assistant", "content": content, "refusal": nil},
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   body.Model,
		"choices": choices,
		"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
}
