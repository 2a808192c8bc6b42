// Copyright 2025 MedBotAssist
// SPDX-License-Identifier: Apache-2.0
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"medbotassist/platform/orchestrator/llm"
)

// mockHTTPClient implements HTTPClient for testing.
type mockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestProvider(t *testing.T, client HTTPClient) *Provider {
	t.Helper()
	p, err := NewProvider(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	p.SetHTTPClient(client)
	return p
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  Config{APIKey: "sk-test"},
			wantErr: false,
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if p.model != DefaultModel {
				t.Errorf("model = %q, want default %q", p.model, DefaultModel)
			}
			if p.baseURL != DefaultBaseURL {
				t.Errorf("baseURL = %q", p.baseURL)
			}
		})
	}
}

func TestChat_PlainResponse(t *testing.T) {
	var capturedReq map[string]any
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "Bearer test-key" {
				t.Errorf("missing auth header")
			}
			if !strings.HasSuffix(req.URL.Path, "/chat/completions") {
				t.Errorf("wrong path: %s", req.URL.Path)
			}
			body, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(body, &capturedReq); err != nil {
				t.Fatalf("request body: %v", err)
			}
			return jsonResponse(200, `{
				"id": "chatcmpl-1",
				"model": "gpt-4o-mini",
				"choices": [{
					"index": 0,
					"message": {"role": "assistant", "content": "Hello, how can I help?"},
					"finish_reason": "stop"
				}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
			}`), nil
		},
	}
	p := newTestProvider(t, client)

	resp, err := p.Chat(context.Background(), &llm.ChatRequest{
		SystemPrompt: "You are a medical office assistant.",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Hi"},
		},
		Temperature: -1,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Content != "Hello, how can I help?" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.HasToolCalls() {
		t.Errorf("unexpected tool calls")
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}

	// System prompt becomes the leading system message.
	messages := capturedReq["messages"].([]any)
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "You are a medical office assistant." {
		t.Errorf("system message = %v", first)
	}
	// Negative temperature falls back to the provider default.
	if capturedReq["temperature"].(float64) != DefaultTemperature {
		t.Errorf("temperature = %v", capturedReq["temperature"])
	}
	if capturedReq["max_tokens"].(float64) != DefaultMaxTokens {
		t.Errorf("max_tokens = %v", capturedReq["max_tokens"])
	}
}

func TestChat_ZeroTemperatureIsValid(t *testing.T) {
	var capturedReq map[string]any
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(body, &capturedReq)
			return jsonResponse(200, `{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],"usage":{}}`), nil
		},
	}
	p := newTestProvider(t, client)

	if _, err := p.Chat(context.Background(), &llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
		Temperature: 0,
	}); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if capturedReq["temperature"].(float64) != 0 {
		t.Errorf("temperature = %v, want 0", capturedReq["temperature"])
	}
}

func TestChat_ToolCalls(t *testing.T) {
	var capturedReq map[string]any
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(body, &capturedReq)
			return jsonResponse(200, `{
				"model": "gpt-4o-mini",
				"choices": [{
					"message": {
						"role": "assistant",
						"content": "",
						"tool_calls": [{
							"id": "call_abc",
							"type": "function",
							"function": {
								"name": "search_patients",
								"arguments": "{\"search_term\": \"garcia\", \"top_k\": 3}"
							}
						}]
					},
					"finish_reason": "tool_calls"
				}],
				"usage": {"prompt_tokens": 40, "completion_tokens": 15, "total_tokens": 55}
			}`), nil
		},
	}
	p := newTestProvider(t, client)

	resp, err := p.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "find garcia"}},
		Tools: []llm.ToolDefinition{
			{
				Name:        "search_patients",
				Description: "Search patients by any field",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"search_term": map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if !resp.HasToolCalls() {
		t.Fatalf("expected tool calls")
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_abc" || call.Name != "search_patients" {
		t.Errorf("call = %+v", call)
	}
	if call.Arguments["search_term"] != "garcia" {
		t.Errorf("arguments = %v", call.Arguments)
	}
	if call.Arguments["top_k"] != float64(3) {
		t.Errorf("arguments = %v", call.Arguments)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}

	// Tool definitions go out in the function wire format.
	tools := capturedReq["tools"].([]any)
	tool := tools[0].(map[string]any)
	if tool["type"] != "function" {
		t.Errorf("tool type = %v", tool["type"])
	}
	fn := tool["function"].(map[string]any)
	if fn["name"] != "search_patients" {
		t.Errorf("function name = %v", fn["name"])
	}
}

func TestChat_MalformedToolArguments(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{
				"model": "gpt-4o-mini",
				"choices": [{
					"message": {
						"role": "assistant",
						"tool_calls": [{
							"id": "call_bad",
							"type": "function",
							"function": {"name": "search_patients", "arguments": "{not json"}
						}]
					},
					"finish_reason": "tool_calls"
				}],
				"usage": {}
			}`), nil
		},
	}
	p := newTestProvider(t, client)

	_, err := p.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "find"}},
	})
	if err == nil {
		t.Fatalf("expected error for malformed arguments")
	}
	if !strings.Contains(err.Error(), "malformed arguments") {
		t.Errorf("got %v", err)
	}
}

func TestChat_ToolResultRoundTrip(t *testing.T) {
	var capturedReq map[string]any
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(body, &capturedReq)
			return jsonResponse(200, `{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"Found 2 patients."},"finish_reason":"stop"}],"usage":{}}`), nil
		},
	}
	p := newTestProvider(t, client)

	_, err := p.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "find garcia"},
			{
				Role: llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{
					{ID: "call_abc", Name: "search_patients", Arguments: map[string]interface{}{"search_term": "garcia"}},
				},
			},
			{Role: llm.RoleTool, ToolCallID: "call_abc", Name: "search_patients", Content: "Found 2 patients matching 'garcia'"},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	messages := capturedReq["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("messages = %d", len(messages))
	}

	assistant := messages[1].(map[string]any)
	calls := assistant["tool_calls"].([]any)
	fn := calls[0].(map[string]any)["function"].(map[string]any)
	if !strings.Contains(fn["arguments"].(string), "garcia") {
		t.Errorf("arguments not re-serialized: %v", fn["arguments"])
	}

	toolMsg := messages[2].(map[string]any)
	if toolMsg["role"] != "tool" || toolMsg["tool_call_id"] != "call_abc" {
		t.Errorf("tool message = %v", toolMsg)
	}
}

func TestChat_APIError(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(429, `{"error": {"code": "rate_limit_exceeded", "message": "Rate limit reached", "type": "requests"}}`), nil
		},
	}
	p := newTestProvider(t, client)

	_, err := p.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is %T", err)
	}
	if !apiErr.IsRateLimitError() {
		t.Errorf("not classified as rate limit: %+v", apiErr)
	}
	if apiErr.Provider != "openai" {
		t.Errorf("provider = %q", apiErr.Provider)
	}
}

func TestChat_NetworkError(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	p := newTestProvider(t, client)

	_, err := p.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("got %v", err)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"stop", "stop"},
		{"length", "max_tokens"},
		{"tool_calls", "tool_calls"},
		{"content_filter", "content_filter"},
		{"weird", "weird"},
	}
	for _, tt := range tests {
		if got := mapFinishReason(tt.in); got != tt.want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.HasSuffix(req.URL.Path, "/models") {
				t.Errorf("wrong path: %s", req.URL.Path)
			}
			return jsonResponse(200, `{"data": []}`), nil
		},
	}
	p := newTestProvider(t, client)

	result, err := p.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if result.Status != llm.HealthStatusHealthy {
		t.Errorf("status = %q", result.Status)
	}
}

func TestHealthCheck_Unreachable(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: timeout")
		},
	}
	p := newTestProvider(t, client)

	result, err := p.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if result.Status != llm.HealthStatusUnhealthy {
		t.Errorf("status = %q", result.Status)
	}
}

func TestCapabilities(t *testing.T) {
	p := newTestProvider(t, &mockHTTPClient{})

	caps := p.Capabilities()
	found := false
	for _, c := range caps {
		if c == llm.CapabilityFunctionCalling {
			found = true
		}
	}
	if !found {
		t.Errorf("function calling missing from %v", caps)
	}
}
