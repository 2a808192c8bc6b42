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

// Package llm defines the unified interface and types for the LLM providers
// behind the medical assistant: chat with tool calling for the agent loop,
// plain completion for fallback paths.
package llm

import (
	"fmt"
	"net/http"
	"time"
)

// ProviderType identifies the underlying provider implementation.
type ProviderType string

const (
	// ProviderTypeOpenAI represents the OpenAI Chat Completions API.
	ProviderTypeOpenAI ProviderType = "openai"

	// ProviderTypeBedrock represents AWS Bedrock managed models.
	ProviderTypeBedrock ProviderType = "bedrock"
)

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Name is the tool name on tool-role messages.
	Name string `json:"name,omitempty"`
}

// ToolCall is a single tool invocation requested by the model. Arguments are
// already decoded from the provider's wire format; an invocation either
// parses completely or is rejected, there is no partially-decoded state.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolDefinition describes one tool in the provider's function-calling
// format: name, description, and a JSON-schema parameters object.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ChatRequest is the unified request for a chat completion.
type ChatRequest struct {
	// SystemPrompt sets the assistant's behavior for the whole exchange.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Messages is the conversation history, oldest first.
	Messages []Message `json:"messages"`

	// Tools are the function definitions the model may call. Empty means
	// plain chat.
	Tools []ToolDefinition `json:"tools,omitempty"`

	// MaxTokens limits the response length. 0 uses provider defaults.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness. Negative values use provider
	// defaults; 0.0 is valid (deterministic).
	Temperature float64 `json:"temperature,omitempty"`

	// Model overrides the provider's default model.
	Model string `json:"model,omitempty"`
}

// ChatResponse is the unified chat completion result. Exactly one of Content
// and ToolCalls is meaningful: a response either answers or asks for tools.
type ChatResponse struct {
	Content      string        `json:"content"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        UsageStats    `json:"usage"`
	Latency      time.Duration `json:"latency"`
}

// HasToolCalls reports whether the model asked for tool execution.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// UsageStats tracks token usage for monitoring.
type UsageStats struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// HealthStatus represents the health state of a provider.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// HealthCheckResult contains health check details for one provider.
type HealthCheckResult struct {
	Status      HealthStatus  `json:"status"`
	Latency     time.Duration `json:"latency"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
}

// Capability represents a feature a provider supports.
type Capability string

const (
	// CapabilityChat indicates support for conversational chat.
	CapabilityChat Capability = "chat"

	// CapabilityCompletion indicates support for plain text completion.
	CapabilityCompletion Capability = "completion"

	// CapabilityFunctionCalling indicates support for tool calling. The
	// dispatcher only routes agent traffic to providers with this.
	CapabilityFunctionCalling Capability = "function_calling"
)

// APIError is a structured error from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d, code %s): %s",
		e.Provider, e.StatusCode, e.Code, e.Message)
}

// IsRateLimitError returns true if this is a rate limit error.
func (e *APIError) IsRateLimitError() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden ||
		e.Code == "invalid_api_key"
}

// IsQuotaExceededError returns true if this is a quota exceeded error.
func (e *APIError) IsQuotaExceededError() bool {
	return e.Code == "quota_exceeded" || e.Code == "insufficient_quota"
}
