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

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medbotassist/platform/agent/policy"
	"medbotassist/platform/orchestrator/llm"
	"medbotassist/platform/shared/logger"
	"medbotassist/platform/shared/types"
	"medbotassist/platform/tools"
)

// DispatchState tracks where a message is in the agent loop. The final state
// is surfaced in the result for observability.
type DispatchState string

const (
	// StateIdle means dispatch has not engaged the provider yet.
	StateIdle DispatchState = "idle"

	// StateAwaitingToolDecision means the provider is deciding whether to
	// call tools.
	StateAwaitingToolDecision DispatchState = "awaiting_tool_decision"

	// StateResponding means the provider produced the final answer.
	StateResponding DispatchState = "responding"
)

// Dispatch result statuses.
const (
	StatusSuccess = "success"
	StatusDenied  = "denied"
	StatusError   = "error"
)

// maxToolIterations caps provider round-trips per message. After the cap the
// provider must answer without tools.
const maxToolIterations = 3

// errorResponseText is returned to the user when the provider or the
// pipeline fails. Failures are never fatal to the process.
const errorResponseText = "I apologize, but I encountered an error while processing your request. Please try again in a moment."

// DefaultSystemPrompt frames the assistant for the medical office domain.
const DefaultSystemPrompt = `You are a virtual assistant for a medical office. You help authorized staff look up patient information, review medical histories and diagnoses, and manage patient records.

Rules:
- Use the available tools to answer questions about patients. Never invent patient data.
- When a tool returns an access denial, relay it to the user without attempting the operation another way.
- Answer in the language the user writes in.
- Be concise and professional.`

// InteractionRecorder receives completed (user, assistant) turns for audit.
// Implementations must not block: recording failures never fail a request.
type InteractionRecorder interface {
	Record(ctx context.Context, username, conversationID, userMessage, botResponse string)
}

// DispatchResult is the outcome of one user message.
type DispatchResult struct {
	Response       string
	ConversationID string
	ToolsUsed      []string
	State          DispatchState
	Status         string
}

// Dispatcher runs the agent loop: permission gate, provider calls, tool
// execution, transcript upkeep, and interaction audit.
type Dispatcher struct {
	providers     *llm.Registry
	tools         *tools.Registry
	conversations *ConversationStore
	recorder      InteractionRecorder
	systemPrompt  string
	log           *logger.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder attaches an interaction recorder.
func WithRecorder(r InteractionRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) DispatcherOption {
	return func(d *Dispatcher) { d.systemPrompt = prompt }
}

// NewDispatcher creates a dispatcher. The conversation store may be nil, in
// which case every message is a standalone exchange.
func NewDispatcher(providers *llm.Registry, toolRegistry *tools.Registry, conversations *ConversationStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		providers:     providers,
		tools:         toolRegistry,
		conversations: conversations,
		systemPrompt:  DefaultSystemPrompt,
		log:           logger.New("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch processes one user message. It never returns an error: every
// failure is folded into the result text with status "error".
func (d *Dispatcher) Dispatch(ctx context.Context, message, conversationID string, caller *types.UserContext) *DispatchResult {
	requestID := uuid.NewString()
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	result := &DispatchResult{
		ConversationID: conversationID,
		State:          StateIdle,
		Status:         StatusSuccess,
	}

	// Agent access is checked once, before any provider call. Denied
	// exchanges still go to the audit trail.
	if ok, denial := policy.ValidateAgentAccess(caller); !ok {
		d.log.Warn(caller.Username, requestID, "agent access denied", nil)
		result.Response = denial
		result.Status = StatusDenied
		d.persistTurn(ctx, conversationID, message, denial, caller, requestID)
		return result
	}

	provider, err := d.providers.SelectForCapability(llm.CapabilityFunctionCalling)
	if err != nil {
		d.log.Error(caller.Username, requestID, "no function-calling provider available", map[string]interface{}{
			"error": err.Error(),
		})
		result.Response = errorResponseText
		result.Status = StatusError
		d.persistTurn(ctx, conversationID, message, errorResponseText, caller, requestID)
		return result
	}

	messages, err := d.buildTranscript(ctx, conversationID, message)
	if err != nil {
		// A broken transcript degrades to a standalone exchange.
		d.log.Warn(caller.Username, requestID, "conversation history unavailable", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		messages = []llm.Message{{Role: llm.RoleUser, Content: message}}
	}

	result.State = StateAwaitingToolDecision

	response, toolsUsed, err := d.runToolLoop(ctx, provider, messages, caller, requestID)
	if err != nil {
		d.log.Error(caller.Username, requestID, "dispatch failed", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		result.Response = errorResponseText
		result.Status = StatusError
		d.persistTurn(ctx, conversationID, message, errorResponseText, caller, requestID)
		return result
	}

	result.Response = response
	result.ToolsUsed = toolsUsed
	result.State = StateResponding

	d.persistTurn(ctx, conversationID, message, response, caller, requestID)
	return result
}

// runToolLoop alternates provider calls and tool execution until the
// provider answers with content or the iteration cap forces an answer.
func (d *Dispatcher) runToolLoop(ctx context.Context, provider llm.Provider, messages []llm.Message, caller *types.UserContext, requestID string) (string, []string, error) {
	definitions := d.toolDefinitions()
	var toolsUsed []string

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		resp, err := provider.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: d.systemPrompt,
			Messages:     messages,
			Tools:        definitions,
			Temperature:  -1,
		})
		if err != nil {
			return "", nil, fmt.Errorf("provider %s: %w", provider.Name(), err)
		}

		if !resp.HasToolCalls() {
			return resp.Content, toolsUsed, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			output := d.executeToolCall(ctx, call, caller, requestID)
			toolsUsed = append(toolsUsed, call.Name)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    output,
			})
		}
	}

	// Iteration cap reached: the provider must answer from what it has.
	resp, err := provider.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: d.systemPrompt,
		Messages:     messages,
		Temperature:  -1,
	})
	if err != nil {
		return "", nil, fmt.Errorf("provider %s: %w", provider.Name(), err)
	}
	return resp.Content, toolsUsed, nil
}

// executeToolCall validates a requested call against the registry and runs
// it. Unknown names and denials come back as text for the provider to relay.
func (d *Dispatcher) executeToolCall(ctx context.Context, call llm.ToolCall, caller *types.UserContext, requestID string) string {
	start := time.Now()
	output := d.tools.Execute(ctx, call.Name, call.Arguments, caller)
	d.log.InfoWithDuration(caller.Username, requestID, "tool executed", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"tool": call.Name,
	})
	return output
}

func (d *Dispatcher) toolDefinitions() []llm.ToolDefinition {
	registered := d.tools.List()
	definitions := make([]llm.ToolDefinition, 0, len(registered))
	for _, t := range registered {
		definitions = append(definitions, llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return definitions
}

// buildTranscript assembles the history window plus the new user message.
func (d *Dispatcher) buildTranscript(ctx context.Context, conversationID, message string) ([]llm.Message, error) {
	var messages []llm.Message
	if d.conversations != nil {
		history, err := d.conversations.Window(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		for _, entry := range history {
			messages = append(messages, llm.Message{Role: entry.Role, Content: entry.Content})
		}
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: message}), nil
}

// persistTurn appends the exchange to the transcript and records the
// interaction. It runs for every exchange, including denials and errors.
// Neither failure reaches the user.
func (d *Dispatcher) persistTurn(ctx context.Context, conversationID, userMessage, botResponse string, caller *types.UserContext, requestID string) {
	if d.conversations != nil {
		now := time.Now()
		err := d.conversations.Append(ctx, conversationID,
			ConversationEntry{Role: llm.RoleUser, Content: userMessage, Timestamp: now},
			ConversationEntry{Role: llm.RoleAssistant, Content: botResponse, Timestamp: now},
		)
		if err != nil {
			d.log.Warn(caller.Username, requestID, "failed to persist conversation turn", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
		}
	}

	if d.recorder != nil {
		d.recorder.Record(ctx, caller.Username, conversationID, userMessage, botResponse)
	}
}
