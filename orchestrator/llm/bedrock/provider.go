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

// Package bedrock implements an AWS Bedrock provider for Anthropic models.
// It covers chat and completion; it does not expose function calling, so the
// registry never routes the agent's tool loop here.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"medbotassist/platform/orchestrator/llm"
)

const (
	// DefaultModel is the Anthropic model used when none is configured.
	DefaultModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"

	// DefaultRegion is used when no region is configured.
	DefaultRegion = "us-east-1"

	// DefaultMaxTokens is the default max output tokens for completions.
	DefaultMaxTokens = 4096

	// DefaultTemperature is the default sampling temperature.
	DefaultTemperature = 0.7

	// anthropicVersion is the Bedrock Anthropic API version.
	anthropicVersion = "bedrock-2023-05-31"
)

// BedrockClient is an interface over the Bedrock runtime (enables testing).
type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config contains configuration for the Bedrock provider.
type Config struct {
	Region      string  // Optional: AWS region (default: us-east-1)
	Model       string  // Optional: Bedrock model ID
	Temperature float64 // Optional: default temperature
}

// Provider implements llm.Provider over AWS Bedrock.
type Provider struct {
	client      BedrockClient
	model       string
	region      string
	temperature float64
}

// NewProvider creates a Bedrock provider using the default AWS credential
// chain for the configured region.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Provider{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		model:       cfg.Model,
		region:      cfg.Region,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "bedrock"
}

// Type returns the provider type.
func (p *Provider) Type() llm.ProviderType {
	return llm.ProviderTypeBedrock
}

// Capabilities returns the provider's capabilities. Function calling is
// deliberately absent.
func (p *Provider) Capabilities() []llm.Capability {
	return []llm.Capability{
		llm.CapabilityChat,
		llm.CapabilityCompletion,
	}
}

// Chat generates a chat completion through the Anthropic messages API on
// Bedrock. Tool definitions in the request are ignored.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	start := time.Now()

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	temperature := req.Temperature
	if temperature < 0 {
		temperature = p.temperature
	}

	body := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		System:           req.SystemPrompt,
		Messages:         buildMessages(req.Messages),
	}

	requestJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        requestJSON,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invocation failed: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(output.Body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var content strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &llm.ChatResponse{
		Content:      content.String(),
		Model:        model,
		FinishReason: mapStopReason(apiResp.StopReason),
		Usage: llm.UsageStats{
			PromptTokens:     apiResp.Usage.InputTokens,
			CompletionTokens: apiResp.Usage.OutputTokens,
			TotalTokens:      apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		},
		Latency: time.Since(start),
	}, nil
}

// HealthCheck invokes the model with a minimal prompt. Bedrock has no cheap
// ping endpoint, so a one-token completion is the probe.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthCheckResult, error) {
	start := time.Now()

	_, err := p.Chat(ctx, &llm.ChatRequest{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil {
		return &llm.HealthCheckResult{
			Status:      llm.HealthStatusUnhealthy,
			Latency:     time.Since(start),
			Message:     err.Error(),
			LastChecked: time.Now(),
		}, nil
	}

	return &llm.HealthCheckResult{
		Status:      llm.HealthStatusHealthy,
		Latency:     time.Since(start),
		LastChecked: time.Now(),
	}, nil
}

// SetClient sets a custom Bedrock client for testing.
func (p *Provider) SetClient(client BedrockClient) {
	p.client = client
}

// buildMessages converts the transcript into the Anthropic messages format.
// Tool-role turns are folded into user content since this provider has no
// tool protocol.
func buildMessages(messages []llm.Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		content := m.Content
		switch m.Role {
		case llm.RoleTool:
			role = llm.RoleUser
			content = fmt.Sprintf("Tool %s returned:\n%s", m.Name, m.Content)
		case llm.RoleAssistant:
			if content == "" {
				continue
			}
		}
		out = append(out, anthropicMessage{Role: role, Content: content})
	}
	return out
}

// mapStopReason maps Anthropic stop reasons to standard reasons.
func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "max_tokens"
	default:
		return reason
	}
}

// Wire types for the Anthropic messages API on Bedrock.

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
