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

package llm

import "context"

// Provider is the unified interface for all LLM providers.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name returns the unique identifier for this provider instance,
	// used for routing, logging, and metrics.
	Name() string

	// Type identifies the underlying implementation.
	Type() ProviderType

	// Chat generates a chat completion. When the request carries tool
	// definitions and the provider supports function calling, the response
	// may contain tool calls instead of content.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// HealthCheck verifies the provider is operational. Implementations
	// should check API connectivity and authentication.
	HealthCheck(ctx context.Context) (*HealthCheckResult, error)

	// Capabilities returns the features this provider supports. The
	// registry uses it to route agent traffic only to function-calling
	// providers.
	Capabilities() []Capability
}
