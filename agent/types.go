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

package agent

import "time"

// ChatRequest is the POST /api/v1/agent/chat body.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the chat endpoint response. Permission denials use the
// same shape with the denial text in Response and HTTP 200.
type ChatResponse struct {
	Response       string   `json:"response"`
	ConversationID string   `json:"conversation_id,omitempty"`
	AgentUsedTools bool     `json:"agent_used_tools"`
	AvailableTools []string `json:"available_tools"`
	Status         string   `json:"status"`
}

// ToolInfo describes one registered tool for GET /api/v1/agent/tools.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolsResponse is the tools listing response.
type ToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
	Count int        `json:"count"`
}

// ConversationHistoryResponse is the transcript for one conversation.
type ConversationHistoryResponse struct {
	ConversationID string                `json:"conversation_id"`
	Messages       []ConversationMessage `json:"messages"`
	Count          int                   `json:"count"`
}

// ConversationMessage is one transcript turn on the wire.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PermissionsResponse echoes the decoded caller identity for
// POST /api/v1/agent/permissions.
type PermissionsResponse struct {
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
	CanUseAgent bool     `json:"can_use_agent"`
	CanView     bool     `json:"can_view_patients"`
	CanManage   bool     `json:"can_manage_patients"`
}

// ErrorResponse is the JSON error body for non-200 responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
