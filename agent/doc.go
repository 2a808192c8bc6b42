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

// Package agent is the HTTP gateway for the medical assistant.
//
// It authenticates callers with HS256 JWTs, resolves their permissions (from
// the token's permissions claim, or from the database when the claim is
// absent), rate-limits per user, and hands chat messages to the orchestrator
// dispatcher. Permission denials are not transport errors: the chat endpoint
// returns HTTP 200 with the denial text in the response body, so clients
// render denials like any other assistant reply.
//
// Observability: GET /metrics serves a JSON counter snapshot and
// GET /prometheus the Prometheus exposition format.
package agent
