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

// Package orchestrator runs the agent loop for the medical assistant.
//
// The Dispatcher takes one authenticated user message at a time: it gates on
// the UseAgent permission before any model call, feeds the LLM the
// conversation window and the tool catalog, executes requested tools
// sequentially against the registry, and returns the model's final answer.
// The loop is bounded; after the iteration cap the provider must answer
// without tools. Every failure folds into an apologetic response with status
// "error" - nothing in the loop is fatal to the process.
//
// The ConversationStore keeps transcripts in Redis keyed by conversation id.
// Appends are serialized per conversation within one process; cross-process
// writes are last-write-wins.
package orchestrator
