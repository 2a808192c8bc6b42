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

// Package main is the entry point for the MedBotAssist gateway service.
//
// The gateway authenticates medical staff, enforces permissions, and serves
// the assistant's chat API backed by the patient database and the external
// patient backend.
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	JWT_SECRET - Secret for JWT token validation (required)
//	JWT_ISSUER / JWT_AUDIENCE - Expected token issuer and audience
//	OPENAI_API_KEY - OpenAI API key (required)
//	OPENAI_MODEL - Model override (default: gpt-4o-mini)
//	DB_HOST / DB_PORT / DB_NAME / DB_USER / DB_PASSWORD / DB_SSLMODE - Patient database
//	EXTERNAL_BACKEND_API_URL - Patient backend base URL (required)
//	REDIS_URL - Conversation store and rate limiting (optional)
//	BEDROCK_REGION / BEDROCK_MODEL_ID - AWS Bedrock fallback provider (optional)
//	CONNECTORS_CONFIG - Optional connectors.yaml path
package main

import (
	"medbotassist/platform/agent"
)

func main() {
	agent.Run()
}
