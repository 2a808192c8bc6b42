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

/*
Package config provides declarative connector and LLM provider configuration
from a YAML file, plus a small TTL cache used for permission lookups.

# Overview

Deployments can describe their connectors and LLM providers in a single
YAML file (CONNECTORS_CONFIG env var points at it). The file is optional:
when absent, the gateway builds the same configuration from individual
environment variables.

# Configuration File

	version: "1.0"

	connectors:
	  patients_db:
	    type: postgres
	    enabled: true
	    connection_url: ${DATABASE_URL}
	    timeout_ms: 30000

	  patient_backend:
	    type: http
	    enabled: true
	    options:
	      base_url: ${EXTERNAL_BACKEND_API_URL}

	llm_providers:
	  openai:
	    enabled: true
	    config:
	      model: ${OPENAI_MODEL:-gpt-4o-mini}
	    credentials:
	      api_key: ${OPENAI_API_KEY}

Environment variables are expanded with ${VAR} or ${VAR:-default} syntax
before parsing. Undefined variables without a default become empty strings.

# Usage

	loader, err := config.NewYAMLConfigFileLoader(path)
	if err != nil {
	    log.Fatal(err)
	}
	connectors, _ := loader.LoadConnectors()
	providers, _ := loader.LoadLLMProviders()

# Cache

Cache is a generic TTL cache. The gateway keeps one for the database
permission fallback so each username's permissions are fetched at most once
per TTL window:

	permCache := config.NewCache[[]string](30 * time.Second)

# Thread Safety

The cache is safe for concurrent use. The loader is not; load configs at
startup before serving.
*/
package config
