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

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"medbotassist/platform/connectors/base"

	"gopkg.in/yaml.v3"
)

// ConfigFile represents the root structure of a configuration file
type ConfigFile struct {
	Version      string                           `yaml:"version"`
	Connectors   map[string]ConnectorFileConfig   `yaml:"connectors,omitempty"`
	LLMProviders map[string]LLMProviderFileConfig `yaml:"llm_providers,omitempty"`
}

// ConnectorFileConfig represents a connector configuration in the config file
type ConnectorFileConfig struct {
	Type          string                 `yaml:"type"`
	Enabled       bool                   `yaml:"enabled"`
	DisplayName   string                 `yaml:"display_name,omitempty"`
	Description   string                 `yaml:"description,omitempty"`
	ConnectionURL string                 `yaml:"connection_url,omitempty"`
	Credentials   map[string]string      `yaml:"credentials,omitempty"`
	Options       map[string]interface{} `yaml:"options,omitempty"`
	TimeoutMs     int                    `yaml:"timeout_ms,omitempty"`
}

// LLMProviderFileConfig represents an LLM provider configuration in the config file
type LLMProviderFileConfig struct {
	Enabled     bool                   `yaml:"enabled"`
	DisplayName string                 `yaml:"display_name,omitempty"`
	Config      map[string]interface{} `yaml:"config,omitempty"`
	Credentials map[string]string      `yaml:"credentials,omitempty"`
}

// LLMProviderConfig is the resolved provider configuration handed to the
// provider registry at startup.
type LLMProviderConfig struct {
	ProviderName string
	DisplayName  string
	Config       map[string]interface{}
	Credentials  map[string]string
	Enabled      bool
}

// YAMLConfigFileLoader loads configurations from a YAML file
type YAMLConfigFileLoader struct {
	filePath string
	config   *ConfigFile
}

// NewYAMLConfigFileLoader creates a new YAML config file loader
func NewYAMLConfigFileLoader(filePath string) (*YAMLConfigFileLoader, error) {
	loader := &YAMLConfigFileLoader{
		filePath: filePath,
	}

	if err := loader.reload(); err != nil {
		return nil, err
	}

	return loader, nil
}

// reload reads and parses the configuration file
func (l *YAMLConfigFileLoader) reload() error {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", l.filePath, err)
	}

	// Expand environment variables in the content
	expanded := expandEnvVars(string(data))

	var config ConfigFile
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	l.config = &config
	return nil
}

// LoadConnectors returns the enabled connector configs from the config file
func (l *YAMLConfigFileLoader) LoadConnectors() ([]*base.ConnectorConfig, error) {
	if l.config == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	var configs []*base.ConnectorConfig

	for name, fileConfig := range l.config.Connectors {
		if !fileConfig.Enabled {
			continue
		}

		timeout := time.Duration(fileConfig.TimeoutMs) * time.Millisecond
		if timeout == 0 {
			timeout = 30 * time.Second
		}

		options := fileConfig.Options
		if options == nil {
			options = make(map[string]interface{})
		}

		credentials := fileConfig.Credentials
		if credentials == nil {
			credentials = make(map[string]string)
		}

		cfg := &base.ConnectorConfig{
			Name:          name,
			Type:          fileConfig.Type,
			ConnectionURL: fileConfig.ConnectionURL,
			Credentials:   credentials,
			Options:       options,
			Timeout:       timeout,
		}

		configs = append(configs, cfg)
	}

	return configs, nil
}

// LoadLLMProviders returns the enabled LLM provider configs from the config file
func (l *YAMLConfigFileLoader) LoadLLMProviders() ([]*LLMProviderConfig, error) {
	if l.config == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	var configs []*LLMProviderConfig

	for name, fileConfig := range l.config.LLMProviders {
		if !fileConfig.Enabled {
			continue
		}

		providerConfig := fileConfig.Config
		if providerConfig == nil {
			providerConfig = make(map[string]interface{})
		}

		credentials := fileConfig.Credentials
		if credentials == nil {
			credentials = make(map[string]string)
		}

		cfg := &LLMProviderConfig{
			ProviderName: name,
			DisplayName:  fileConfig.DisplayName,
			Config:       providerConfig,
			Credentials:  credentials,
			Enabled:      true,
		}

		configs = append(configs, cfg)
	}

	return configs, nil
}

// Reload reloads the configuration file
func (l *YAMLConfigFileLoader) Reload() error {
	return l.reload()
}

// envVarRegex matches ${VAR_NAME} or $VAR_NAME patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands environment variable references in the string
// Supports both ${VAR_NAME} and $VAR_NAME syntax
// Returns empty string for undefined variables
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		// Handle default values: ${VAR_NAME:-default}
		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		if defaultVal != "" {
			return defaultVal
		}

		return ""
	})
}

// ValidateConfigFile validates the structure of a config file
func ValidateConfigFile(config *ConfigFile) error {
	if config.Version == "" {
		return fmt.Errorf("config file must specify a version")
	}

	for name, connector := range config.Connectors {
		if connector.Type == "" {
			return fmt.Errorf("connector '%s' must specify a type", name)
		}

		validTypes := map[string]bool{
			"postgres": true,
			"http":     true,
			"custom":   true,
		}

		if !validTypes[connector.Type] {
			return fmt.Errorf("connector '%s' has invalid type '%s'", name, connector.Type)
		}
	}

	for name := range config.LLMProviders {
		validProviders := map[string]bool{
			"openai":  true,
			"bedrock": true,
		}

		if !validProviders[name] {
			return fmt.Errorf("invalid LLM provider '%s'", name)
		}
	}

	return nil
}

// GenerateExampleConfigFile generates an example configuration file
func GenerateExampleConfigFile() string {
	return `# MedBotAssist Runtime Configuration
# This file configures data-source connectors and LLM providers.
# Environment variables can be referenced using ${VAR_NAME} or ${VAR_NAME:-default} syntax.

version: "1.0"

connectors:
  # Patient store (PostgreSQL)
  patients_db:
    type: postgres
    enabled: true
    display_name: "Patient Store"
    description: "Patients, appointments, diagnoses, users and audit tables"
    connection_url: ${DATABASE_URL}
    options:
      max_open_conns: 25
      max_idle_conns: 5
      conn_max_lifetime: "5m"
    timeout_ms: 30000

  # External patient backend (REST)
  patient_backend:
    type: http
    enabled: true
    display_name: "Patient Backend API"
    description: "External REST backend for patient create/update"
    options:
      base_url: ${EXTERNAL_BACKEND_API_URL}
      allow_private_ips: true
    timeout_ms: 30000

llm_providers:
  # OpenAI (primary: function calling drives the tool loop)
  openai:
    enabled: true
    display_name: "OpenAI"
    config:
      model: ${OPENAI_MODEL:-gpt-4o-mini}
      max_tokens: 4096
    credentials:
      api_key: ${OPENAI_API_KEY}

  # Amazon Bedrock (completion fallback, no function calling)
  bedrock:
    enabled: false  # Enable when AWS credentials are available
    display_name: "Amazon Bedrock"
    config:
      region: ${BEDROCK_REGION:-us-east-1}
      model: ${BEDROCK_MODEL_ID:-anthropic.claude-3-5-sonnet-20240620-v1:0}
`
}
