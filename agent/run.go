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

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/go-redis/redis/v8"

	"medbotassist/platform/common/interactions"
	"medbotassist/platform/connectors/base"
	"medbotassist/platform/connectors/config"
	connhttp "medbotassist/platform/connectors/http"
	"medbotassist/platform/connectors/postgres"
	"medbotassist/platform/orchestrator"
	"medbotassist/platform/orchestrator/llm"
	"medbotassist/platform/orchestrator/llm/bedrock"
	"medbotassist/platform/orchestrator/llm/openai"
	"medbotassist/platform/tools"
)

// appReady lets the health endpoint answer "starting" while initialization
// (database, Redis, providers) is still in progress.
var appReady atomic.Bool

// Run is the entry point for the gateway service. It initializes every
// dependency from environment variables and serves until the process exits.
func Run() {
	port := getEnv("PORT", "8080")
	ctx := context.Background()

	log.Printf("🚀 MedBotAssist gateway starting on port %s", port)

	// 1. Patient database (Postgres)
	patientsDB := postgres.NewPostgresConnector()
	if err := patientsDB.Connect(ctx, &base.ConnectorConfig{
		Name:          "patients-db",
		Type:          "postgres",
		ConnectionURL: databaseURL(),
	}); err != nil {
		log.Fatalf("Failed to connect to patient database: %v", err)
	}
	log.Println("✅ Patient database connected")

	// 2. External patient backend (REST)
	backendURL := getEnv("EXTERNAL_BACKEND_API_URL", "")
	if backendURL == "" {
		log.Fatal("EXTERNAL_BACKEND_API_URL is required")
	}
	backend := connhttp.NewHTTPConnector()
	if err := backend.Connect(ctx, &base.ConnectorConfig{
		Name:          "patient-backend",
		Type:          "http",
		ConnectionURL: backendURL,
		Options:       map[string]interface{}{"allow_private_ips": true},
	}); err != nil {
		log.Fatalf("Failed to configure external backend connector: %v", err)
	}
	log.Printf("✅ External backend configured: %s", backendURL)

	// Optional connectors.yaml overrides the env-built defaults.
	if path := os.Getenv("CONNECTORS_CONFIG"); path != "" {
		if loader, err := config.NewYAMLConfigFileLoader(path); err != nil {
			log.Printf("⚠️  Failed to load %s: %v (using env configuration)", path, err)
		} else if configs, err := loader.LoadConnectors(); err == nil {
			log.Printf("✅ Loaded %d connector definitions from %s", len(configs), path)
			if err := applyConnectorOverrides(ctx, patientsDB, backend, configs); err != nil {
				log.Fatalf("Failed to apply %s: %v", path, err)
			}
		}
	}

	// 3. Tool registry over the patient store and backend
	repo := tools.NewRepository(patientsDB)
	toolRegistry := tools.NewRegistry(repo, backend)
	log.Printf("✅ Tool registry ready (%d tools)", len(toolRegistry.Names()))

	// 4. LLM providers
	providers := llm.NewRegistry()
	openaiProvider, err := openai.NewProvider(openai.Config{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  os.Getenv("OPENAI_MODEL"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenAI provider: %v", err)
	}
	if err := providers.Register(openaiProvider); err != nil {
		log.Fatalf("Failed to register OpenAI provider: %v", err)
	}
	log.Println("✅ OpenAI provider registered")

	if region := os.Getenv("BEDROCK_REGION"); region != "" {
		bedrockProvider, err := bedrock.NewProvider(ctx, bedrock.Config{
			Region: region,
			Model:  os.Getenv("BEDROCK_MODEL_ID"),
		})
		if err != nil {
			log.Printf("⚠️  Bedrock provider unavailable: %v", err)
		} else if err := providers.Register(bedrockProvider); err != nil {
			log.Printf("⚠️  Failed to register Bedrock provider: %v", err)
		} else {
			log.Println("✅ Bedrock provider registered")
		}
	}

	// 5. Conversation store and rate limiter (Redis, both optional)
	var conversations *orchestrator.ConversationStore
	var redisClient *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		conversations, err = orchestrator.NewConversationStore(redisURL, 0, 0)
		if err != nil {
			log.Printf("⚠️  Redis unavailable: %v (conversations disabled, in-memory rate limiting)", err)
		} else {
			if opts, err := redis.ParseURL(redisURL); err == nil {
				redisClient = redis.NewClient(opts)
			}
			log.Println("✅ Redis connected")
		}
	} else {
		log.Println("⚠️  REDIS_URL not set - conversations disabled, in-memory rate limiting")
	}
	limiter := NewRateLimiter(redisClient, envInt("RATE_LIMIT_PER_MINUTE", DefaultRateLimitPerMinute))

	// 6. Interaction audit
	var recorderOpt []orchestrator.DispatcherOption
	recorder := interactions.NewRecorder(patientsDB.DB())
	if err := recorder.Start(ctx); err != nil {
		log.Printf("⚠️  Interaction audit disabled: %v", err)
	} else {
		recorderOpt = append(recorderOpt, orchestrator.WithRecorder(recorder))
		log.Println("✅ Interaction audit ready")
	}

	// 7. Dispatcher and HTTP layer
	dispatcher := orchestrator.NewDispatcher(providers, toolRegistry, conversations, recorderOpt...)

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		log.Fatal("JWT_SECRET is required")
	}
	auth := NewAuthenticator(jwtSecret, os.Getenv("JWT_ISSUER"), os.Getenv("JWT_AUDIENCE"), repo)

	server := NewServer(auth, dispatcher, conversations, toolRegistry, limiter, NewMetrics(), appReady.Load)

	appReady.Store(true)
	log.Printf("✅ MedBotAssist gateway ready on port %s", port)
	if err := http.ListenAndServe(":"+port, server.Handler()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// applyConnectorOverrides connects each declared connector to the runtime
// instance matching its type. Types the gateway does not run are skipped
// with a warning rather than silently dropped.
func applyConnectorOverrides(ctx context.Context, patientsDB, backend base.Connector, configs []*base.ConnectorConfig) error {
	for _, cc := range configs {
		switch cc.Type {
		case "postgres":
			if err := patientsDB.Connect(ctx, cc); err != nil {
				return fmt.Errorf("failed to connect %s: %w", cc.Name, err)
			}
		case "http":
			if err := backend.Connect(ctx, cc); err != nil {
				return fmt.Errorf("failed to configure %s: %w", cc.Name, err)
			}
		default:
			log.Printf("⚠️  Skipping connector %s: unsupported type %q", cc.Name, cc.Type)
		}
	}
	return nil
}

// databaseURL builds the Postgres connection string from DB_* variables.
func databaseURL() string {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	name := getEnv("DB_NAME", "medbotassist")
	user := getEnv("DB_USER", "postgres")
	password := os.Getenv("DB_PASSWORD")
	sslMode := getEnv("DB_SSLMODE", "require")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, url.QueryEscape(password), host, port, name, sslMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
