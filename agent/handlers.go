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
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"medbotassist/platform/agent/policy"
	"medbotassist/platform/orchestrator"
	"medbotassist/platform/shared/logger"
	"medbotassist/platform/tools"
)

// Server wires the HTTP surface: auth, rate limiting, dispatch, and the
// observability endpoints.
type Server struct {
	auth          *Authenticator
	dispatcher    *orchestrator.Dispatcher
	conversations *orchestrator.ConversationStore
	tools         *tools.Registry
	limiter       *RateLimiter
	metrics       *Metrics
	ready         func() bool
	log           *logger.Logger
}

// NewServer assembles the HTTP layer. The conversation store may be nil;
// ready reports initialization state for the health endpoint (nil means
// always ready).
func NewServer(auth *Authenticator, dispatcher *orchestrator.Dispatcher, conversations *orchestrator.ConversationStore,
	toolRegistry *tools.Registry, limiter *RateLimiter, metrics *Metrics, ready func() bool) *Server {
	return &Server{
		auth:          auth,
		dispatcher:    dispatcher,
		conversations: conversations,
		tools:         toolRegistry,
		limiter:       limiter,
		metrics:       metrics,
		ready:         ready,
		log:           logger.New("agent"),
	}
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.HandleFunc("/metrics", s.metricsHandler).Methods("GET")
	router.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1/agent").Subrouter()
	api.HandleFunc("/chat", s.chatHandler).Methods("POST")
	api.HandleFunc("/tools", s.toolsHandler).Methods("GET")
	api.HandleFunc("/conversation/{id}", s.conversationHandler).Methods("GET")
	api.HandleFunc("/conversation/{id}", s.clearConversationHandler).Methods("DELETE")
	api.HandleFunc("/permissions", s.permissionsHandler).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

// chatHandler runs one agent exchange. Permission denials are HTTP 200 with
// the denial text in the response body; only transport-level problems
// (auth, rate limit, malformed body) use error status codes.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	caller, err := s.auth.Authenticate(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	if s.limiter != nil && !s.limiter.Allow(r.Context(), caller.Username) {
		s.metrics.RecordRateLimited()
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "message is required")
		return
	}

	result := s.dispatcher.Dispatch(r.Context(), req.Message, req.ConversationID, caller)

	if result.Status == orchestrator.StatusDenied {
		s.metrics.RecordDenial(string(policy.UseAgent))
	}
	s.metrics.RecordChat(result.Status, time.Since(start), result.ToolsUsed)

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:       result.Response,
		ConversationID: result.ConversationID,
		AgentUsedTools: len(result.ToolsUsed) > 0,
		AvailableTools: s.tools.Names(),
		Status:         result.Status,
	})
}

func (s *Server) toolsHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.Authenticate(r.Context(), r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	registered := s.tools.List()
	infos := make([]ToolInfo, 0, len(registered))
	for _, t := range registered {
		infos = append(infos, ToolInfo{Name: t.Name, Description: t.Description})
	}
	writeJSON(w, http.StatusOK, ToolsResponse{Tools: infos, Count: len(infos)})
}

func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.Authenticate(r.Context(), r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	conversationID := mux.Vars(r)["id"]
	var messages []ConversationMessage
	if s.conversations != nil {
		history, err := s.conversations.History(r.Context(), conversationID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load conversation")
			return
		}
		for _, entry := range history {
			messages = append(messages, ConversationMessage{
				Role:      entry.Role,
				Content:   entry.Content,
				Timestamp: entry.Timestamp,
			})
		}
	}

	writeJSON(w, http.StatusOK, ConversationHistoryResponse{
		ConversationID: conversationID,
		Messages:       messages,
		Count:          len(messages),
	})
}

// clearConversationHandler deletes a transcript. Clearing is an
// administrative action gated on patient management rights.
func (s *Server) clearConversationHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := s.auth.Authenticate(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	if ok, _ := policy.ValidateManageAccess(caller); !ok {
		writeError(w, http.StatusForbidden, "forbidden", "clearing conversations requires patient management permission")
		return
	}

	conversationID := mux.Vars(r)["id"]
	if s.conversations != nil {
		if err := s.conversations.Clear(r.Context(), conversationID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to clear conversation")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "conversation history cleared",
		"conversation_id": conversationID,
		"status":          "success",
	})
}

func (s *Server) permissionsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := s.auth.Authenticate(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	canAgent, _ := policy.ValidateAgentAccess(caller)
	canView, _ := policy.ValidateViewAccess(caller)
	canManage, _ := policy.ValidateManageAccess(caller)

	writeJSON(w, http.StatusOK, PermissionsResponse{
		Username:    caller.Username,
		Permissions: caller.Permissions,
		CanUseAgent: canAgent,
		CanView:     canView,
		CanManage:   canManage,
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.ready != nil && !s.ready() {
		status = "starting"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"service":   "medbot-agent",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
