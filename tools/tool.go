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

package tools

import (
	"context"
	"fmt"
	"strconv"

	"medbotassist/platform/agent/policy"
	"medbotassist/platform/connectors/base"
	"medbotassist/platform/shared/logger"
	"medbotassist/platform/shared/types"
)

// Handler executes a tool invocation for an authenticated caller. Handlers
// never return Go errors; failures are folded into the returned text.
type Handler func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string

// Tool describes one operation the LLM can invoke.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON-schema object handed to the LLM as the
	// function's parameter definition.
	Parameters map[string]interface{}

	// Required lists the permissions checked, in order, before the handler
	// runs. The first missing permission determines the denial message.
	Required []policy.Permission

	handler Handler
}

// Registry is the static set of tools available to the agent. It is built
// once at startup and is safe for concurrent reads.
type Registry struct {
	tools map[string]*Tool
	order []string
	log   *logger.Logger
}

// NewRegistry builds the full tool set over the patient repository and the
// external patient backend connector.
func NewRegistry(repo *Repository, backend base.Connector) *Registry {
	r := &Registry{
		tools: make(map[string]*Tool),
		log:   logger.New("tools"),
	}

	// Read tools (patient store).
	r.register(searchPatientsTool(repo))
	r.register(searchPatientsByNameTool(repo))
	r.register(searchPatientsByContactTool(repo))
	r.register(getPatientByIDTool(repo))
	r.register(getPatientsSummaryTool(repo))
	r.register(filterPatientsByDemographicsTool(repo))

	// Clinical history tools (patient store).
	r.register(getPatientMedicalHistoryTool(repo))
	r.register(getPatientDiagnosesSummaryTool(repo))
	r.register(countPatientsByDiagnosisTool(repo))

	// Write tools (external backend).
	r.register(createPatientTool(backend))
	r.register(updatePatientTool(repo, backend))

	return r
}

func (r *Registry) register(t *Tool) {
	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate tool name %q", t.Name))
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Execute runs the named tool for the caller. Permissions are checked here,
// before the handler: a failed check returns the standard denial text and the
// handler never runs. Unknown names are reported in text so the dispatcher
// can feed the result straight back to the LLM.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}, caller *types.UserContext) string {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Unknown tool '%s'. Available tools: %v", name, r.order)
	}

	if ok, deniedOn := policy.Validate(t.Required, caller.Permissions); !ok {
		r.log.Warn(caller.DisplayName(), "", "Tool invocation denied", map[string]interface{}{
			"tool":               name,
			"missing_permission": string(deniedOn),
		})
		return policy.DenialMessage(caller, deniedOn)
	}

	return t.handler(ctx, args, caller)
}

// argString extracts a string argument, tolerating absent or null values.
func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// argInt extracts an integer argument. JSON numbers arrive as float64; some
// models also send numeric strings.
func argInt(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
