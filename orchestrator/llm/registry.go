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

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Registry holds the configured providers. Providers register at startup;
// lookups are concurrent-safe.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under its Name(). Registering the same name
// twice is a configuration error.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.providers[name] = p
	r.order = append(r.order, name)
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// List returns all providers in registration order.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// SelectForCapability returns the first registered provider supporting the
// capability. Registration order is priority order: register the primary
// provider first.
func (r *Registry) SelectForCapability(cap Capability) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		p := r.providers[name]
		for _, c := range p.Capabilities() {
			if c == cap {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("no provider supports capability %q", cap)
}

// HealthCheckAll runs health checks on every registered provider, keyed by
// provider name. A provider whose check errors is reported unhealthy rather
// than failing the whole sweep.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]*HealthCheckResult {
	results := make(map[string]*HealthCheckResult)
	for _, p := range r.List() {
		result, err := p.HealthCheck(ctx)
		if err != nil {
			result = &HealthCheckResult{
				Status:      HealthStatusUnhealthy,
				Message:     err.Error(),
				LastChecked: time.Now(),
			}
		}
		results[p.Name()] = result
	}
	return results
}
