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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	promChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_agent_chat_requests_total",
			Help: "Total number of chat requests processed, by outcome",
		},
		[]string{"status"},
	)
	promChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medbot_agent_chat_duration_milliseconds",
			Help:    "Chat request duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"status"},
	)
	promDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_agent_denials_total",
			Help: "Total number of permission denials, by denied permission",
		},
		[]string{"permission"},
	)
	promToolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_agent_tool_invocations_total",
			Help: "Total number of tool invocations, by tool",
		},
		[]string{"tool"},
	)
	promRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medbot_agent_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

var registerMetricsOnce sync.Once

func registerMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(promChatRequestsTotal)
		prometheus.MustRegister(promChatDuration)
		prometheus.MustRegister(promDenialsTotal)
		prometheus.MustRegister(promToolInvocations)
		prometheus.MustRegister(promRateLimited)
	})
}

// Metrics tracks service-level counters for the JSON /metrics snapshot and
// mirrors them into Prometheus.
type Metrics struct {
	mu            sync.RWMutex
	startTime     time.Time
	totalRequests int64
	successCount  int64
	deniedCount   int64
	errorCount    int64
	rateLimited   int64
	toolCounts    map[string]int64
	lastLatencies []int64
}

// NewMetrics creates the metrics tracker and registers the Prometheus
// collectors.
func NewMetrics() *Metrics {
	registerMetrics()
	return &Metrics{
		startTime:     time.Now(),
		toolCounts:    make(map[string]int64),
		lastLatencies: make([]int64, 0, 1000),
	}
}

// RecordChat records one completed chat request.
func (m *Metrics) RecordChat(status string, latency time.Duration, toolsUsed []string) {
	latencyMS := latency.Milliseconds()
	promChatRequestsTotal.WithLabelValues(status).Inc()
	promChatDuration.WithLabelValues(status).Observe(float64(latencyMS))
	for _, tool := range toolsUsed {
		promToolInvocations.WithLabelValues(tool).Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	switch status {
	case "success":
		m.successCount++
	case "denied":
		m.deniedCount++
	default:
		m.errorCount++
	}
	for _, tool := range toolsUsed {
		m.toolCounts[tool]++
	}
	// Keep a bounded window for the latency snapshot.
	if len(m.lastLatencies) >= 1000 {
		m.lastLatencies = m.lastLatencies[1:]
	}
	m.lastLatencies = append(m.lastLatencies, latencyMS)
}

// RecordDenial records which permission was missing.
func (m *Metrics) RecordDenial(permission string) {
	promDenialsTotal.WithLabelValues(permission).Inc()
}

// RecordRateLimited records a rejected request.
func (m *Metrics) RecordRateLimited() {
	promRateLimited.Inc()
	m.mu.Lock()
	m.rateLimited++
	m.mu.Unlock()
}

// Snapshot returns the JSON body for GET /metrics.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var avgLatency float64
	if len(m.lastLatencies) > 0 {
		var sum int64
		for _, l := range m.lastLatencies {
			sum += l
		}
		avgLatency = float64(sum) / float64(len(m.lastLatencies))
	}

	tools := make(map[string]int64, len(m.toolCounts))
	for k, v := range m.toolCounts {
		tools[k] = v
	}

	return map[string]interface{}{
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
		"total_requests":     m.totalRequests,
		"success_count":      m.successCount,
		"denied_count":       m.deniedCount,
		"error_count":        m.errorCount,
		"rate_limited_count": m.rateLimited,
		"avg_latency_ms":     avgLatency,
		"tool_invocations":   tools,
	}
}
