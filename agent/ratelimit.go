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
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"medbotassist/platform/shared/logger"
)

// DefaultRateLimitPerMinute is the per-user request budget.
const DefaultRateLimitPerMinute = 30

// inMemoryUserCap triggers eviction of idle users from the in-memory window
// so the fallback map stays bounded in long-running processes.
const inMemoryUserCap = 1024

// RateLimiter enforces a per-user sliding window. With Redis the window is
// shared across instances; without it (or on Redis errors) it degrades to an
// in-memory window, and on Redis failure it fails open rather than blocking
// legitimate traffic.
type RateLimiter struct {
	client *redis.Client
	limit  int
	log    *logger.Logger

	mu      sync.Mutex
	history map[string][]time.Time
}

// NewRateLimiter creates a rate limiter. A nil client means in-memory only.
func NewRateLimiter(client *redis.Client, limitPerMinute int) *RateLimiter {
	if limitPerMinute <= 0 {
		limitPerMinute = DefaultRateLimitPerMinute
	}
	return &RateLimiter{
		client:  client,
		limit:   limitPerMinute,
		log:     logger.New("ratelimit"),
		history: make(map[string][]time.Time),
	}
}

// Allow reports whether the user may make another request now.
func (rl *RateLimiter) Allow(ctx context.Context, username string) bool {
	if rl.client == nil {
		return rl.allowInMemory(username)
	}

	now := time.Now()
	key := fmt.Sprintf("ratelimit:%s", username)

	pipe := rl.client.Pipeline()
	minScore := now.Add(-time.Minute).Unix()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", minScore))
	pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.Unix()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, 2*time.Minute)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		// Fail open on Redis errors: availability over strictness.
		rl.log.Warn(username, "", "redis rate limit check failed, failing open", map[string]interface{}{
			"error": err.Error(),
		})
		return true
	}

	count := cmds[1].(*redis.IntCmd).Val()
	return count < int64(rl.limit)
}

func (rl *RateLimiter) allowInMemory(username string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	kept := rl.history[username][:0]
	for _, t := range rl.history[username] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.history[username] = kept
		return false
	}
	rl.history[username] = append(kept, now)

	if len(rl.history) > inMemoryUserCap {
		rl.pruneLocked(cutoff)
	}
	return true
}

// pruneLocked drops users with no requests inside the current window. The
// caller holds rl.mu.
func (rl *RateLimiter) pruneLocked(cutoff time.Time) {
	for user, times := range rl.history {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(rl.history, user)
		}
	}
}
