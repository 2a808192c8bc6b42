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

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// DefaultConversationTTL bounds how long idle transcripts live in Redis.
	DefaultConversationTTL = 24 * time.Hour

	// DefaultHistoryWindow is the number of trailing entries fed to the LLM.
	DefaultHistoryWindow = 20

	// lockStripes is the size of the fixed append-serialization mutex pool.
	// Conversations hash onto a stripe, so memory does not grow with the
	// number of conversation ids.
	lockStripes = 64

	conversationKeyPrefix = "conversation:"
)

// ConversationEntry is one turn of a stored transcript.
type ConversationEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationStore keeps chat transcripts in Redis, keyed by conversation
// id. Appends are read-modify-write, serialized per conversation within this
// process; across processes the last writer wins.
type ConversationStore struct {
	client *redis.Client
	ttl    time.Duration
	window int

	locks [lockStripes]sync.Mutex
}

// NewConversationStore connects to Redis and verifies the connection.
func NewConversationStore(redisURL string, ttl time.Duration, window int) (*ConversationStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newConversationStore(client, ttl, window), nil
}

func newConversationStore(client *redis.Client, ttl time.Duration, window int) *ConversationStore {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &ConversationStore{
		client: client,
		ttl:    ttl,
		window: window,
	}
}

// Append adds entries to the end of a conversation transcript and refreshes
// its TTL.
func (s *ConversationStore) Append(ctx context.Context, conversationID string, entries ...ConversationEntry) error {
	lock := s.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	history, err := s.load(ctx, conversationID)
	if err != nil {
		return err
	}
	history = append(history, entries...)

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := s.client.Set(ctx, conversationKey(conversationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store transcript: %w", err)
	}
	return nil
}

// History returns the full transcript, oldest first. A missing conversation
// is an empty transcript, not an error.
func (s *ConversationStore) History(ctx context.Context, conversationID string) ([]ConversationEntry, error) {
	return s.load(ctx, conversationID)
}

// Window returns the trailing entries fed to the LLM.
func (s *ConversationStore) Window(ctx context.Context, conversationID string) ([]ConversationEntry, error) {
	history, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(history) > s.window {
		history = history[len(history)-s.window:]
	}
	return history, nil
}

// Clear deletes a conversation transcript.
func (s *ConversationStore) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, conversationKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *ConversationStore) Close() error {
	return s.client.Close()
}

func (s *ConversationStore) load(ctx context.Context, conversationID string) ([]ConversationEntry, error) {
	data, err := s.client.Get(ctx, conversationKey(conversationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	var history []ConversationEntry
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("corrupt transcript for %s: %w", conversationID, err)
	}
	return history, nil
}

func (s *ConversationStore) conversationLock(conversationID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	return &s.locks[h.Sum32()%lockStripes]
}

func conversationKey(conversationID string) string {
	return conversationKeyPrefix + conversationID
}
