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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestStore(t *testing.T, window int) (*ConversationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newConversationStore(client, time.Hour, window)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func entry(role, content string) ConversationEntry {
	return ConversationEntry{Role: role, Content: content, Timestamp: time.Now()}
}

func TestConversationStore_AppendAndHistory(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	if err := store.Append(ctx, "conv-1", entry("user", "hello"), entry("assistant", "hi")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, "conv-1", entry("user", "find garcia")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	history, err := store.History(ctx, "conv-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history = %d entries", len(history))
	}
	if history[0].Content != "hello" || history[2].Content != "find garcia" {
		t.Errorf("order wrong: %+v", history)
	}
	if history[1].Role != "assistant" {
		t.Errorf("role = %q", history[1].Role)
	}
}

func TestConversationStore_MissingConversationIsEmpty(t *testing.T) {
	store, _ := newTestStore(t, 0)

	history, err := store.History(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %+v", history)
	}
}

func TestConversationStore_WindowTrimsHistory(t *testing.T) {
	store, _ := newTestStore(t, 4)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := store.Append(ctx, "conv-1", entry("user", fmt.Sprintf("message %d", i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	window, err := store.Window(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if len(window) != 4 {
		t.Fatalf("window = %d entries", len(window))
	}
	if window[0].Content != "message 6" || window[3].Content != "message 9" {
		t.Errorf("window wrong: %+v", window)
	}

	// Full history stays intact.
	history, _ := store.History(ctx, "conv-1")
	if len(history) != 10 {
		t.Errorf("history = %d entries", len(history))
	}
}

func TestConversationStore_TTLSet(t *testing.T) {
	store, mr := newTestStore(t, 0)

	if err := store.Append(context.Background(), "conv-1", entry("user", "hello")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ttl := mr.TTL("conversation:conv-1"); ttl <= 0 || ttl > time.Hour {
		t.Errorf("ttl = %v", ttl)
	}
}

func TestConversationStore_Clear(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	_ = store.Append(ctx, "conv-1", entry("user", "hello"))
	if err := store.Clear(ctx, "conv-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	history, err := store.History(ctx, "conv-1")
	if err != nil || len(history) != 0 {
		t.Errorf("history after clear = %+v, %v", history, err)
	}
}

func TestConversationStore_ConcurrentAppends(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Append(ctx, "conv-1", entry("user", fmt.Sprintf("m%d", i)))
		}(i)
	}
	wg.Wait()

	// Per-conversation locking means no append is lost within one process.
	history, err := store.History(ctx, "conv-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 20 {
		t.Errorf("history = %d entries, want 20", len(history))
	}
}

func TestConversationStore_LockPoolIsBounded(t *testing.T) {
	store, _ := newTestStore(t, 0)

	if store.conversationLock("conv-1") != store.conversationLock("conv-1") {
		t.Error("same conversation mapped to different locks")
	}

	seen := make(map[*sync.Mutex]bool)
	for i := 0; i < 10*lockStripes; i++ {
		seen[store.conversationLock(fmt.Sprintf("conv-%d", i))] = true
	}
	if len(seen) > lockStripes {
		t.Errorf("lock pool grew to %d entries", len(seen))
	}
}
