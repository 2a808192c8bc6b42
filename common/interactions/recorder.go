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

// Package interactions persists chat exchanges to the ChatbotInteractions
// audit table. Writes are buffered and flushed asynchronously: audit failures
// are logged, never surfaced to the chat request.
package interactions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medbotassist/platform/shared/logger"
)

const (
	// DefaultBatchSize triggers a flush when the buffer reaches this many
	// entries.
	DefaultBatchSize = 25

	// DefaultFlushInterval bounds how long an entry sits unflushed.
	DefaultFlushInterval = 5 * time.Second

	// bufferCapacity is the enqueue channel size. When full, new entries
	// are dropped with a warning rather than blocking the request path.
	bufferCapacity = 1024
)

const ensureTableSQL = `
CREATE TABLE IF NOT EXISTS "ChatbotInteractions" (
    "InteractionId" TEXT PRIMARY KEY,
    "UserId" TEXT NOT NULL,
    "Timestamp" TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    "InteractionType" TEXT NOT NULL,
    "UserMessage" TEXT NOT NULL,
    "BotResponse" TEXT NOT NULL,
    "ConversationId" TEXT
);
CREATE INDEX IF NOT EXISTS "IX_ChatbotInteractions_UserId" ON "ChatbotInteractions" ("UserId");
CREATE INDEX IF NOT EXISTS "IX_ChatbotInteractions_Timestamp" ON "ChatbotInteractions" ("Timestamp");
CREATE INDEX IF NOT EXISTS "IX_ChatbotInteractions_ConversationId" ON "ChatbotInteractions" ("ConversationId")`

// Interaction is one audited chat exchange.
type Interaction struct {
	InteractionID   string
	UserID          string
	Timestamp       time.Time
	InteractionType string
	UserMessage     string
	BotResponse     string
	ConversationID  string
}

// Recorder buffers interactions and writes them to Postgres in batches.
type Recorder struct {
	db            *sql.DB
	batchSize     int
	flushInterval time.Duration
	log           *logger.Logger

	buf  chan Interaction
	stop chan struct{}
	wg   sync.WaitGroup
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithBatchSize sets the flush batch size.
func WithBatchSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithFlushInterval sets the periodic flush interval.
func WithFlushInterval(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// NewRecorder creates a recorder over an open database handle.
func NewRecorder(db *sql.DB, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		db:            db,
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		log:           logger.New("interactions"),
		buf:           make(chan Interaction, bufferCapacity),
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start ensures the audit table exists and launches the background writer.
func (r *Recorder) Start(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, ensureTableSQL); err != nil {
		return fmt.Errorf("failed to ensure ChatbotInteractions table: %w", err)
	}

	r.wg.Add(1)
	go r.writeLoop()
	return nil
}

// Record enqueues an exchange for audit. It classifies the interaction,
// stamps it, and returns immediately; it never blocks the request path.
func (r *Recorder) Record(ctx context.Context, username, conversationID, userMessage, botResponse string) {
	entry := Interaction{
		InteractionID:   uuid.NewString(),
		UserID:          username,
		Timestamp:       time.Now().UTC(),
		InteractionType: ClassifyInteraction(userMessage, botResponse),
		UserMessage:     userMessage,
		BotResponse:     botResponse,
		ConversationID:  conversationID,
	}

	select {
	case r.buf <- entry:
	default:
		r.log.Warn(username, "", "interaction buffer full, entry dropped", map[string]interface{}{
			"conversation_id": conversationID,
		})
	}
}

// Close flushes pending entries and stops the background writer.
func (r *Recorder) Close() error {
	close(r.stop)
	r.wg.Wait()
	return nil
}

// UserInteractions returns the most recent audited exchanges for a user,
// optionally filtered by conversation.
func (r *Recorder) UserInteractions(ctx context.Context, userID string, limit int, conversationID string) ([]Interaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT "InteractionId", "UserId", "Timestamp", "InteractionType", "UserMessage", "BotResponse", COALESCE("ConversationId", '')
FROM "ChatbotInteractions"
WHERE "UserId" = $1`
	args := []interface{}{userID}
	if conversationID != "" {
		query += ` AND "ConversationId" = $2`
		args = append(args, conversationID)
	}
	query += fmt.Sprintf(` ORDER BY "Timestamp" DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Interaction
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(&it.InteractionID, &it.UserID, &it.Timestamp, &it.InteractionType,
			&it.UserMessage, &it.BotResponse, &it.ConversationID); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	var pending []Interaction
	for {
		select {
		case entry := <-r.buf:
			pending = append(pending, entry)
			if len(pending) >= r.batchSize {
				r.flush(pending)
				pending = nil
			}
		case <-ticker.C:
			if len(pending) > 0 {
				r.flush(pending)
				pending = nil
			}
		case <-r.stop:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case entry := <-r.buf:
					pending = append(pending, entry)
				default:
					if len(pending) > 0 {
						r.flush(pending)
					}
					return
				}
			}
		}
	}
}

// flush writes one batch. Failures are logged and the batch is discarded:
// audit is best-effort.
func (r *Recorder) flush(batch []Interaction) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO "ChatbotInteractions" ("InteractionId", "UserId", "Timestamp", "InteractionType", "UserMessage", "BotResponse", "ConversationId") VALUES `)

	args := make([]interface{}, 0, len(batch)*7)
	for i, it := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, it.InteractionID, it.UserID, it.Timestamp, it.InteractionType,
			it.UserMessage, it.BotResponse, nullString(it.ConversationID))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		r.log.Error("", "", "failed to flush interaction batch", map[string]interface{}{
			"batch_size": len(batch),
			"error":      err.Error(),
		})
	}
}

// nullString converts an empty string to NULL for database insertion.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
