package sqlmemory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/memory"
	"github.com/leofalp/plantcare/providers/observability"
)

// messageModel is one stored turn. Seq is the autoincrement primary key and
// orders messages across all conversations.
type messageModel struct {
	Seq            uint64 `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"index:idx_conversation_seq,priority:1;size:64;not null"`
	Role           string `gorm:"size:16;not null"`
	Content        string `gorm:"type:text;not null"`
	CreatedAt      time.Time
}

func (messageModel) TableName() string {
	return "conversation_messages"
}

// Store is a gorm-backed memory.Store.
type Store struct {
	db          *gorm.DB
	maxMessages int
}

var _ memory.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxMessages trims each conversation to its newest n messages after
// every append. Zero or less keeps everything.
func WithMaxMessages(n int) Option {
	return func(s *Store) {
		s.maxMessages = n
	}
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
func Open(path string, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlmemory: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlmemory: create directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlmemory: open %s: %w", path, err)
	}
	return New(db, opts...)
}

// New wraps an existing gorm connection and migrates the schema.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlmemory: gorm db is required")
	}
	if err := db.AutoMigrate(&messageModel{}); err != nil {
		return nil, fmt.Errorf("sqlmemory: migrate: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Conversation returns the history for id. Nothing is written until the
// first append.
func (s *Store) Conversation(_ context.Context, id string) (memory.Provider, error) {
	if id == "" {
		return nil, memory.ErrInvalidConversation
	}
	return &Conversation{store: s, id: id}, nil
}

// Conversation is the history of one conversation id.
type Conversation struct {
	store *Store
	id    string
}

var _ memory.Provider = (*Conversation)(nil)

func (c *Conversation) query(ctx context.Context) *gorm.DB {
	return c.store.db.WithContext(ctx).Model(&messageModel{}).Where("conversation_id = ?", c.id)
}

// AppendMessage inserts the text of message and trims the conversation when a
// cap is configured.
func (c *Conversation) AppendMessage(ctx context.Context, message *ai.Message) error {
	if message == nil {
		return nil
	}
	stored := memory.TextOnly(*message)

	return c.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := messageModel{ConversationID: c.id, Role: string(stored.Role), Content: stored.Content}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("sqlmemory: append: %w", err)
		}

		if span := observability.SpanFromContext(ctx); span != nil {
			span.AddEvent(observability.EventMemoryAppend,
				observability.String(observability.AttrMemoryConversationID, c.id),
				observability.String(observability.AttrMemoryMessageRole, row.Role),
				observability.Int(observability.AttrMemoryMessageLength, len(row.Content)),
			)
		}

		if c.store.maxMessages <= 0 {
			return nil
		}
		keep := tx.Model(&messageModel{}).Select("seq").
			Where("conversation_id = ?", c.id).
			Order("seq DESC").
			Limit(c.store.maxMessages)
		err := tx.Where("conversation_id = ? AND seq NOT IN (?)", c.id, keep).Delete(&messageModel{}).Error
		if err != nil {
			return fmt.Errorf("sqlmemory: trim: %w", err)
		}
		return nil
	})
}

func (c *Conversation) Count(ctx context.Context) (int, error) {
	var n int64
	if err := c.query(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("sqlmemory: count: %w", err)
	}
	return int(n), nil
}

func (c *Conversation) AllMessages(ctx context.Context) ([]ai.Message, error) {
	var rows []messageModel
	if err := c.query(ctx).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlmemory: load: %w", err)
	}
	return toMessages(rows), nil
}

// LastMessages returns up to n of the newest messages, oldest first.
func (c *Conversation) LastMessages(ctx context.Context, n int) ([]ai.Message, error) {
	if n <= 0 {
		return []ai.Message{}, nil
	}
	var rows []messageModel
	if err := c.query(ctx).Order("seq DESC").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlmemory: load: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toMessages(rows), nil
}

func (c *Conversation) ClearMessages(ctx context.Context) error {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear,
			observability.String(observability.AttrMemoryConversationID, c.id),
		)
	}
	err := c.store.db.WithContext(ctx).Where("conversation_id = ?", c.id).Delete(&messageModel{}).Error
	if err != nil {
		return fmt.Errorf("sqlmemory: clear: %w", err)
	}
	return nil
}

func toMessages(rows []messageModel) []ai.Message {
	out := make([]ai.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, ai.Message{Role: ai.MessageRole(row.Role), Content: row.Content})
	}
	return out
}
