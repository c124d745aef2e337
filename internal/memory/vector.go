package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convene/internal/message"
)

// VectorConfig configures a Vector memory.
type VectorConfig struct {
	// Collection is the chromem collection name.
	Collection string

	// Embedding produces document/query embeddings. Defaults to the
	// deterministic hashing embedder.
	Embedding chromem.EmbeddingFunc

	// DefaultLimit caps Search results when the caller passes limit <= 0.
	DefaultLimit int
}

// ApplyDefaults sets default values for unset fields.
func (c *VectorConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "convene_memory"
	}
	if c.Embedding == nil {
		c.Embedding = HashEmbedding()
	}
	if c.DefaultLimit == 0 {
		c.DefaultLimit = 10
	}
}

// Vector is a Memory backed by an embedded chromem-go vector store.
// Search returns messages by similarity to the query rather than recency.
type Vector struct {
	cfg    VectorConfig
	logger *zap.Logger

	mu  sync.Mutex
	db  *chromem.DB
	col *chromem.Collection
}

// NewVector creates an in-process vector memory.
func NewVector(cfg VectorConfig, logger *zap.Logger) (*Vector, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(cfg.Collection, nil, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", cfg.Collection, err)
	}

	return &Vector{
		cfg:    cfg,
		logger: logger.Named("memory.vector"),
		db:     db,
		col:    col,
	}, nil
}

// AddMessages implements actor.Memory.
func (v *Vector) AddMessages(ctx context.Context, msgs []*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      m.ID,
			Content: m.Content,
			Metadata: map[string]string{
				"sender":     m.Sender,
				"created_at": m.CreatedAt.Format(time.RFC3339Nano),
			},
		})
	}
	if len(docs) == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	v.logger.Debug("stored messages",
		zap.Int("count", len(docs)),
		zap.String("collection", v.cfg.Collection),
	)
	return nil
}

// Search implements actor.Memory.
func (v *Vector) Search(ctx context.Context, query string, limit int) ([]*message.Message, error) {
	if limit <= 0 {
		limit = v.cfg.DefaultLimit
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// chromem rejects queries asking for more results than stored documents.
	count := v.col.Count()
	if count == 0 || query == "" {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := v.col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", v.cfg.Collection, err)
	}

	msgs := make([]*message.Message, 0, len(results))
	for _, r := range results {
		m := &message.Message{
			ID:        r.ID,
			Sender:    r.Metadata["sender"],
			Receivers: []string{message.Broadcast},
			Content:   r.Content,
		}
		if ts, err := time.Parse(time.RFC3339Nano, r.Metadata["created_at"]); err == nil {
			m.CreatedAt = ts
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Clear implements actor.Memory, dropping and recreating the collection.
func (v *Vector) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.db.DeleteCollection(v.cfg.Collection); err != nil {
		return fmt.Errorf("deleting collection %s: %w", v.cfg.Collection, err)
	}
	col, err := v.db.GetOrCreateCollection(v.cfg.Collection, nil, v.cfg.Embedding)
	if err != nil {
		return fmt.Errorf("recreating collection %s: %w", v.cfg.Collection, err)
	}
	v.col = col
	return nil
}

// Len returns the number of stored documents.
func (v *Vector) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.col.Count()
}
