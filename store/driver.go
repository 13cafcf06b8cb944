package store

import (
	"context"
	"database/sql"
)

// SnapshotEntry pairs one index offset with its document and normalized vector.
type SnapshotEntry struct {
	Position   int
	DocumentID string
	Embedding  []float32
}

// IndexSnapshot is the persisted form of the vector index: a flat list of
// normalized vectors with the document ID at each offset, in insertion order.
type IndexSnapshot struct {
	Dimension int
	Entries   []SnapshotEntry
}

// Driver is an interface for database access.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	CreateDocument(ctx context.Context, doc *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	DeleteDocument(ctx context.Context, id string) error

	SaveIndexSnapshot(ctx context.Context, snapshot *IndexSnapshot) error
	// LoadIndexSnapshot returns nil when no snapshot has been persisted yet.
	LoadIndexSnapshot(ctx context.Context) (*IndexSnapshot, error)
}
