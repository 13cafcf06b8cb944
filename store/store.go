// Package store provides persistence for the banking knowledge base and
// the vector index snapshot.
package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/bankrag/internal/profile"
)

// Store provides database access to the knowledge base.
type Store struct {
	driver  Driver
	profile *profile.Profile
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) Profile() *profile.Profile {
	return s.profile
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateDocument validates and persists a document. The ID must be unique.
func (s *Store) CreateDocument(ctx context.Context, doc *Document) (*Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Errorf("document with id %s already exists", doc.ID)
	}
	return s.driver.CreateDocument(ctx, doc)
}

// ListDocuments lists documents in insertion order.
func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

// GetDocument returns the document with the given ID, or nil when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	list, err := s.driver.ListDocuments(ctx, &FindDocument{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// DeleteDocument removes the document with the given ID.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.driver.DeleteDocument(ctx, id)
}

// SaveIndexSnapshot replaces the persisted index snapshot. An empty snapshot
// clears the persisted state (the corpus shrank to nothing).
func (s *Store) SaveIndexSnapshot(ctx context.Context, snapshot *IndexSnapshot) error {
	if snapshot == nil {
		return errors.New("snapshot is required")
	}
	for _, entry := range snapshot.Entries {
		if len(entry.Embedding) != snapshot.Dimension {
			return errors.Errorf("snapshot entry %s has dimension %d, want %d",
				entry.DocumentID, len(entry.Embedding), snapshot.Dimension)
		}
	}
	return s.driver.SaveIndexSnapshot(ctx, snapshot)
}

// LoadIndexSnapshot loads the persisted index snapshot, validating that every
// offset pairs a document ID with a vector of the expected dimension.
// Returns nil when no snapshot exists.
func (s *Store) LoadIndexSnapshot(ctx context.Context, wantDimension int) (*IndexSnapshot, error) {
	snapshot, err := s.driver.LoadIndexSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}
	if snapshot.Dimension != wantDimension {
		return nil, errors.Errorf("persisted snapshot dimension %d does not match configured dimension %d",
			snapshot.Dimension, wantDimension)
	}
	for i, entry := range snapshot.Entries {
		if entry.Position != i {
			return nil, errors.Errorf("malformed snapshot: offset %d holds position %d", i, entry.Position)
		}
		if entry.DocumentID == "" {
			return nil, errors.Errorf("malformed snapshot: offset %d has no document id", i)
		}
		if len(entry.Embedding) != snapshot.Dimension {
			return nil, errors.Errorf("malformed snapshot: offset %d has dimension %d, want %d",
				i, len(entry.Embedding), snapshot.Dimension)
		}
	}
	return snapshot, nil
}
