package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/bankrag/store"
)

func (d *DB) CreateDocument(ctx context.Context, doc *store.Document) (*store.Document, error) {
	stmt := `
		INSERT INTO document (id, title, content, category, source)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		doc.ID,
		doc.Title,
		doc.Content,
		string(doc.Category),
		doc.Source,
	); err != nil {
		return nil, errors.Wrapf(err, "failed to insert document %s", doc.ID)
	}
	return doc, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil {
		if find.ID != nil {
			where, args = append(where, "id = ?"), append(args, *find.ID)
		}
		if find.Category != nil {
			where, args = append(where, "category = ?"), append(args, string(*find.Category))
		}
	}

	// Insertion order is load-bearing: index offsets follow it.
	query := `
		SELECT id, title, content, category, source
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY position ASC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		doc := &store.Document{}
		var category string
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &category, &doc.Source); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		doc.Category = store.Category(category)
		list = append(list, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate documents")
	}
	return list, nil
}

func (d *DB) DeleteDocument(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM document WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete document %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return errors.Errorf("document %s not found", id)
	}
	return nil
}
