package sqlite

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/hrygo/bankrag/store"
)

// serializeVector encodes a float32 vector as little-endian bytes.
// The encoding is bit-exact so a snapshot round-trip reproduces search
// scores identically.
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector decodes little-endian bytes into a float32 vector.
func deserializeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, errors.Errorf("embedding blob length %d is not a multiple of 4", len(data))
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, nil
}

func (d *DB) SaveIndexSnapshot(ctx context.Context, snapshot *store.IndexSnapshot) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin snapshot transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM index_snapshot"); err != nil {
		return errors.Wrap(err, "failed to clear previous snapshot")
	}

	stmt := `
		INSERT INTO index_snapshot (position, document_id, dimension, embedding)
		VALUES (?, ?, ?, ?)
	`
	for _, entry := range snapshot.Entries {
		if _, err := tx.ExecContext(ctx, stmt,
			entry.Position,
			entry.DocumentID,
			snapshot.Dimension,
			serializeVector(entry.Embedding),
		); err != nil {
			return errors.Wrapf(err, "failed to persist snapshot entry at offset %d", entry.Position)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit snapshot")
}

func (d *DB) LoadIndexSnapshot(ctx context.Context) (*store.IndexSnapshot, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT position, document_id, dimension, embedding
		FROM index_snapshot
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load index snapshot")
	}
	defer rows.Close()

	snapshot := &store.IndexSnapshot{}
	for rows.Next() {
		var entry store.SnapshotEntry
		var dimension int
		var blob []byte
		if err := rows.Scan(&entry.Position, &entry.DocumentID, &dimension, &blob); err != nil {
			return nil, errors.Wrap(err, "failed to scan snapshot entry")
		}
		vector, err := deserializeVector(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed embedding at offset %d", entry.Position)
		}
		entry.Embedding = vector
		if snapshot.Dimension == 0 {
			snapshot.Dimension = dimension
		} else if snapshot.Dimension != dimension {
			return nil, errors.Errorf("snapshot has mixed dimensions: %d and %d", snapshot.Dimension, dimension)
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate snapshot entries")
	}

	if len(snapshot.Entries) == 0 {
		return nil, nil
	}
	return snapshot, nil
}
