package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/medassist/device-assistant/internal/model"
)

// Store persists built indexes in SQLite, keyed by manual identity. Chunk
// rows are written inside a single transaction per build, so concurrent
// first-time builds of the same manual cannot interleave: the last committed
// transaction wins whole.
type Store struct {
	db *sql.DB
}

// NewStore opens the index database at the given path and configures WAL
// mode.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "index: open store")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "index: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const storeMigration = `
CREATE TABLE IF NOT EXISTS manuals (
	id          TEXT PRIMARY KEY,
	source_path TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS chunks (
	manual_id  TEXT NOT NULL REFERENCES manuals(id),
	seq        INTEGER NOT NULL,
	text       TEXT NOT NULL,
	page_label TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	PRIMARY KEY (manual_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_chunks_manual_id ON chunks(manual_id);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, storeMigration)
	return eris.Wrap(err, "index: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted index for a manual identity, or (nil, nil) when
// none exists. Chunks come back in seq order.
func (s *Store) Load(ctx context.Context, manualID string) (*Index, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT chunk_count FROM manuals WHERE id = ?`, manualID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "index: load manual %s", manualID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, text, page_label, embedding FROM chunks WHERE manual_id = ? ORDER BY seq`,
		manualID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "index: query chunks %s", manualID)
	}
	defer rows.Close() //nolint:errcheck

	chunks := make([]model.DocumentChunk, 0, count)
	for rows.Next() {
		var (
			chunk model.DocumentChunk
			blob  []byte
		)
		if err := rows.Scan(&chunk.Seq, &chunk.Text, &chunk.PageLabel, &blob); err != nil {
			return nil, eris.Wrap(err, "index: scan chunk")
		}
		chunk.SourceManual = manualID
		chunk.Embedding = decodeEmbedding(blob)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "index: iterate chunks")
	}

	return &Index{ManualID: manualID, Chunks: chunks}, nil
}

// Save persists a built index in one transaction, replacing any previous
// build for the same manual identity.
func (s *Store) Save(ctx context.Context, manualID, sourcePath string, chunks []model.DocumentChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "index: begin save")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE manual_id = ?`, manualID); err != nil {
		return eris.Wrapf(err, "index: clear chunks %s", manualID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO manuals (id, source_path, chunk_count, created_at) VALUES (?, ?, ?, ?)`,
		manualID, sourcePath, len(chunks), time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "index: insert manual %s", manualID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (manual_id, seq, text, page_label, embedding) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "index: prepare chunk insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			manualID, chunk.Seq, chunk.Text, chunk.PageLabel, encodeEmbedding(chunk.Embedding),
		); err != nil {
			return eris.Wrapf(err, "index: insert chunk %d", chunk.Seq)
		}
	}

	return eris.Wrapf(tx.Commit(), "index: commit save %s", manualID)
}

// encodeEmbedding packs a float32 vector into a little-endian blob.
func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a little-endian blob into a float32 vector.
func decodeEmbedding(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
