package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bull/qa-rag/internal/document"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	source_name TEXT NOT NULL,
	section     TEXT NOT NULL DEFAULT '',
	text        TEXT NOT NULL,
	vector      BLOB NOT NULL
);
`

// SQLiteIndex is a durable index stored in a single SQLite file. Vectors are
// stored as little-endian float32 blobs and scanned at query time.
type SQLiteIndex struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	dimension int
}

// NewSQLiteIndex opens or creates the index at path. A non-zero dimension
// must agree with the one persisted by earlier runs.
func NewSQLiteIndex(ctx context.Context, path string, dimension int) (*SQLiteIndex, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Writes are serialized by the index itself
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	stored, err := loadDimension(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if stored != 0 && dimension != 0 && stored != dimension {
		db.Close()
		return nil, &DimensionMismatchError{Expected: stored, Got: dimension}
	}
	if stored != 0 {
		dimension = stored
	}

	return &SQLiteIndex{db: db, path: path, dimension: dimension}, nil
}

func loadDimension(ctx context.Context, db *sql.DB) (int, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimension: %w", err)
	}
	dim, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing stored dimension %q: %w", value, err)
	}
	return dim, nil
}

// Name returns the backend name.
func (s *SQLiteIndex) Name() string { return "sqlite" }

// Path returns the database file path.
func (s *SQLiteIndex) Path() string { return s.path }

// Dimension returns the established dimensionality.
func (s *SQLiteIndex) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Add inserts one record; the first Add also persists the dimension.
func (s *SQLiteIndex) Add(ctx context.Context, vector []float32, chunk document.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDimension(s.dimension, vector); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if s.dimension == 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES ('dimension', ?)`,
			strconv.Itoa(len(vector)))
		if err != nil {
			return fmt.Errorf("storing dimension: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (document_id, chunk_index, source_name, section, text, vector)
		VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.DocumentID, chunk.ChunkIndex, chunk.SourceName, chunk.Section, chunk.Text,
		float32SliceToBytes(vector))
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}

	if s.dimension == 0 {
		s.dimension = len(vector)
	}
	return nil
}

// Search scans every record and returns up to topK closest to query.
func (s *SQLiteIndex) Search(ctx context.Context, query []float32, topK int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		return []Hit{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, document_id, chunk_index, source_name, section, text, vector
		FROM records`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	checked := false
	for rows.Next() {
		if !checked {
			if err := checkDimension(s.dimension, query); err != nil {
				return nil, err
			}
			checked = true
		}

		var (
			h    Hit
			blob []byte
		)
		if err := rows.Scan(&h.Seq, &h.Chunk.DocumentID, &h.Chunk.ChunkIndex,
			&h.Chunk.SourceName, &h.Chunk.Section, &h.Chunk.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		h.Score = Cosine(query, bytesToFloat32Slice(blob))
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return Rank(hits, topK), nil
}

// Count returns the number of stored records.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
