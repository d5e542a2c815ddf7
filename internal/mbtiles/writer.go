package mbtiles

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/gabornoise/internal/tile"
)

// DefaultBatchSize is the number of tiles buffered before a transaction is committed.
const DefaultBatchSize = 100

// Option configures a Writer.
type Option func(*Writer)

// WithBatchSize sets how many tiles are buffered per transaction.
func WithBatchSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithGzip controls whether tile data is gzip-compressed before storage.
// Compression is on by default; readers accept both.
func WithGzip(enabled bool) Option {
	return func(w *Writer) { w.gzip = enabled }
}

type pendingTile struct {
	coords tile.Coords
	data   []byte
}

// Writer stores tiles in an MBTiles database. It is safe for concurrent use.
type Writer struct {
	db        *sql.DB
	metadata  Metadata
	batchSize int
	gzip      bool

	mu      sync.Mutex
	pending []pendingTile
	written int
}

// New creates or opens the database at path, initialises the schema and
// replaces its metadata.
func New(path string, metadata Metadata, opts ...Option) (*Writer, error) {
	w := &Writer{metadata: metadata, batchSize: DefaultBatchSize, gzip: true}
	for _, opt := range opts {
		opt(w)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := initDB(db, metadata); err != nil {
		db.Close()
		return nil, err
	}
	w.db = db
	w.pending = make([]pendingTile, 0, w.batchSize)
	return w, nil
}

func initDB(db *sql.DB, metadata Metadata) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return replaceMetadata(db, metadata)
}

func replaceMetadata(db *sql.DB, meta Metadata) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	for key, value := range meta.ToMap() {
		if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}
	return tx.Commit()
}

// WriteTile queues a tile; a full batch is committed before WriteTile returns.
func (w *Writer) WriteTile(c tile.Coords, data []byte) error {
	if !c.Valid() {
		return fmt.Errorf("tile %s is outside the zoom level grid", c)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, pendingTile{coords: c, data: data})
	if len(w.pending) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush commits any queued tiles.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range w.pending {
		data := p.data
		if w.gzip {
			if data, err = gzipCompress(data); err != nil {
				return fmt.Errorf("failed to compress tile %s: %w", p.coords, err)
			}
		}
		if _, err := stmt.Exec(p.coords.Z, p.coords.X, tmsRow(p.coords), data); err != nil {
			return fmt.Errorf("failed to insert tile %s: %w", p.coords, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	w.written += len(w.pending)
	w.pending = w.pending[:0]
	return nil
}

// Written returns the number of tiles committed so far.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// SetMetadata replaces the stored metadata.
func (w *Writer) SetMetadata(meta Metadata) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := replaceMetadata(w.db, meta); err != nil {
		return err
	}
	w.metadata = meta
	return nil
}

// Metadata returns the metadata last written.
func (w *Writer) Metadata() Metadata {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metadata
}

// Close commits queued tiles and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
