package mbtiles

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gabornoise/internal/gabor"
	"github.com/MeKo-Tech/gabornoise/internal/tile"
)

func noiseMetadata() Metadata {
	cfg := gabor.DefaultConfig()
	return Metadata{
		Name:        "Isotropic noise",
		Format:      "png",
		MinZoom:     0,
		MaxZoom:     4,
		Description: "Gabor noise pyramid",
		Type:        "overlay",
		Version:     "1.0",
		Noise:       &cfg,
		WorldSize:   5120,
		TileSize:    256,
	}
}

func newWriter(t *testing.T, opts ...Option) (*Writer, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "noise.mbtiles")
	w, err := New(dbPath, noiseMetadata(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, dbPath
}

func storedBlob(t *testing.T, w *Writer, z, x, row int) []byte {
	t.Helper()
	var data []byte
	err := w.db.QueryRow("SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=?", z, x, row).Scan(&data)
	require.NoError(t, err, "tile %d/%d row %d not stored", z, x, row)
	return data
}

func TestWriterNew(t *testing.T) {
	w, dbPath := newWriter(t)

	_, err := os.Stat(dbPath)
	require.NoError(t, err)

	var count int
	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tiles'").Scan(&count))
	assert.Equal(t, 1, count)

	var impulses string
	require.NoError(t, w.db.QueryRow("SELECT value FROM metadata WHERE name='noise_impulses'").Scan(&impulses))
	assert.Equal(t, "64", impulses)
}

func TestWriterStoresTMSRow(t *testing.T) {
	w, _ := newWriter(t)

	require.NoError(t, w.WriteTile(tile.NewCoords(3, 5, 1), []byte("tile")))
	assert.Equal(t, 0, w.Written(), "tiles are buffered until flushed")
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, w.Written())

	data := storedBlob(t, w, 3, 5, 6)
	assert.True(t, bytes.HasPrefix(data, gzipMagic), "tiles are gzipped by default")
}

func TestWriterWithoutGzip(t *testing.T) {
	w, _ := newWriter(t, WithGzip(false))

	require.NoError(t, w.WriteTile(tile.NewCoords(0, 0, 0), []byte("raw")))
	require.NoError(t, w.Flush())
	assert.Equal(t, []byte("raw"), storedBlob(t, w, 0, 0, 0))
}

func TestWriterRejectsOutOfGrid(t *testing.T) {
	w, _ := newWriter(t)

	for _, c := range []tile.Coords{
		tile.NewCoords(0, 1, 0),
		tile.NewCoords(2, 0, 4),
		tile.NewCoords(tile.MaxZoom+1, 0, 0),
	} {
		assert.Error(t, w.WriteTile(c, []byte("x")), c.String())
	}
}

func TestWriterBatchFlush(t *testing.T) {
	w, dbPath := newWriter(t, WithBatchSize(50))

	// 256 tiles of zoom 4 fill five batches.
	for x := uint32(0); x < 16; x++ {
		for y := uint32(0); y < 16; y++ {
			require.NoError(t, w.WriteTile(tile.NewCoords(4, x, y), []byte{byte(x), byte(y)}))
		}
	}
	assert.Equal(t, 250, w.Written())
	require.NoError(t, w.Close())

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&count))
	assert.Equal(t, 256, count)
}

func TestWriterReplaceExisting(t *testing.T) {
	w, _ := newWriter(t, WithGzip(false))

	for _, data := range []string{"first", "second"} {
		require.NoError(t, w.WriteTile(tile.NewCoords(1, 1, 0), []byte(data)))
		require.NoError(t, w.Flush())
	}

	var count int
	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&count))
	assert.Equal(t, 1, count)
	assert.Equal(t, []byte("second"), storedBlob(t, w, 1, 1, 1))
}

func TestWriterSetMetadata(t *testing.T) {
	w, _ := newWriter(t)

	meta := w.Metadata()
	meta.MaxZoom = 9
	meta.Noise = nil
	require.NoError(t, w.SetMetadata(meta))

	var n int
	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM metadata WHERE name LIKE 'noise_%'").Scan(&n))
	assert.Zero(t, n, "noise keys are cleared")
	assert.Equal(t, 9, w.Metadata().MaxZoom)
}

func TestTMSRow(t *testing.T) {
	assert.Equal(t, uint32(0), tmsRow(tile.NewCoords(0, 0, 0)))
	assert.Equal(t, uint32(6), tmsRow(tile.NewCoords(3, 5, 1)))
	assert.Equal(t, uint32(0), tmsRow(tile.NewCoords(2, 0, 3)))
}

func TestInflate(t *testing.T) {
	plain := []byte("\x89PNG not compressed")
	got, err := inflate(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	packed, err := gzipCompress(plain)
	require.NoError(t, err)
	got, err = inflate(packed)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	_, err = inflate(append([]byte{}, gzipMagic...))
	assert.Error(t, err, "truncated gzip stream")
}
