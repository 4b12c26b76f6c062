package rules

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwright/planwright/internal/plan"
)

func writeCatalogFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("overlay merges onto defaults", func(t *testing.T) {
		path := writeCatalogFile(t, dir, "vic.yaml", `
jurisdiction: VIC
min_areas:
  bedroom: 10.0
min_hallway_width: 1.1
`)
		got, err := LoadFile(DefaultCatalog(), path)
		require.NoError(t, err)
		assert.Equal(t, "VIC", got.Jurisdiction)
		assert.Equal(t, 10.0, got.MinAreas[plan.RoomBedroom])
		assert.Equal(t, 1.1, got.MinHallwayWidth)
		assert.Equal(t, DefaultCatalog().MinAreas[plan.RoomKitchen], got.MinAreas[plan.RoomKitchen])
	})

	t.Run("broken yaml is malformed", func(t *testing.T) {
		path := writeCatalogFile(t, dir, "broken.yaml", "jurisdiction: [unterminated")
		_, err := LoadFile(DefaultCatalog(), path)
		assert.ErrorIs(t, err, ErrMalformedCatalog)
	})

	t.Run("overlay failing validation is rejected", func(t *testing.T) {
		// hard minimum above the recommendation
		path := writeCatalogFile(t, dir, "bad.yaml", "min_hallway_width: 2.0")
		_, err := LoadFile(DefaultCatalog(), path)
		assert.ErrorIs(t, err, ErrMalformedCatalog)
	})
}

func TestLoadFileEncodings(t *testing.T) {
	dir := t.TempDir()

	t.Run("utf8 bom", func(t *testing.T) {
		path := filepath.Join(dir, "bom.yaml")
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("jurisdiction: NSW\n")...)
		require.NoError(t, os.WriteFile(path, data, 0644))

		got, err := LoadFile(DefaultCatalog(), path)
		require.NoError(t, err)
		assert.Equal(t, "NSW", got.Jurisdiction)
	})

	t.Run("utf16 little endian", func(t *testing.T) {
		path := filepath.Join(dir, "utf16.yaml")
		units := utf16.Encode([]rune("jurisdiction: QLD\n"))
		data := []byte{0xFF, 0xFE}
		for _, u := range units {
			data = binary.LittleEndian.AppendUint16(data, u)
		}
		require.NoError(t, os.WriteFile(path, data, 0644))

		got, err := LoadFile(DefaultCatalog(), path)
		require.NoError(t, err)
		assert.Equal(t, "QLD", got.Jurisdiction)
	})

	t.Run("windows-1252 fallback", func(t *testing.T) {
		path := filepath.Join(dir, "legacy.yaml")
		// 0x92 is a curly apostrophe in Windows-1252, invalid as UTF-8
		data := append([]byte("jurisdiction: WA\n# council"), 0x92, 's', '\n')
		require.NoError(t, os.WriteFile(path, data, 0644))

		got, err := LoadFile(DefaultCatalog(), path)
		require.NoError(t, err)
		assert.Equal(t, "WA", got.Jurisdiction)
	})
}

func TestLoadDir(t *testing.T) {
	t.Run("missing directory yields defaults", func(t *testing.T) {
		got, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Equal(t, "default", got.Jurisdiction)
	})

	t.Run("files overlay in lexical order", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "10-base.yaml", "jurisdiction: AUS\nmin_kitchen_width: 2.0\n")
		writeCatalogFile(t, dir, "20-state.yml", "jurisdiction: VIC\n")
		writeCatalogFile(t, dir, "notes.txt", "not a catalog")

		got, err := LoadDir(dir)
		require.NoError(t, err)
		assert.Equal(t, "VIC", got.Jurisdiction)
		assert.Equal(t, 2.0, got.MinKitchenWidth)
	})

	t.Run("one malformed file fails the load", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "ok.yaml", "jurisdiction: SA\n")
		writeCatalogFile(t, dir, "zz-bad.yaml", ": : :")

		_, err := LoadDir(dir)
		assert.ErrorIs(t, err, ErrMalformedCatalog)
	})
}
