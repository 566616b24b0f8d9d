package column

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

func sampleColumns(t *testing.T) []*Column {
	t.Helper()
	b, err := FromBool8([]int8{1, 0, stype.NABool8})
	require.NoError(t, err)
	i8, err := FromValues([]int8{1, -2, 3})
	require.NoError(t, err)
	i16, err := FromValues([]int16{1, -2, stype.NAInt16})
	require.NoError(t, err)
	i64, err := FromValues([]int64{1 << 40, -2, 3})
	require.NoError(t, err)
	f32, err := FromValues([]float32{1.5, -2, 3})
	require.NoError(t, err)
	f64, err := FromValues([]float64{1.5, -2, 3})
	require.NoError(t, err)
	fs, err := CreateFixedStr(2, 5)
	require.NoError(t, err)
	buf, err := fs.MutableBytes()
	require.NoError(t, err)
	copy(buf, "helloworld")

	return []*Column{
		b, i8, i16, int32Column(t, 7, na32, 9), i64, f32, f64, fs,
		strColumn(t, stype.Str32, sp("a"), nil, sp("bcd")),
		strColumn(t, stype.Str64, sp(""), sp("xyz"), nil),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for i, c := range sampleColumns(t) {
		path := filepath.Join(dir, c.SType().String()+".bin")
		require.NoError(t, c.SaveToDisk(path), "column %d", i)

		loaded, err := LoadFromDisk(path, c.SType(), c.NRows(), c.MetaString())
		require.NoError(t, err, c.SType().String())
		assert.Equal(t, "mmap", loaded.StorageKind())
		assert.Equal(t, c.Bytes(), loaded.Bytes(), c.SType().String())
		assert.Equal(t, c.Meta(), loaded.Meta())

		_, err = loaded.MutableBytes()
		assert.Error(t, err)

		fromBytes, err := LoadFromBytes(c.Bytes(), c.SType(), c.NRows(), c.MetaString())
		require.NoError(t, err)
		assert.Equal(t, c.Bytes(), fromBytes.Bytes())

		require.NoError(t, loaded.DecRef())
	}
}

func TestLoadedColumnCopyOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.bin")
	c := int32Column(t, 1, 2, 3)
	require.NoError(t, c.SaveToDisk(path))

	loaded, err := LoadFromDisk(path, stype.Int32, 3, "")
	require.NoError(t, err)
	grown, err := loaded.ResizeAndFill(4)
	require.NoError(t, err)
	assert.Equal(t, "heap", grown.StorageKind())
	assert.Equal(t, []int32{1, 2, 3, na32}, readInt32(t, grown))
}

func TestLoadFromDiskValidation(t *testing.T) {
	dir := t.TempDir()
	s := strColumn(t, stype.Str32, sp("abc"))
	path := filepath.Join(dir, "s.bin")
	require.NoError(t, s.SaveToDisk(path))

	for _, meta := range []string{"", "offoff=", "offoff=abc", "n=8", "offoff=-8", "offoff=12"} {
		_, err := LoadFromDisk(path, stype.Str32, 1, meta)
		assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation), meta)
	}

	_, err := LoadFromDisk(path, stype.Str32, 100, s.MetaString())
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation))

	_, err = LoadFromDisk(path, stype.Int64, 3, "")
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation))

	_, err = LoadFromDisk(filepath.Join(dir, "missing.bin"), stype.Int32, 1, "")
	require.Error(t, err)
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeIO))
	assert.Contains(t, err.Error(), "missing.bin")
}

func TestCreateMapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin")
	c, err := CreateMapped(stype.Int64, 4, path)
	require.NoError(t, err)
	assert.Equal(t, "mmap", c.StorageKind())

	buf, err := c.MutableBytes()
	require.NoError(t, err)
	vals := view[int64](buf)
	for i := range vals {
		vals[i] = int64(i * 10)
	}
	require.NoError(t, c.DecRef())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(32), info.Size())

	loaded, err := LoadFromDisk(path, stype.Int64, 4, "")
	require.NoError(t, err)
	got, err := Values[int64](loaded)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 10, 20, 30}, got)

	strs, err := CreateMapped(stype.Str32, 2, filepath.Join(t.TempDir(), "s.bin"))
	require.NoError(t, err)
	assert.Equal(t, []*string{nil, nil}, readStrings(t, strs))

	_, err = CreateMapped(stype.FixedStr, 2, path)
	assert.Error(t, err)
}
