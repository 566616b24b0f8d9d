package column

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/logger"
	"github.com/ajitpratap0/datatable/pkg/mmap"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// MetaString encodes the column's meta block for a companion descriptor:
// "offoff=<N>" for string columns, "n=<width>" for fixed strings and ""
// for every other type.
func (c *Column) MetaString() string {
	switch {
	case c.stype.IsVarWidth():
		return "offoff=" + strconv.FormatInt(c.meta, 10)
	case c.stype == stype.FixedStr:
		return "n=" + strconv.FormatInt(c.meta, 10)
	}
	return ""
}

// ParseMeta decodes a meta string produced by MetaString for st.
func ParseMeta(st stype.SType, metastring string) (int64, error) {
	var key string
	switch {
	case st.IsVarWidth():
		key = "offoff"
	case st == stype.FixedStr:
		key = "n"
	default:
		return 0, nil
	}
	name, value, found := strings.Cut(metastring, "=")
	if !found || name != key {
		return 0, dterrors.Newf(dterrors.ErrorTypeValidation,
			"malformed meta %q for %s, expected %s=<integer>", metastring, st, key)
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil || v <= 0 {
		return 0, dterrors.Newf(dterrors.ErrorTypeValidation,
			"malformed meta %q for %s", metastring, st).WithDetail("meta", metastring)
	}
	return v, nil
}

// CreateMapped creates (or truncates) path at the exact size of an nrows
// column of st and maps it read-write. String columns start with every row
// NA and no data bytes. Releasing the column unmaps the file.
func CreateMapped(st stype.SType, nrows int64, path string) (*Column, error) {
	var size, meta int64
	var err error
	switch {
	case st == stype.Void || st == stype.FixedStr:
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "cannot create a mapped %s column", st)
	case st.IsVarWidth():
		size, meta, err = varwidthSize(st, 0, nrows)
	default:
		size, err = fixedSize(st.ElemSize(), nrows)
	}
	if err != nil {
		return nil, err
	}

	region, err := mmap.Create(path, size)
	if err != nil {
		return nil, err
	}
	buf := region.Bytes()
	if st.IsVarWidth() {
		fillPadding(buf[:meta])
		switch st {
		case stype.Str32:
			fillOffsets(layoutOf[int32](buf, meta, nrows).offsets, -1)
		case stype.Str64:
			fillOffsets(layoutOf[int64](buf, meta, nrows).offsets, -1)
		}
	}
	return newColumn(st, nrows, buf, meta, &mmapStorage{region: region}), nil
}

// SaveToDisk writes the primary buffer verbatim to path through a
// temporary read-write mapping. The SType, row count and MetaString are not
// written and must be stored alongside.
func (c *Column) SaveToDisk(path string) error {
	region, err := mmap.Create(path, int64(len(c.buf)))
	if err != nil {
		return err
	}
	copy(region.Bytes(), c.buf)
	if err := region.Close(); err != nil {
		return err
	}
	logger.Debug("saved column",
		zap.String("path", path),
		zap.String("stype", c.stype.String()),
		zap.Int64("nrows", c.nrows),
		zap.Int("bytes", len(c.buf)))
	return nil
}

// LoadFromDisk maps a file written by SaveToDisk read-only and wraps it
// as a column of nrows rows of st.
func LoadFromDisk(path string, st stype.SType, nrows int64, metastring string) (*Column, error) {
	meta, err := ParseMeta(st, metastring)
	if err != nil {
		return nil, err
	}
	region, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	size := int64(region.Len())
	if err := validateBuffer(st, nrows, size, meta); err != nil {
		_ = region.Close()
		return nil, dterrors.Wrap(err, dterrors.ErrorTypeValidation, "column file does not match its descriptor").
			WithDetail("path", path)
	}
	buf := region.Bytes()
	if st.IsVarWidth() {
		buf = buf[:meta+nrows*int64(st.ElemSize())]
	}
	return newColumn(st, nrows, buf, meta, &mmapStorage{region: region}), nil
}

// LoadFromBytes copies data, a buffer previously obtained from Bytes, into
// a new heap column.
func LoadFromBytes(data []byte, st stype.SType, nrows int64, metastring string) (*Column, error) {
	meta, err := ParseMeta(st, metastring)
	if err != nil {
		return nil, err
	}
	if err := validateBuffer(st, nrows, int64(len(data)), meta); err != nil {
		return nil, err
	}
	if st.IsVarWidth() {
		data = data[:meta+nrows*int64(st.ElemSize())]
	}
	buf, hs, err := allocBuffer(int64(len(data)))
	if err != nil {
		return nil, err
	}
	copy(buf, data)
	return newColumn(st, nrows, buf, meta, hs), nil
}
