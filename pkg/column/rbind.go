package column

import (
	"go.uber.org/zap"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/logger"
	"github.com/ajitpratap0/datatable/pkg/metrics"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// Rbind appends the rows of others after the rows of c. The result has the
// widest SType among all inputs; Void inputs contribute NA rows. The
// receiver's reference is consumed (others are only read): the rows are
// appended in place when c is exclusively owned heap storage of the target
// type, otherwise into a converted copy. On error c is unchanged.
func (c *Column) Rbind(others []*Column) (*Column, error) {
	target, total := c.stype, c.nrows
	for _, o := range others {
		target = stype.Max(target, o.stype)
		total += o.nrows
	}
	width, err := checkRbind(c, others, target)
	if err != nil {
		return nil, err
	}

	// c appended to itself must not be grown in place.
	for _, o := range others {
		if o == c {
			c.IncRef()
			defer c.DecRef()
			break
		}
	}

	// Bring every input to the target type before touching c.
	parts := make([]*Column, len(others))
	var temps []*Column
	defer func() {
		for _, t := range temps {
			_ = t.DecRef()
		}
	}()
	var datasize int64
	for i, o := range others {
		parts[i] = o
		if o.stype != stype.Void && o.stype != target {
			conv, err := o.Cast(target)
			if err != nil {
				return nil, err
			}
			temps = append(temps, conv)
			parts[i] = conv
		}
		datasize += parts[i].dataSize()
	}
	datasize += c.dataSize()
	if target == stype.Str32 && !fitsStr32(datasize, total) {
		target = stype.Str64
		for i, p := range parts {
			if p.stype == stype.Str32 {
				conv, err := p.Cast(stype.Str64)
				if err != nil {
					return nil, err
				}
				temps = append(temps, conv)
				parts[i] = conv
			}
		}
	}

	base, path := c, "inplace"
	switch {
	case c.stype == target:
		if !c.exclusive() {
			path = "copy"
		}
	case c.stype == stype.Void && target == stype.FixedStr:
		conv, err := NewNAFixedStr(c.nrows, int(width))
		if err != nil {
			return nil, err
		}
		base, path = conv, "copy"
	default:
		conv, err := c.Cast(target)
		if err != nil {
			return nil, err
		}
		base, path = conv, "copy"
	}

	var out *Column
	switch target {
	case stype.Void:
		out, err = base.mutable()
		if err == nil {
			out.nrows = total
		}
	case stype.Str32:
		out, err = rbindVarwidth[int32](base, parts, datasize, total)
	case stype.Str64:
		out, err = rbindVarwidth[int64](base, parts, datasize, total)
	default:
		out, err = rbindFixed(base, parts, total)
	}
	if err != nil {
		if base != c {
			_ = base.DecRef()
		}
		return nil, err
	}
	if base != c {
		_ = c.DecRef()
	}

	metrics.CombinatorCalls.WithLabelValues("rbind", path).Inc()
	logger.Debug("rbind",
		zap.String("stype", out.stype.String()),
		zap.Int("inputs", len(others)+1),
		zap.Int64("nrows", total),
		zap.String("path", path))
	return out, nil
}

// CheckRbind reports whether c.Rbind(others) is supported, without
// touching any data. Nil entries stand for Void columns.
func CheckRbind(c *Column, others []*Column) error {
	target := stype.Void
	if c != nil {
		target = c.stype
	}
	for _, o := range others {
		if o != nil {
			target = stype.Max(target, o.stype)
		}
	}
	_, err := checkRbind(c, others, target)
	return err
}

// checkRbind validates the inputs against target and returns the common
// fixed string width, or -1 when no input is a fixed string.
func checkRbind(c *Column, others []*Column, target stype.SType) (int64, error) {
	width := int64(-1)
	check := func(o *Column) error {
		switch {
		case o == nil || o.stype == stype.Void:
			return nil
		case o.stype.IsEnum():
			return dterrors.Newf(dterrors.ErrorTypeUnsupported, "rbind of %s columns is not implemented", o.stype)
		case target == stype.FixedStr && o.stype != stype.FixedStr:
			return dterrors.Newf(dterrors.ErrorTypeUnsupported, "cannot rbind %s into %s", o.stype, target)
		case o.stype == stype.FixedStr:
			if width >= 0 && o.meta != width {
				return dterrors.Newf(dterrors.ErrorTypeUnsupported,
					"cannot rbind fixed strings of width %d and %d", width, o.meta)
			}
			width = o.meta
		}
		return nil
	}
	if err := check(c); err != nil {
		return 0, err
	}
	for _, o := range others {
		if err := check(o); err != nil {
			return 0, err
		}
	}
	return width, nil
}

// dataSize returns the data region size of a string column, else 0.
func (c *Column) dataSize() int64 {
	switch c.stype {
	case stype.Str32:
		return layoutOf[int32](c.buf, c.meta, c.nrows).DataSize()
	case stype.Str64:
		return layoutOf[int64](c.buf, c.meta, c.nrows).DataSize()
	}
	return 0
}

func rbindFixed(base *Column, parts []*Column, total int64) (*Column, error) {
	elem := int64(base.elemWidth())
	size, err := fixedSize(int(elem), total)
	if err != nil {
		return nil, err
	}
	out, err := base.reserve(size)
	if err != nil {
		return nil, err
	}
	pos := out.nrows * elem
	for _, p := range parts {
		n := p.nrows * elem
		if p.stype == stype.Void {
			fillNA(out.buf[pos:pos+n], out.stype, int(elem))
		} else {
			copy(out.buf[pos:pos+n], p.buf)
		}
		pos += n
	}
	out.nrows = total
	return out, nil
}

// rbindVarwidth grows base's buffer, moves its offsets to the new offsets
// origin, appends every part's data region and writes the parts' offsets
// shifted into the merged data region.
func rbindVarwidth[O Offset](base *Column, parts []*Column, datasize, total int64) (*Column, error) {
	st := offsetStype[O]()
	size, offoff, err := varwidthSize(st, datasize, total)
	if err != nil {
		return nil, err
	}
	out, err := base.reserve(size)
	if err != nil {
		return nil, err
	}

	elem := int64(st.ElemSize())
	n0 := out.nrows
	dpos := layoutOf[O](out.buf, out.meta, n0).DataSize()
	// Offsets first: the appended data may land on the old offsets region.
	copy(out.buf[offoff:offoff+n0*elem], out.buf[out.meta:out.meta+n0*elem])
	fillPadding(out.buf[datasize:offoff])

	dst := layoutOf[O](out.buf, offoff, total)
	row := n0
	for _, p := range parts {
		if p.stype == stype.Void {
			fillOffsets(dst.offsets[row:row+p.nrows], -O(dpos+1))
			row += p.nrows
			continue
		}
		src := layoutOf[O](p.buf, p.meta, p.nrows)
		copy(out.buf[dpos:], src.DataRegion())
		shift := O(dpos)
		for _, v := range src.offsets {
			if v > 0 {
				dst.offsets[row] = v + shift
			} else {
				dst.offsets[row] = v - shift
			}
			row++
		}
		dpos += src.DataSize()
	}
	out.meta = offoff
	out.nrows = total
	return out, nil
}
