package pgwire

import (
	"fmt"
	"reflect"

	"github.com/go-pg/pgwire/internal/protocol"
	"github.com/go-pg/pgwire/internal/types"
)

// Rows iterates a buffered result set from the simple or extended query
// protocol: the adapter reads every DataRow up to ReadyForQuery before
// building Rows, so by the time Rows is handed to the caller the whole set
// is already in memory.
type Rows struct {
	cols []protocol.ColumnDescriptor
	rows []*protocol.DataRow
	idx  int

	cur []interface{}
	err error
}

func newRows(desc *protocol.RowDescription, data []*protocol.DataRow) *Rows {
	var cols []protocol.ColumnDescriptor
	if desc != nil {
		cols = desc.Fields
	}
	return &Rows{cols: cols, rows: data, idx: -1}
}

// Columns returns the result set's column names, in order.
func (r *Rows) Columns() []string {
	names := make([]string, len(r.cols))
	for i, c := range r.cols {
		names[i] = c.Name
	}
	return names
}

// Next advances to the next row, decoding each column's wire value per its
// RowDescription OID and format. It returns false at end of the set or on
// the first decode error (check Err after the loop).
func (r *Rows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	if r.idx >= len(r.rows) {
		return false
	}

	row := r.rows[r.idx]
	r.cur = make([]interface{}, len(row.Values))
	for i, raw := range row.Values {
		oid := types.OID(0)
		format := protocol.FormatText
		if i < len(r.cols) {
			oid = types.OID(r.cols[i].DataTypeOID)
			format = r.cols[i].Format
		}

		if raw == nil {
			r.cur[i] = nil
			continue
		}

		var v interface{}
		var err error
		if format == protocol.FormatBinary {
			v, err = types.DecodeBinary(oid, raw)
		} else {
			v, err = types.DecodeText(oid, raw)
		}
		if err != nil {
			r.err = fmt.Errorf("pgwire: decoding column %d (%s): %w", i, r.cols[i].Name, err)
			return false
		}
		r.cur[i] = v
	}
	return true
}

// Err returns the first error encountered while iterating, if any.
func (r *Rows) Err() error {
	return r.err
}

// Values returns the current row's decoded column values.
func (r *Rows) Values() []interface{} {
	return r.cur
}

// Scan assigns the current row's decoded columns into dest, which must be
// pointers. A dest of *interface{} receives the value as-is; any other
// pointer type is assigned via reflection, matching the decoded value's Go
// type (e.g. a *int32 dest for an int4 column).
func (r *Rows) Scan(dest ...interface{}) error {
	if len(dest) != len(r.cur) {
		return fmt.Errorf("pgwire: Scan got %d destinations for %d columns", len(dest), len(r.cur))
	}
	for i, d := range dest {
		if err := assign(d, r.cur[i]); err != nil {
			return fmt.Errorf("pgwire: Scan column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, src interface{}) error {
	if p, ok := dest.(*interface{}); ok {
		*p = src
		return nil
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return fmt.Errorf("destination not a non-nil pointer (%T)", dest)
	}
	elem := dv.Elem()

	if src == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(elem.Type()) {
		elem.Set(sv)
		return nil
	}
	if sv.Type().ConvertibleTo(elem.Type()) {
		elem.Set(sv.Convert(elem.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, elem.Type())
}
