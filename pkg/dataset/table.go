package dataset

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// table holds a window of parquet rows with the schema needed to read them
// back column by column.
type table struct {
	columns []column
	byName  map[string]int
	owner   map[int][2]int // leaf column index -> (column, leaf)
	rows    []parquet.Row
	total   int64
}

// column is a top-level field; lists and structs have several leaves.
type column struct {
	name   string
	leaves []leaf
}

type leaf struct {
	path     []string // below the top-level field
	repeated bool
	kind     parquet.Kind
}

// readTable loads limit rows starting at offset. A negative limit reads to
// the end of the file.
func readTable(path string, offset, limit int64) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	t := newTable(pf.Schema())
	t.total = pf.NumRows()
	if offset < 0 || offset > t.total {
		return nil, fmt.Errorf("row offset %d outside [0, %d]", offset, t.total)
	}
	if limit < 0 || offset+limit > t.total {
		limit = t.total - offset
	}

	skip := offset
	for _, rg := range pf.RowGroups() {
		if int64(len(t.rows)) >= limit {
			break
		}
		n := rg.NumRows()
		if skip >= n {
			skip -= n
			continue
		}
		if err := t.readGroup(rg, skip, limit); err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		skip = 0
	}
	return t, nil
}

func (t *table) readGroup(rg parquet.RowGroup, skip, limit int64) error {
	rows := rg.Rows()
	defer rows.Close()

	if skip > 0 {
		if err := rows.SeekToRow(skip); err != nil {
			return err
		}
	}

	buf := make([]parquet.Row, 64)
	for int64(len(t.rows)) < limit {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			if int64(len(t.rows)) == limit {
				break
			}
			t.rows = append(t.rows, row.Clone())
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

func newTable(schema *parquet.Schema) *table {
	t := &table{
		byName: make(map[string]int),
		owner:  make(map[int][2]int),
	}
	for _, path := range schema.Columns() {
		lc, ok := schema.Lookup(path...)
		if !ok || len(path) == 0 {
			continue
		}
		name := path[0]
		ci, seen := t.byName[name]
		if !seen {
			ci = len(t.columns)
			t.byName[name] = ci
			t.columns = append(t.columns, column{name: name})
		}
		col := &t.columns[ci]
		t.owner[lc.ColumnIndex] = [2]int{ci, len(col.leaves)}
		col.leaves = append(col.leaves, leaf{
			path:     path[1:],
			repeated: lc.MaxRepetitionLevel > 0,
			kind:     lc.Node.Type().Kind(),
		})
	}
	return t
}

// Len returns the number of loaded rows.
func (t *table) Len() int { return len(t.rows) }

// Names returns the top-level column names in schema order.
func (t *table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// cell returns the non-null values of every leaf of a column for one row.
func (t *table) cell(row int, name string) (column, [][]parquet.Value, bool) {
	ci, ok := t.byName[name]
	if !ok || row < 0 || row >= len(t.rows) {
		return column{}, nil, false
	}
	col := t.columns[ci]
	values := make([][]parquet.Value, len(col.leaves))
	for _, v := range t.rows[row] {
		own, ok := t.owner[v.Column()]
		if !ok || own[0] != ci || v.IsNull() {
			continue
		}
		values[own[1]] = append(values[own[1]], v)
	}
	return col, values, true
}

// intAt returns a scalar integer column value.
func (t *table) intAt(row int, name string) (int64, bool) {
	_, values, ok := t.cell(row, name)
	if !ok || len(values) == 0 || len(values[0]) == 0 {
		return 0, false
	}
	v := values[0][0]
	switch v.Kind() {
	case parquet.Int32:
		return int64(v.Int32()), true
	case parquet.Int64:
		return v.Int64(), true
	case parquet.Float:
		return int64(v.Float()), true
	case parquet.Double:
		return int64(v.Double()), true
	}
	return 0, false
}

// stringAt returns a scalar text column value.
func (t *table) stringAt(row int, name string) (string, bool) {
	_, values, ok := t.cell(row, name)
	if !ok || len(values) == 0 || len(values[0]) == 0 {
		return "", false
	}
	v := values[0][0]
	if v.Kind() != parquet.ByteArray {
		return "", false
	}
	return string(v.ByteArray()), true
}

func kindDType(k parquet.Kind) string {
	switch k {
	case parquet.Boolean:
		return "bool"
	case parquet.Int32:
		return "int32"
	case parquet.Int64, parquet.Int96:
		return "int64"
	case parquet.Float:
		return "float32"
	case parquet.Double:
		return "float64"
	default:
		return "string"
	}
}

func numeric(v parquet.Value) float64 {
	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			return 1
		}
		return 0
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	}
	return 0
}
