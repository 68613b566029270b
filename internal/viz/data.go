package viz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Table is tabular chart input: ordered column names plus rows of values.
// The first column is the category/x axis; numeric columns after it are
// data series.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// Label returns the category value of one row as text.
func (t Table) Label(row map[string]any) string {
	if len(t.Columns) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", row[t.Columns[0]])
}

// SeriesColumns returns the columns holding numeric values, in input order.
func (t Table) SeriesColumns() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	var series []string
	for _, col := range t.Columns[1:] {
		if _, ok := numeric(t.Rows[0][col]); ok {
			series = append(series, col)
		}
	}
	return series
}

// numeric extracts a float64 from a JSON-decoded value.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// ParseTable decodes the model-supplied data payload. Two shapes are
// accepted: a JSON array of objects (rows), or a flat object treated as
// category -> value pairs. Column order follows the key order of the
// first object, which a JSON map would lose, so keys are read from the
// raw token stream.
func ParseTable(data string) (Table, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return Table{}, ErrEmptyData
	}

	switch trimmed[0] {
	case '[':
		var rows []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &rows); err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		if len(rows) == 0 {
			return Table{}, ErrEmptyData
		}
		columns, err := firstObjectKeys(trimmed)
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		return Table{Columns: columns, Rows: rows}, nil

	case '{':
		var flat map[string]float64
		if err := json.Unmarshal([]byte(trimmed), &flat); err != nil {
			return Table{}, fmt.Errorf("%w: expected numeric values: %v", ErrInvalidData, err)
		}
		if len(flat) == 0 {
			return Table{}, ErrEmptyData
		}
		keys, err := firstObjectKeys(trimmed)
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		rows := make([]map[string]any, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, map[string]any{"category": k, "value": flat[k]})
		}
		return Table{Columns: []string{"category", "value"}, Rows: rows}, nil

	default:
		return Table{}, fmt.Errorf("%w: expected a JSON array or object", ErrInvalidData)
	}
}

// firstObjectKeys reads the keys of the first JSON object in raw, in the
// order they appear on the wire.
func firstObjectKeys(raw string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == '{' {
			break
		}
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
