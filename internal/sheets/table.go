package sheets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"

	"github.com/tidwall/gjson"
)

// Table is the tabular part of a gviz response.
type Table struct {
	Cols []Column `json:"cols"`
	Rows []Row    `json:"rows"`
}

type Column struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Row is one sheet row; a nil cell means the column was empty.
type Row struct {
	Cells []*Cell `json:"c"`
}

// Cell holds the raw value and, for numbers and dates, the sheet's formatted text.
type Cell struct {
	V any    `json:"v"`
	F string `json:"f,omitempty"`
}

// NewRow builds a row of string cells. Empty strings become empty cells.
func NewRow(values ...string) Row {
	cells := make([]*Cell, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		cells[i] = &Cell{V: v}
	}
	return Row{Cells: cells}
}

// Cell returns the cell at column i or nil when the row is shorter.
func (r Row) Cell(i int) *Cell {
	if i < 0 || i >= len(r.Cells) {
		return nil
	}
	return r.Cells[i]
}

// Text renders the cell as display text. Numbers prefer the sheet's formatted value.
func (c *Cell) Text() string {
	if c == nil {
		return ""
	}
	switch v := c.V.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		if c.F != "" {
			return c.F
		}
		return v.String()
	case float64:
		if c.F != "" {
			return c.F
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// All yields the rows in sheet order.
func (t *Table) All() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, r := range t.Rows {
			if !yield(r) {
				return
			}
		}
	}
}

// Decode strips the envelope from raw and parses the remaining gviz payload.
func Decode(raw string, env Envelope) (*Table, error) {
	if env == nil {
		env = DefaultEnvelope
	}
	payload, err := env.Strip(raw)
	if err != nil {
		return nil, err
	}
	if !gjson.Valid(payload) {
		return nil, &DecodeError{Reason: "payload is not valid JSON"}
	}
	rows := gjson.Get(payload, "table.rows")
	if !rows.IsArray() {
		return nil, &FormatError{Reason: "missing table.rows array"}
	}

	var resp struct {
		Table Table `json:"table"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	if resp.Table.Rows == nil {
		resp.Table.Rows = []Row{}
	}
	return &resp.Table, nil
}
