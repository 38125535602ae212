package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Row is a single record from a record store table, keyed by field name.
// Values are whatever the store decoded: numbers, strings, lists or objects.
type Row map[string]any

// TableRef identifies a table in the record store.
// For Bitable the dataset is the app token, for Sheets it is the spreadsheet ID.
type TableRef struct {
	DatasetID string `yaml:"datasetID" json:"datasetID" validate:"required"`
	TableID   string `yaml:"tableID" json:"tableID" validate:"required"`
}

func (t TableRef) String() string {
	return t.DatasetID + "/" + t.TableID
}

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	clone := make(Row, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

// Has reports whether the row carries the field key at all (even with an empty value)
func (r Row) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// HasColumn reports whether any row carries the field.
// Record stores omit empty cells, so a column exists if at least one row has it.
func HasColumn(rows []Row, field string) bool {
	for _, row := range rows {
		if row.Has(field) {
			return true
		}
	}
	return false
}

// Columns returns the sorted union of field names across rows
func Columns(rows []Row) []string {
	seen := make(map[string]bool)
	columns := make([]string, 0)
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

// CloneRows copies a slice of rows so callers can mutate the result freely
func CloneRows(rows []Row) []Row {
	clones := make([]Row, len(rows))
	for i, row := range rows {
		clones[i] = row.Clone()
	}
	return clones
}

// Number reads a numeric cell. The second return value is false when the
// cell is absent or empty (nil, NaN or blank string). Infinities are
// rejected with ErrNonFinite.
func (r Row) Number(field string) (float64, bool, error) {
	v, err := scalar(r[field])
	if err != nil {
		return 0, false, fmt.Errorf("field %q: %w", field, err)
	}

	switch val := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return val, true, nil
	case int64:
		return float64(val), true, nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false, fmt.Errorf("field %q: failed to parse number %q: %w", field, val, err)
		}
		if math.IsNaN(f) {
			return 0, false, nil
		}
		if math.IsInf(f, 0) {
			return 0, false, fmt.Errorf("field %q: %w", field, ErrNonFinite)
		}
		return f, true, nil
	}

	return 0, false, fmt.Errorf("field %q: unsupported value type %T", field, v)
}

// Decimal reads a numeric cell as an exact decimal, with the same
// presence semantics as Number.
func (r Row) Decimal(field string) (decimal.Decimal, bool, error) {
	v, err := scalar(r[field])
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("field %q: %w", field, err)
	}

	switch val := v.(type) {
	case nil:
		return decimal.Zero, false, nil
	case float64:
		return decimal.NewFromFloat(val), true, nil
	case int64:
		return decimal.NewFromInt(val), true, nil
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("field %q: failed to parse number %q: %w", field, val, err)
		}
		return d, true, nil
	}

	return decimal.Zero, false, fmt.Errorf("field %q: unsupported value type %T", field, v)
}

// ErrNonFinite is returned when a numeric cell holds +Inf or -Inf
var ErrNonFinite = errors.New("non-finite number")

// finite maps NaN to an empty cell and rejects infinities.
func finite(f float64) (any, error) {
	if math.IsNaN(f) {
		return nil, nil
	}
	if math.IsInf(f, 0) {
		return nil, ErrNonFinite
	}
	return f, nil
}

// scalar unwraps list and formula/lookup cells down to a single value and
// normalises numbers to float64/int64 and strings to trimmed text without
// thousands separators. Empty cells become nil.
func scalar(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case json.Number:
		return scalar(string(val))
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		if s == "" {
			return nil, nil
		}
		return s, nil
	case []any:
		switch len(val) {
		case 0:
			return nil, nil
		case 1:
			return scalar(val[0])
		}
		return nil, fmt.Errorf("expected a single value, got a list of %d", len(val))
	case map[string]any:
		// Bitable formula and lookup cells wrap their result as {"type": n, "value": [...]}
		if inner, ok := val["value"]; ok {
			return scalar(inner)
		}
		if text, ok := val["text"]; ok {
			return scalar(text)
		}
		return nil, fmt.Errorf("object value has no 'value' or 'text' key")
	}

	return nil, fmt.Errorf("unsupported value type %T", v)
}

// Labels reads a cell as a list of text labels. A scalar yields one label,
// a list yields one label per element. Blank labels are dropped.
func (r Row) Labels(field string) []string {
	return labelsOf(r[field])
}

// Text reads a cell as display text, joining list values with ", "
func (r Row) Text(field string) string {
	return strings.Join(r.Labels(field), ", ")
}

func labelsOf(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		return []string{s}
	case []string:
		var labels []string
		for _, item := range val {
			labels = append(labels, labelsOf(item)...)
		}
		return labels
	case []any:
		var labels []string
		for _, item := range val {
			labels = append(labels, labelsOf(item)...)
		}
		return labels
	case map[string]any:
		// Bitable text segments and link cells
		if text, ok := val["text"]; ok {
			return labelsOf(text)
		}
		if inner, ok := val["value"]; ok {
			return labelsOf(inner)
		}
		return nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return []string{strconv.FormatFloat(val, 'f', -1, 64)}
	}

	return labelsOf(fmt.Sprint(v))
}
