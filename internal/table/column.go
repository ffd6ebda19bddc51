package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the declared type of a column, fixed at ingestion time.
type Kind int

const (
	KindNumeric Kind = iota + 1
	KindCategorical
	KindDatetime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindDatetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// ParseKind accepts the String form of a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric":
		return KindNumeric, nil
	case "categorical", "text":
		return KindCategorical, nil
	case "datetime":
		return KindDatetime, nil
	}
	return 0, fmt.Errorf("unknown column kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Column is a named, typed sequence of nullable cells. Only the backing slice
// matching the column's kind is populated.
//
// Columns are treated as immutable once they are part of a Table; the Set*
// methods exist for building fresh columns.
type Column struct {
	name  string
	kind  Kind
	nums  []float64
	strs  []string
	times []time.Time
	valid []bool
}

// NewColumn returns a column of n null cells.
func NewColumn(name string, kind Kind, n int) *Column {
	c := &Column{name: name, kind: kind, valid: make([]bool, n)}
	switch kind {
	case KindNumeric:
		c.nums = make([]float64, n)
	case KindDatetime:
		c.times = make([]time.Time, n)
	default:
		c.kind = KindCategorical
		c.strs = make([]string, n)
	}
	return c
}

// Numeric builds a numeric column; NaN marks a null cell.
func Numeric(name string, vals ...float64) *Column {
	c := NewColumn(name, KindNumeric, len(vals))
	for i, v := range vals {
		if !math.IsNaN(v) {
			c.SetFloat(i, v)
		}
	}
	return c
}

// Categorical builds a categorical column; "" marks a null cell.
func Categorical(name string, vals ...string) *Column {
	c := NewColumn(name, KindCategorical, len(vals))
	for i, v := range vals {
		if v != "" {
			c.SetString(i, v)
		}
	}
	return c
}

// Datetime builds a datetime column; the zero time marks a null cell.
func Datetime(name string, vals ...time.Time) *Column {
	c := NewColumn(name, KindDatetime, len(vals))
	for i, v := range vals {
		if !v.IsZero() {
			c.SetTime(i, v)
		}
	}
	return c
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.valid) }

// IsNull reports whether cell i has no value.
func (c *Column) IsNull(i int) bool { return !c.valid[i] }

// Float returns the numeric value of cell i (NaN when null or not numeric).
func (c *Column) Float(i int) float64 {
	if c.kind != KindNumeric || !c.valid[i] {
		return math.NaN()
	}
	return c.nums[i]
}

// Str returns the raw text of a categorical cell, or the formatted value otherwise.
func (c *Column) Str(i int) string {
	if c.kind == KindCategorical {
		if !c.valid[i] {
			return ""
		}
		return c.strs[i]
	}
	return c.Text(i)
}

// Time returns the value of a datetime cell (zero when null).
func (c *Column) Time(i int) time.Time {
	if c.kind != KindDatetime || !c.valid[i] {
		return time.Time{}
	}
	return c.times[i]
}

func (c *Column) SetFloat(i int, v float64) {
	c.nums[i] = v
	c.valid[i] = !math.IsNaN(v)
}

func (c *Column) SetString(i int, s string) {
	c.strs[i] = s
	c.valid[i] = true
}

func (c *Column) SetTime(i int, t time.Time) {
	c.times[i] = t
	c.valid[i] = true
}

func (c *Column) SetNull(i int) {
	c.valid[i] = false
	switch c.kind {
	case KindNumeric:
		c.nums[i] = 0
	case KindDatetime:
		c.times[i] = time.Time{}
	default:
		c.strs[i] = ""
	}
}

// CopyCell sets cell i to the value of cell j of src, which must share c's kind.
func (c *Column) CopyCell(i int, src *Column, j int) {
	if src.IsNull(j) {
		c.SetNull(i)
		return
	}
	switch c.kind {
	case KindNumeric:
		c.SetFloat(i, src.nums[j])
	case KindDatetime:
		c.SetTime(i, src.times[j])
	default:
		c.SetString(i, src.strs[j])
	}
}

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, ok := range c.valid {
		if !ok {
			n++
		}
	}
	return n
}

// Floats returns the non-null values of a numeric column in row order.
func (c *Column) Floats() []float64 {
	if c.kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.nums))
	for i, v := range c.nums {
		if c.valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// Text renders cell i for display and CSV export; null renders as "".
func (c *Column) Text(i int) string {
	if !c.valid[i] {
		return ""
	}
	switch c.kind {
	case KindNumeric:
		return strconv.FormatFloat(c.nums[i], 'f', -1, 64)
	case KindDatetime:
		t := c.times[i]
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	default:
		return c.strs[i]
	}
}

// Key returns an equality key for cell i; equal keys mean equal cells, nulls included.
func (c *Column) Key(i int) string {
	if !c.valid[i] {
		return "\x00"
	}
	switch c.kind {
	case KindNumeric:
		v := c.nums[i]
		if v == 0 {
			v = 0 // fold -0
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case KindDatetime:
		return strconv.FormatInt(c.times[i].UnixNano(), 10)
	default:
		s := c.strs[i]
		return strconv.Itoa(len(s)) + ":" + s
	}
}

// Take returns a new column holding the given rows in order.
func (c *Column) Take(rows []int) *Column {
	out := NewColumn(c.name, c.kind, len(rows))
	for i, r := range rows {
		out.CopyCell(i, c, r)
	}
	return out
}

// Clone returns a deep copy.
func (c *Column) Clone() *Column {
	out := &Column{name: c.name, kind: c.kind, valid: append([]bool(nil), c.valid...)}
	if c.nums != nil {
		out.nums = append([]float64(nil), c.nums...)
	}
	if c.strs != nil {
		out.strs = append([]string(nil), c.strs...)
	}
	if c.times != nil {
		out.times = append([]time.Time(nil), c.times...)
	}
	return out
}

// Renamed returns a copy of c under a new name.
func (c *Column) Renamed(name string) *Column {
	out := c.Clone()
	out.name = name
	return out
}

// Equal reports whether both columns have the same name, kind and cells.
func (c *Column) Equal(o *Column) bool {
	if c.name != o.name || c.kind != o.kind || c.Len() != o.Len() {
		return false
	}
	for i := range c.valid {
		if c.Key(i) != o.Key(i) {
			return false
		}
	}
	return true
}
