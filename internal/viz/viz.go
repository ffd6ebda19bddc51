// Package viz turns a table and a chart request into a renderer-agnostic chart spec
// and renders specs to images.
package viz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
)

type Kind string

const (
	Scatter   Kind = "scatter"
	Line      Kind = "line"
	Bar       Kind = "bar"
	Histogram Kind = "histogram"
	Heatmap   Kind = "heatmap"
	Box       Kind = "box"
)

const (
	DefaultColor  = "#1f77b4"
	HistogramBins = 30
)

type rule struct {
	min  int
	noun string
}

var rules = map[Kind]rule{
	Scatter:   {2, "scatter plot"},
	Line:      {2, "line chart"},
	Bar:       {1, "bar chart"},
	Histogram: {1, "histogram"},
	Box:       {1, "box plot"},
	Heatmap:   {0, "heatmap"},
}

// Kinds lists the supported chart kinds.
func Kinds() []string {
	return []string{string(Scatter), string(Line), string(Bar), string(Histogram), string(Heatmap), string(Box)}
}

// ParseKind normalizes and checks a chart kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rules[k]; !ok {
		return "", &errs.UnknownMethodError{Param: "viz_type", Value: s, Allowed: Kinds()}
	}
	return k, nil
}

// Validate checks the column-count precondition of a chart kind. Heatmaps ignore
// columns and always use every numeric column.
func Validate(kind Kind, columns []string) error {
	k, err := ParseKind(string(kind))
	if err != nil {
		return err
	}
	r := rules[k]
	if len(columns) >= r.min {
		return nil
	}
	msg := fmt.Sprintf("%s needs at least %d column", r.noun, r.min)
	if r.min > 1 {
		msg = fmt.Sprintf("%s needs %d columns", r.noun, r.min)
	}
	return &errs.ValidationError{Field: "columns", Message: msg}
}

// Request describes a chart over the active table.
type Request struct {
	Kind    Kind     `json:"viz_type" yaml:"viz_type" validate:"required"`
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty" validate:"dive,required"`
	Color   string   `json:"color,omitempty" yaml:"color,omitempty" validate:"omitempty,hexcolor"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty" validate:"max=200"`
}

var validate = validator.New()

func (r Request) check() error {
	if err := validate.Struct(r); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			f := ve[0]
			return &errs.ValidationError{
				Field:   strings.ToLower(f.Field()),
				Message: fmt.Sprintf("failed %q check", f.Tag()),
			}
		}
		return err
	}
	return nil
}

func (r Request) withDefaults() Request {
	if r.Color == "" {
		r.Color = DefaultColor
	}
	if r.Title == "" {
		r.Title = fmt.Sprintf("%s Chart", r.Kind)
		if r.Kind == Heatmap {
			r.Title = "Correlation Heatmap"
		}
	}
	return r
}
