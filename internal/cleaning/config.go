package cleaning

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
)

type MissingMethod string

const (
	MissingDrop         MissingMethod = "drop"
	MissingMean         MissingMethod = "mean"
	MissingMedian       MissingMethod = "median"
	MissingForwardFill  MissingMethod = "forward_fill"
	MissingBackwardFill MissingMethod = "backward_fill"
)

type OutlierMethod string

const (
	OutlierIQR    OutlierMethod = "iqr"
	OutlierZScore OutlierMethod = "zscore"
)

type NormalizeMethod string

const (
	NormalizeStandard NormalizeMethod = "standard"
	NormalizeMinMax   NormalizeMethod = "minmax"
)

// Config selects the cleaning steps to run. Steps always run in the order
// missing values, duplicates, outliers, normalization.
type Config struct {
	HandleMissing bool          `json:"handle_missing" yaml:"handle_missing"`
	MissingMethod MissingMethod `json:"missing_method" yaml:"missing_method" validate:"omitempty,oneof=drop mean median forward_fill backward_fill"`

	RemoveDuplicates bool `json:"remove_duplicates" yaml:"remove_duplicates"`

	HandleOutliers bool          `json:"handle_outliers" yaml:"handle_outliers"`
	OutlierMethod  OutlierMethod `json:"outlier_method" yaml:"outlier_method" validate:"omitempty,oneof=iqr zscore"`
	// OutlierColumns limits iqr clipping; empty means every numeric column. Ignored by zscore.
	OutlierColumns []string `json:"outlier_columns,omitempty" yaml:"outlier_columns,omitempty"`

	Normalize       bool            `json:"normalize" yaml:"normalize"`
	NormalizeMethod NormalizeMethod `json:"normalize_method" yaml:"normalize_method" validate:"omitempty,oneof=standard minmax"`
	// NormalizeColumns must name numeric columns; empty makes normalization a no-op.
	NormalizeColumns []string `json:"normalize_columns,omitempty" yaml:"normalize_columns,omitempty"`
}

// DefaultConfig has every step disabled and the default method of each step selected.
func DefaultConfig() Config {
	return Config{
		MissingMethod:   MissingDrop,
		OutlierMethod:   OutlierIQR,
		NormalizeMethod: NormalizeStandard,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate rejects unknown method names with *errs.UnknownMethodError.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate cleaning config: %w", err)
	}
	fe := verrs[0]
	if fe.Tag() != "oneof" {
		return &errs.ValidationError{Field: fe.Field(), Message: fe.Error()}
	}
	return &errs.UnknownMethodError{
		Param:   fe.Field(),
		Value:   fmt.Sprint(fe.Value()),
		Allowed: strings.Fields(fe.Param()),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MissingMethod == "" {
		c.MissingMethod = d.MissingMethod
	}
	if c.OutlierMethod == "" {
		c.OutlierMethod = d.OutlierMethod
	}
	if c.NormalizeMethod == "" {
		c.NormalizeMethod = d.NormalizeMethod
	}
	return c
}

// Steps lists the enabled steps in execution order, e.g. "missing:mean".
func (c Config) Steps() []string {
	c = c.withDefaults()
	var out []string
	if c.HandleMissing {
		out = append(out, "missing:"+string(c.MissingMethod))
	}
	if c.RemoveDuplicates {
		out = append(out, "duplicates")
	}
	if c.HandleOutliers {
		out = append(out, "outliers:"+string(c.OutlierMethod))
	}
	if c.Normalize && len(c.NormalizeColumns) > 0 {
		out = append(out, "normalize:"+string(c.NormalizeMethod))
	}
	return out
}

// LoadConfig reads a cleaning config from a YAML (or JSON) file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read cleaning config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse cleaning config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
