// Package config reads a run configuration from YAML with SODS_ environment overrides.
package config

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/invertedv/sods"
	"github.com/invertedv/sods/agg"
	"github.com/invertedv/sods/export"
	"github.com/invertedv/sods/hierarchy"
	"github.com/invertedv/sods/score"
	"github.com/invertedv/sods/source"
)

const (
	EnvPrefix = "SODS"

	DefaultOutput            = "final_excel_data.xlsx"
	DefaultSignificanceField = "Significance"
)

// source kinds that are files rather than databases
const (
	KindCSV  = "csv"
	KindXLSX = "xlsx"
)

type Config struct {
	Source       Source            `mapstructure:"source"`
	Significance Significance      `mapstructure:"significance"`
	RatioPairs   []sods.RatioPair  `mapstructure:"ratio_pairs"`
	Sums         []Sum             `mapstructure:"sums"`
	Aggregations []Aggregation     `mapstructure:"aggregations"`
	Levels       []hierarchy.Level `mapstructure:"levels"`
	Params       score.Params      `mapstructure:"params"`
	IDColumn     string            `mapstructure:"id_column"`
	Output       Output            `mapstructure:"output"`
	MetricsFile  string            `mapstructure:"metrics_file"`
	Workers      int               `mapstructure:"workers"`
	Logging      Logging           `mapstructure:"logging"`
}

// Source is where the establishment data comes from. For a database, Query is run as is if set,
// otherwise Trade builds the query. Notes are fetched if Notes.RefPer is set.
type Source struct {
	source.Conn `mapstructure:",squash"`

	Query   string            `mapstructure:"query"`
	Trade   source.TradeQuery `mapstructure:"trade"`
	Notes   source.NotesQuery `mapstructure:"notes"`
	MaxRows int               `mapstructure:"max_rows"`
}

func (s Source) IsFile() bool {
	return s.Kind == KindCSV || s.Kind == KindXLSX
}

// Significance is merged onto the data by id if Path is set.
type Significance struct {
	Path    string  `mapstructure:"path"`
	Column  string  `mapstructure:"column"`
	Default float64 `mapstructure:"default"`
}

// Aggregation applies Func to Column at the aggregated levels. A list rather than a map: viper
// lowercases map keys and column names are case sensitive.
type Aggregation struct {
	Column string `mapstructure:"column"`
	Func   string `mapstructure:"func"`
}

// Sum adds the column Name = sum of Columns before scoring.
type Sum struct {
	Name    string   `mapstructure:"name"`
	Columns []string `mapstructure:"columns"`
}

type Output struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with the defaults and environment binding. Flags may be bound to it
// before Read.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("source.kind", KindCSV)
	for _, key := range []string{"source.path", "source.host", "source.user", "source.password", "source.database",
		"source.query", "source.trade.table", "source.trade.refper", "source.notes.refper", "metrics_file"} {
		v.SetDefault(key, "")
	}

	v.SetDefault("source.port", 0)
	v.SetDefault("source.max_rows", 0)
	v.SetDefault("significance.path", "")
	v.SetDefault("significance.column", DefaultSignificanceField)
	v.SetDefault("significance.default", source.DefaultSignificance)
	v.SetDefault("params.u", score.DefaultU)
	v.SetDefault("params.a", score.DefaultA)
	v.SetDefault("params.c", score.DefaultC)
	v.SetDefault("id_column", agg.IDColumn)
	v.SetDefault("output.path", DefaultOutput)
	v.SetDefault("output.format", export.FormatXLSX)
	v.SetDefault("workers", 1)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the file at path ("" for defaults and environment only).
func Load(path string) (*Config, error) {
	return Read(New(), path)
}

// Read reads the file at path into v and decodes it. The result is validated.
func Read(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if e := v.ReadInConfig(); e != nil {
			return nil, fmt.Errorf("%w: read %s: %w", sods.ErrConfig, path, e)
		}
	}

	c := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		ratioPairHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if e := v.Unmarshal(c, hook); e != nil {
		return nil, fmt.Errorf("%w: decode: %w", sods.ErrConfig, e)
	}

	c.fill()

	if e := c.Validate(); e != nil {
		return nil, e
	}

	return c, nil
}

// ratioPairHook accepts "PAYANN/RCPTOT" where a RatioPair is expected.
func ratioPairHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(sods.RatioPair{}) {
		return data, nil
	}

	return sods.ParseRatioPair(data.(string))
}

// fill supplies the defaults that depend on other settings.
func (c *Config) fill() {
	c.Source.Kind = strings.ToLower(c.Source.Kind)

	if len(c.Levels) == 0 {
		c.Levels = hierarchy.DefaultLevels()
	}

	// without aggregations: count ids, sum every ratio column
	if len(c.Aggregations) == 0 {
		c.Aggregations = []Aggregation{{Column: c.IDColumn, Func: "count"}}
		for _, pair := range c.RatioPairs {
			for _, cn := range []string{pair.Numerator, pair.Denominator} {
				if !slices.ContainsFunc(c.Aggregations, func(a Aggregation) bool { return a.Column == cn }) {
					c.Aggregations = append(c.Aggregations, Aggregation{Column: cn, Func: "sum"})
				}
			}
		}
	}

	if c.Source.MaxRows > 0 {
		c.Source.Trade.MaxRows = c.Source.MaxRows
		if c.Source.Notes.MaxRows == 0 {
			c.Source.Notes.MaxRows = c.Source.MaxRows
		}
	}
}

// Validate reports the first invalid setting as a *sods.ConfigError.
func (c *Config) Validate() error {
	kinds := []string{KindCSV, KindXLSX, "clickhouse", "postgres", "sqlite"}
	if !slices.Contains(kinds, c.Source.Kind) {
		return sods.NewConfigError("source.kind", "must be one of %v, got %q", kinds, c.Source.Kind)
	}

	switch {
	case c.Source.IsFile() && c.Source.Path == "":
		return sods.NewConfigError("source.path", "no input file")
	case c.Source.Kind == "sqlite" && c.Source.Path == "":
		return sods.NewConfigError("source.path", "no sqlite database")
	case !c.Source.IsFile() && c.Source.Query == "" && c.Source.Trade.Table == "":
		return sods.NewConfigError("source.trade.table", "no query and no trade table")
	case c.Source.MaxRows < 0:
		return sods.NewConfigError("source.max_rows", "must be >= 0")
	}

	if len(c.RatioPairs) == 0 {
		return sods.NewConfigError("ratio_pairs", "no ratio pairs")
	}

	for _, pair := range c.RatioPairs {
		if pair.Numerator == "" || pair.Denominator == "" {
			return sods.NewConfigError("ratio_pairs", "empty column name in %v", pair)
		}
	}

	for _, s := range c.Sums {
		if s.Name == "" || len(s.Columns) == 0 {
			return sods.NewConfigError("sums", "sum %q needs a name and columns", s.Name)
		}
	}

	if c.IDColumn == "" {
		return sods.NewConfigError("id_column", "empty")
	}

	var aggCols []string
	for _, a := range c.Aggregations {
		if a.Column == "" || a.Func == "" {
			return sods.NewConfigError("aggregations", "aggregation %q needs a column and a func", a.Column)
		}

		if slices.Contains(aggCols, a.Column) {
			return sods.NewConfigError("aggregations", "column %s aggregated twice", a.Column)
		}

		aggCols = append(aggCols, a.Column)
	}

	if e := c.Params.Validate(); e != nil {
		return e
	}

	if _, e := export.New(c.Output.Format); e != nil {
		return e
	}

	if c.Output.Path == "" {
		return sods.NewConfigError("output.path", "empty")
	}

	if c.Workers < 1 {
		return sods.NewConfigError("workers", "must be >= 1, got %d", c.Workers)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return sods.NewConfigError("logging.level", "invalid level %q", c.Logging.Level)
	}

	if !slices.Contains([]string{"console", "json"}, c.Logging.Format) {
		return sods.NewConfigError("logging.format", "invalid format %q", c.Logging.Format)
	}

	return nil
}

// Plan is the hierarchy plan the configuration describes.
func (c *Config) Plan() *hierarchy.Plan {
	return &hierarchy.Plan{
		Levels:       c.Levels,
		Pairs:        c.RatioPairs,
		Aggregations: c.spec(),
		Params:       c.Params,
		IDColumn:     c.IDColumn,
	}
}

func (c *Config) spec() agg.Spec {
	spec := make(agg.Spec)
	for _, a := range c.Aggregations {
		spec[a.Column] = a.Func
	}

	return spec
}
