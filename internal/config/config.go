// Package config loads the chartsync settings from an optional YAML file and
// CHARTSYNC_* environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/chartsync/pkg/logger"
	"github.com/raykavin/chartsync/pkg/pnl"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

const EnvPrefix = "CHARTSYNC"

// Config holds the application configuration.
type Config struct {
	Log      LogConfig
	Engine   EngineConfig
	Bus      BusConfig
	View     ViewConfig
	Position PositionConfig
}

type LogConfig struct {
	Level   string
	Format  string // console, json or logrus
	Colored bool
}

type EngineConfig struct {
	CacheSize int
	Workers   int
}

// BusConfig holds the sync bus settings. SettleTimeout bounds how long the
// CLI waits for panels to render the latest version.
type BusConfig struct {
	QueueSize     int
	SettleTimeout time.Duration
}

// ViewConfig holds the initial view. Span is the visible duration counted
// back from the last bar; zero shows the whole series.
type ViewConfig struct {
	Span      time.Duration
	ChartType view.ChartType
	Retention int
}

type PositionConfig struct {
	Size      float64
	Direction pnl.Direction
}

var defaults = map[string]any{
	"log.level":          "info",
	"log.format":         "console",
	"log.colored":        true,
	"engine.cache_size":  64,
	"engine.workers":     4,
	"bus.queue_size":     256,
	"bus.settle_timeout": "2s",
	"view.span":          "90d",
	"view.chart_type":    string(view.Line),
	"view.retention":     16,
	"position.size":      1.0,
	"position.direction": string(pnl.Long),
}

// Load reads path, when not empty, and overlays environment variables such
// as CHARTSYNC_ENGINE_CACHE_SIZE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	settle, err := duration(v, "bus.settle_timeout")
	if err != nil {
		return nil, err
	}
	span, err := duration(v, "view.span")
	if err != nil {
		return nil, err
	}

	chartType, err := view.ParseChartType(v.GetString("view.chart_type"))
	if err != nil {
		return nil, fmt.Errorf("view.chart_type: %w", err)
	}
	direction, err := pnl.ParseDirection(v.GetString("position.direction"))
	if err != nil {
		return nil, fmt.Errorf("position.direction: %w", err)
	}

	c := &Config{
		Log: LogConfig{
			Level:   strings.ToLower(v.GetString("log.level")),
			Format:  strings.ToLower(v.GetString("log.format")),
			Colored: v.GetBool("log.colored"),
		},
		Engine: EngineConfig{
			CacheSize: v.GetInt("engine.cache_size"),
			Workers:   v.GetInt("engine.workers"),
		},
		Bus: BusConfig{
			QueueSize:     v.GetInt("bus.queue_size"),
			SettleTimeout: settle,
		},
		View: ViewConfig{
			Span:      span,
			ChartType: chartType,
			Retention: v.GetInt("view.retention"),
		},
		Position: PositionConfig{
			Size:      v.GetFloat64("position.size"),
			Direction: direction,
		},
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// duration accepts Go durations plus the d and w units, e.g. "90d".
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Validate checks value ranges the loaders cannot express.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json", "logrus":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Engine.CacheSize < 1 {
		errs = append(errs, errors.New("engine.cache_size must be positive"))
	}
	if c.Engine.Workers < 1 {
		errs = append(errs, errors.New("engine.workers must be positive"))
	}
	if c.Bus.QueueSize < 1 {
		errs = append(errs, errors.New("bus.queue_size must be positive"))
	}
	if c.View.Span < 0 {
		errs = append(errs, errors.New("view.span must not be negative"))
	}
	if c.Position.Size < 0 {
		errs = append(errs, errors.New("position.size must not be negative"))
	}
	return errors.Join(errs...)
}
