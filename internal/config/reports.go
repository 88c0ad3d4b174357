package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ReportDefinition is one entry of the reports seed file.
type ReportDefinition struct {
	Name             string `mapstructure:"name"`
	PrettyName       string `mapstructure:"prettyName"`
	SourceTableName  string `mapstructure:"sourceTableName"`
	RefreshProcedure string `mapstructure:"refreshProcedure"`
	RefreshFrequency string `mapstructure:"refreshFrequency"`
}

// ReportsFileHolder keeps the last valid content of reports.yml.
type ReportsFileHolder struct {
	current  atomic.Value // holds []ReportDefinition
	onChange atomic.Value // holds func([]ReportDefinition)
}

// NewReportsFileHolder reads the optional reports seed file and watches it for changes.
func NewReportsFileHolder(cfg Config, log *zap.Logger) (*ReportsFileHolder, error) {
	v := viper.New()

	if cfg.Analytics.ReportsFile != "" {
		v.SetConfigFile(cfg.Analytics.ReportsFile)
	} else {
		v.SetConfigName("reports")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/analytics")
		v.AddConfigPath(".")
	}

	holder := &ReportsFileHolder{}
	holder.current.Store([]ReportDefinition{})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return holder, nil
		}
		return nil, err
	}

	defs, err := decodeReports(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(defs)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeReports(v)
		if err != nil {
			log.Warn("reports file reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reports file reloaded", zap.String("file", e.Name), zap.Int("reports", len(updated)))
		if fn, ok := holder.onChange.Load().(func([]ReportDefinition)); ok && fn != nil {
			fn(updated)
		}
	})

	return holder, nil
}

// Get returns the current report definitions.
func (h *ReportsFileHolder) Get() []ReportDefinition {
	if h == nil {
		return nil
	}
	defs, _ := h.current.Load().([]ReportDefinition)
	return defs
}

// OnChange registers a callback invoked after every successful reload.
func (h *ReportsFileHolder) OnChange(fn func([]ReportDefinition)) {
	if h == nil {
		return
	}
	h.onChange.Store(fn)
}

func decodeReports(v *viper.Viper) ([]ReportDefinition, error) {
	var defs []ReportDefinition
	if err := v.UnmarshalKey("reports", &defs); err != nil {
		return nil, err
	}
	if err := ValidateReportDefinitions(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// ValidateReportDefinitions rejects entries without a source table and duplicate names.
func ValidateReportDefinitions(defs []ReportDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for i, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" && strings.TrimSpace(def.PrettyName) == "" {
			return fmt.Errorf("reports[%d]: name or prettyName is required", i)
		}
		if strings.TrimSpace(def.SourceTableName) == "" {
			return fmt.Errorf("reports[%d]: sourceTableName is required", i)
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("reports[%d]: duplicate report %q", i, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
