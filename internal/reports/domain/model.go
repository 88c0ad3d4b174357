package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReportConfiguration registers a report against the table holding its daily rows.
type ReportConfiguration struct {
	ID               snowflake.ID `json:"id" gorm:"column:id;primaryKey;autoIncrement:false"`
	Name             string       `json:"name" gorm:"column:report_name;type:varchar(100);not null;uniqueIndex"`
	PrettyName       string       `json:"pretty_name" gorm:"column:report_pretty_name;type:varchar(256);not null"`
	SourceTableName  string       `json:"source_table_name" gorm:"column:source_table_name;type:varchar(256);not null"`
	RefreshProcedure string       `json:"refresh_procedure_name,omitempty" gorm:"column:refresh_procedure_name;type:varchar(256)"`
	RefreshFrequency string       `json:"refresh_frequency,omitempty" gorm:"column:refresh_frequency;type:varchar(50)"`
	CreatedAt        time.Time    `json:"created_at" gorm:"column:created_at;not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (ReportConfiguration) TableName() string { return "analytics_reports" }

// Refresh frequencies accepted for scheduled report refreshes.
const (
	RefreshFrequencyHourly = "HOURLY"
	RefreshFrequencyDaily  = "DAILY"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether name is safe to use as a table or procedure name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Validate checks the fields every stored configuration must carry.
func (c ReportConfiguration) Validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.ContainsAny(c.Name, "[],+") {
		return ErrInvalidReportName
	}
	if !ValidIdentifier(c.SourceTableName) {
		return ErrInvalidSourceTable
	}
	if c.RefreshProcedure != "" && !ValidIdentifier(c.RefreshProcedure) {
		return ErrInvalidRefreshSettings
	}
	switch strings.ToUpper(c.RefreshFrequency) {
	case "", RefreshFrequencyHourly, RefreshFrequencyDaily:
	default:
		return ErrInvalidRefreshSettings
	}
	return nil
}

// Snapshot is an immutable view of every configured report, keyed by name.
type Snapshot map[string]ReportConfiguration

func (s Snapshot) Lookup(name string) (ReportConfiguration, bool) {
	cfg, ok := s[name]
	return cfg, ok
}
