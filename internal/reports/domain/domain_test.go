package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportSpecification(t *testing.T) {
	spec, err := ParseReportSpecification(" signups ")
	require.NoError(t, err)
	assert.Equal(t, ReportSpecification{Name: "signups"}, spec)

	spec, err = ParseReportSpecification("churn[+gold, -silver,+ bronze]")
	require.NoError(t, err)
	assert.Equal(t, "churn", spec.Name)
	assert.Equal(t, []string{"gold", "bronze"}, spec.Include)
	assert.Equal(t, []string{"silver"}, spec.Exclude)
	assert.Equal(t, "churn[+gold,+bronze,-silver]", spec.String())

	spec, err = ParseReportSpecification("churn[]")
	require.NoError(t, err)
	assert.Equal(t, "churn", spec.String())
}

func TestParseReportSpecificationRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "  ", "[+a]", "churn[+a", "churn+a]", "churn[a]", "churn[+a,]", "churn[+]", "churn[+a][-b]", "a,b"} {
		_, err := ParseReportSpecification(raw)
		assert.ErrorIs(t, err, ErrInvalidReportSpecification, raw)
	}
}

func TestKeepInclusionWins(t *testing.T) {
	spec := ReportSpecification{Name: "r", Include: []string{"a"}, Exclude: []string{"a", "b"}}
	assert.True(t, spec.Keep("a"))
	assert.False(t, spec.Keep("b"))
	assert.False(t, spec.Keep("c"))

	spec = ReportSpecification{Name: "r", Exclude: []string{"b"}}
	assert.True(t, spec.Keep("a"))
	assert.False(t, spec.Keep("b"))
}

func TestXYJSON(t *testing.T) {
	p := NewXY(time.Date(2013, 1, 2, 15, 0, 0, 0, time.UTC), 4.5)
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"2013-01-02","y":4.5}`, string(raw))

	var back XY
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, p, back)
}

func TestParseDay(t *testing.T) {
	for _, value := range []string{"2013-01-02", "2013-01-02T23:59:59Z", "2013-01-02 10:00:00"} {
		d, err := ParseDay(value)
		require.NoError(t, err, value)
		assert.Equal(t, time.Date(2013, 1, 2, 0, 0, 0, 0, time.UTC), d)
	}
	_, err := ParseDay("01/02/2013")
	assert.Error(t, err)
}

func TestReportConfigurationValidate(t *testing.T) {
	cfg := ReportConfiguration{Name: "signups", PrettyName: "Signups", SourceTableName: "v_signups"}
	assert.NoError(t, cfg.Validate())

	cfg.SourceTableName = "analytics.v_signups"
	assert.NoError(t, cfg.Validate())

	cfg.SourceTableName = "v_signups; drop table x"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSourceTable)

	cfg.SourceTableName = "v_signups"
	cfg.RefreshFrequency = "weekly"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidRefreshSettings)

	cfg.RefreshFrequency = ""
	cfg.Name = "bad[name]"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidReportName)
}
