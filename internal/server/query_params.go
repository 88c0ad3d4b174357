package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/analytics/internal/reports/domain"
)

func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.Atoi(trimmed)
}

// parseOptionalDay accepts YYYY-MM-DD or RFC3339 and keeps only the day.
func parseOptionalDay(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := domain.ParseDay(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// queryList collects a repeated query parameter; comma separated values outside
// brackets are split too, so name=a,b equals name=a&name=b.
func queryList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range splitOutsideBrackets(value) {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func splitOutsideBrackets(value string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range value {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, value[start:])
}
