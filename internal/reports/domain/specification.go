package domain

import (
	"fmt"
	"slices"
	"strings"
)

// ReportSpecification is one requested report with optional pivot filters.
//
// The textual form is name or name[entry,...] where each entry is +pivot to
// include or -pivot to exclude.
type ReportSpecification struct {
	Name    string
	Include []string
	Exclude []string
}

func ParseReportSpecification(raw string) (ReportSpecification, error) {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '[')
	if open < 0 {
		if strings.ContainsAny(raw, "[],") {
			return ReportSpecification{}, invalidSpec(raw)
		}
		if raw == "" {
			return ReportSpecification{}, invalidSpec(raw)
		}
		return ReportSpecification{Name: raw}, nil
	}

	if !strings.HasSuffix(raw, "]") || strings.Count(raw, "[") != 1 || strings.Count(raw, "]") != 1 {
		return ReportSpecification{}, invalidSpec(raw)
	}
	spec := ReportSpecification{Name: strings.TrimSpace(raw[:open])}
	if spec.Name == "" {
		return ReportSpecification{}, invalidSpec(raw)
	}

	body := raw[open+1 : len(raw)-1]
	if strings.TrimSpace(body) == "" {
		return spec, nil
	}
	for _, entry := range strings.Split(body, ",") {
		entry = strings.TrimSpace(entry)
		if len(entry) < 2 {
			return ReportSpecification{}, invalidSpec(raw)
		}
		pivot := strings.TrimSpace(entry[1:])
		if pivot == "" {
			return ReportSpecification{}, invalidSpec(raw)
		}
		switch entry[0] {
		case '+':
			spec.Include = append(spec.Include, pivot)
		case '-':
			spec.Exclude = append(spec.Exclude, pivot)
		default:
			return ReportSpecification{}, invalidSpec(raw)
		}
	}
	return spec, nil
}

// ParseReportSpecifications parses every raw name; the first invalid one fails the batch.
func ParseReportSpecifications(raws []string) ([]ReportSpecification, error) {
	specs := make([]ReportSpecification, 0, len(raws))
	for _, raw := range raws {
		spec, err := ParseReportSpecification(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Keep applies the pivot filters. A non-empty inclusion set wins over exclusions.
func (s ReportSpecification) Keep(pivot string) bool {
	if len(s.Include) > 0 {
		return slices.Contains(s.Include, pivot)
	}
	return !slices.Contains(s.Exclude, pivot)
}

func (s ReportSpecification) String() string {
	if len(s.Include) == 0 && len(s.Exclude) == 0 {
		return s.Name
	}
	entries := make([]string, 0, len(s.Include)+len(s.Exclude))
	for _, p := range s.Include {
		entries = append(entries, "+"+p)
	}
	for _, p := range s.Exclude {
		entries = append(entries, "-"+p)
	}
	return s.Name + "[" + strings.Join(entries, ",") + "]"
}

func invalidSpec(raw string) error {
	return fmt.Errorf("%w: %q", ErrInvalidReportSpecification, raw)
}
