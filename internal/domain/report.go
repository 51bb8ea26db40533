package domain

import (
	"maps"
	"slices"
)

// ReportData maps placeholder names to rendered text.
// It is built once by the report builder and read-only afterwards.
type ReportData struct {
	fields map[string]string
}

// NewReportData copies fields into a new ReportData.
func NewReportData(fields map[string]string) ReportData {
	return ReportData{fields: maps.Clone(fields)}
}

// Get returns the value bound to name and whether it exists.
func (d ReportData) Get(name string) (string, bool) {
	v, ok := d.fields[name]
	return v, ok
}

// Keys returns the field names in sorted order.
func (d ReportData) Keys() []string {
	return slices.Sorted(maps.Keys(d.fields))
}

// Len returns the number of fields.
func (d ReportData) Len() int {
	return len(d.fields)
}

// Adapter names one external data source.
type Adapter string

const (
	AdapterGitHub    Adapter = "github"
	AdapterSonarQube Adapter = "sonarqube"
	AdapterCalendar  Adapter = "calendar"
	AdapterForms     Adapter = "forms"
)

// AdapterResult is what a single adapter returned.
type AdapterResult struct {
	Records  []RawActivityRecord
	Coverage []CoverageMetric
}

// AdapterResults holds the joined output of every adapter that returned.
// A missing key means the adapter never returned; an empty result is valid data.
type AdapterResults map[Adapter]AdapterResult

// Records returns the records of the given source across all adapters.
func (r AdapterResults) Records(src Source) []RawActivityRecord {
	var out []RawActivityRecord
	for _, a := range slices.Sorted(maps.Keys(r)) {
		for _, rec := range r[a].Records {
			if rec.Source == src {
				out = append(out, rec)
			}
		}
	}
	return out
}

// Has reports whether the adapter returned at all.
func (r AdapterResults) Has(a Adapter) bool {
	_, ok := r[a]
	return ok
}
