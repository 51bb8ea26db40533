// Package config holds the resolved configuration of a report run: service
// settings resolved by viper and the user's static report data decoded from TOML.
package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/naka-gawa/weekly-report/internal/domain"
)

// DefaultEmailTemplate is used when the user data file does not define one.
const DefaultEmailTemplate = `Dear team,

Please find below my weekly report for {date_range}.

---

{report}
`

var bugPeriodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2]|H1|H2)$`)

// UserData is the static, user-maintained part of the report.
// It is passed explicitly to the report builder.
type UserData struct {
	AuthorName           string            `toml:"author_name"`
	Issues               []string          `toml:"issues"`
	Bugs                 []domain.BugCount `toml:"bugs"`
	WFODays              []int             `toml:"wfo_days"`
	OutOfOfficeDays      []int             `toml:"out_of_office_days"`
	OtherAccomplishments []string          `toml:"other_accomplishments"`
	OMTM                 []string          `toml:"omtm"`
	NextSteps            []string          `toml:"next_steps"`
	Learning             []string          `toml:"learning"`
	ExcludedMeetings     []string          `toml:"excluded_meetings"`
	EmailTemplate        string            `toml:"email_template"`
	// Extra binds additional template placeholders. Built-in fields take precedence.
	Extra map[string]string `toml:"extra"`
}

// LoadUserData decodes and validates the user data file at path.
func LoadUserData(path string) (UserData, error) {
	var data UserData
	if _, err := toml.DecodeFile(path, &data); err != nil {
		return UserData{}, fmt.Errorf("failed to decode user data %s: %w", path, err)
	}
	if data.EmailTemplate == "" {
		data.EmailTemplate = DefaultEmailTemplate
	}
	if err := data.Validate(); err != nil {
		return UserData{}, fmt.Errorf("invalid user data %s: %w", path, err)
	}
	return data, nil
}

// Validate checks day numbers and bug counters.
func (u UserData) Validate() error {
	var errs []error
	for _, d := range append(append([]int{}, u.WFODays...), u.OutOfOfficeDays...) {
		if d < 1 || d > 5 {
			errs = append(errs, fmt.Errorf("day %d is outside 1 (Monday) to 5 (Friday)", d))
		}
	}
	for _, b := range u.Bugs {
		if !bugPeriodPattern.MatchString(b.Period) {
			errs = append(errs, fmt.Errorf("bug period %q must look like 2026-10 or 2026-H2", b.Period))
		}
		if b.Severity != domain.SeverityMajor && b.Severity != domain.SeverityMinor {
			errs = append(errs, fmt.Errorf("bug severity %q must be major or minor", b.Severity))
		}
		if b.Count < 0 {
			errs = append(errs, fmt.Errorf("bug count for %s must not be negative", b.Period))
		}
	}
	return errors.Join(errs...)
}
