// Package report holds the maintenance record printed on the cover page
// and derives report file names from it.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of maintenance dates.
const DateLayout = "2006-01-02"

// displayDateLayout is how dates appear in the details block.
const displayDateLayout = "January 02, 2006"

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Record is the form data of one maintenance visit.
type Record struct {
	Account         string `json:"account"`
	Site            string `json:"site"`
	TaskName        string `json:"pmTaskName"`
	ServiceProvider string `json:"serviceProvider"`
	CompletedBy     string `json:"serviceCompletedBy"`
	Date            Date   `json:"dateOfMaintenance"`
}

// ValidationError lists the record fields that are missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Validate checks that every field is filled in.
func (r Record) Validate() error {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("account", r.Account)
	check("site", r.Site)
	check("pmTaskName", r.TaskName)
	check("serviceProvider", r.ServiceProvider)
	check("serviceCompletedBy", r.CompletedBy)
	if r.Date.IsZero() {
		missing = append(missing, "dateOfMaintenance")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// DetailRow is one label/value line of the details block.
type DetailRow struct {
	Label string
	Value string
}

// DetailRows returns the details block rows in print order.
func (r Record) DetailRows() []DetailRow {
	date := ""
	if !r.Date.IsZero() {
		date = r.Date.Format(displayDateLayout)
	}
	return []DetailRow{
		{Label: "ACCOUNT", Value: r.Account},
		{Label: "SITE", Value: r.Site},
		{Label: "PM TASK NAME", Value: r.TaskName},
		{Label: "SERVICE PROVIDER", Value: r.ServiceProvider},
		{Label: "SERVICED BY", Value: r.CompletedBy},
		{Label: "DATE", Value: date},
	}
}

// ShareTitle is the title handed to share targets.
func (r Record) ShareTitle() string {
	return "Report for " + strings.TrimSpace(r.Site)
}
