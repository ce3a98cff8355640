package report

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestName(t *testing.T) {
	date := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name     string
		record   Record
		expected string
	}{
		{
			name:     "punctuation stripped",
			record:   Record{Account: "Tech Corp!", Site: "Bldg A/1", TaskName: "HVAC Check"},
			expected: "Tech_Corp_Bldg_A1_HVAC_Check_2024-03-15",
		},
		{
			name:     "empty fields use placeholders",
			record:   Record{},
			expected: "Account_Site_Task_2024-03-15",
		},
		{
			name:     "only punctuation falls back",
			record:   Record{Account: "!!!", Site: "  ", TaskName: "#/"},
			expected: "Account_Site_Task_2024-03-15",
		},
		{
			name:     "whitespace runs collapse",
			record:   Record{Account: "  Acme \t Ltd  ", Site: "North\nWing", TaskName: "Pump   7"},
			expected: "Acme_Ltd_North_Wing_Pump_7_2024-03-15",
		},
		{
			name:     "non-ascii letters stripped",
			record:   Record{Account: "Café Nord", Site: "Zürich AG", TaskName: "Čištění"},
			expected: "Caf_Nord_Zrich_AG_tn_2024-03-15",
		},
		{
			name:     "only non-ascii falls back",
			record:   Record{Account: "Čé", Site: "Site 1", TaskName: "Check"},
			expected: "Account_Site_1_Check_2024-03-15",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Name(tt.record, date)
			if got != tt.expected {
				t.Errorf("Name() = %q, want %q", got, tt.expected)
			}
			if again := Name(tt.record, date); again != got {
				t.Errorf("Name() not stable: %q vs %q", got, again)
			}
		})
	}
}

func TestNameWith_FoldDiacritics(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	rec := Record{Account: "Café Résumé", Site: "Plzeň", TaskName: "Čištění"}

	got := NameWith(rec, date, NameOptions{FoldDiacritics: true})
	if got != "Cafe_Resume_Plzen_Cisteni_2024-03-15" {
		t.Errorf("NameWith() = %q", got)
	}
	if plain := NameWith(rec, date, NameOptions{}); plain != Name(rec, date) {
		t.Errorf("zero options = %q, Name() = %q", plain, Name(rec, date))
	}
}

func TestFileName(t *testing.T) {
	rec := Record{Account: "A", Site: "B", TaskName: "C"}
	got := FileName(rec, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if got != "A_B_C_2025-01-02.pdf" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestValidate(t *testing.T) {
	full := Record{
		Account:         "Tech Corp",
		Site:            "Bldg A",
		TaskName:        "HVAC",
		ServiceProvider: "CoolAir",
		CompletedBy:     "J. Doe",
		Date:            NewDate(time.Now()),
	}
	if err := full.Validate(); err != nil {
		t.Fatalf("expected full record to validate, got %v", err)
	}

	partial := full
	partial.Site = "  "
	partial.Date = Date{}
	err := partial.Validate()

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 || ve.Fields[0] != "site" || ve.Fields[1] != "dateOfMaintenance" {
		t.Errorf("unexpected missing fields %v", ve.Fields)
	}
}

func TestDetailRows(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	if err != nil {
		t.Fatal(err)
	}
	rows := Record{Account: "Acme", Date: d}.DetailRows()
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	if rows[0].Label != "ACCOUNT" || rows[0].Value != "Acme" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[5].Value != "March 05, 2024" {
		t.Errorf("unexpected date value %q", rows[5].Value)
	}
}

func TestRecordJSON(t *testing.T) {
	in := `{"account":"Acme","site":"HQ","pmTaskName":"Boiler","serviceProvider":"HeatCo","serviceCompletedBy":"Sam","dateOfMaintenance":"2024-03-15"}`
	var r Record
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.TaskName != "Boiler" || r.Date.String() != "2024-03-15" {
		t.Errorf("unexpected record %+v", r)
	}

	if err := json.Unmarshal([]byte(`{"dateOfMaintenance":"15/03/2024"}`), &r); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestShareTitle(t *testing.T) {
	if got := (Record{Site: "Bldg A"}).ShareTitle(); got != "Report for Bldg A" {
		t.Errorf("unexpected title %q", got)
	}
}
