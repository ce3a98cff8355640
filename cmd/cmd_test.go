package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/fieldreport/internal/config"
	"github.com/kozaktomas/fieldreport/internal/report"
)

func newRecordCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addRecordFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cmd
}

func TestApplyRecordFlags(t *testing.T) {
	base := report.Record{Account: "Old Corp", Site: "Old Site", Date: report.NewDate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))}

	cmd := newRecordCmd(t, "--account", "Tech Corp", "--date", "2024-03-15")
	rec, err := applyRecordFlags(cmd, base)
	if err != nil {
		t.Fatalf("applyRecordFlags() error = %v", err)
	}
	if rec.Account != "Tech Corp" {
		t.Errorf("account = %s, want Tech Corp", rec.Account)
	}
	if rec.Site != "Old Site" {
		t.Errorf("site = %s, unset flags must keep the old value", rec.Site)
	}
	if rec.Date.String() != "2024-03-15" {
		t.Errorf("date = %s, want 2024-03-15", rec.Date)
	}
}

func TestApplyRecordFlags_DefaultsDateToToday(t *testing.T) {
	rec, err := applyRecordFlags(newRecordCmd(t), report.Record{})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Date.String() != time.Now().Format(report.DateLayout) {
		t.Errorf("date = %s, want today", rec.Date)
	}
}

func TestApplyRecordFlags_InvalidDate(t *testing.T) {
	if _, err := applyRecordFlags(newRecordCmd(t, "--date", "15/03/2024"), report.Record{}); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestResolveServeHostPort(t *testing.T) {
	cfg := &config.Config{Web: config.WebConfig{Port: 8085, Host: "127.0.0.1"}}

	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().Int("port", 0, "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().String("session-secret", "", "")

	port, host := resolveServeHostPort(cmd, cfg)
	if port != 8085 || host != "127.0.0.1" {
		t.Errorf("got %s:%d, want configured defaults", host, port)
	}

	if err := cmd.Flags().Parse([]string{"--port", "9000", "--session-secret", "s3cret"}); err != nil {
		t.Fatal(err)
	}
	port, host = resolveServeHostPort(cmd, cfg)
	if port != 9000 || host != "127.0.0.1" {
		t.Errorf("got %s:%d, want 127.0.0.1:9000", host, port)
	}
	if cfg.Web.SessionSecret != "s3cret" {
		t.Errorf("session secret = %q", cfg.Web.SessionSecret)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Count"}, [][]string{{"a", "1"}, {"b"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"ID", "COUNT", "a", "b"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty output without headers")
	}
}
