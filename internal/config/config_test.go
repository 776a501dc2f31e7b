package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
)

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(write(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Store.Backend != "memory" || cfg.Database.Port != 3306 {
		t.Fatalf("unexpected defaults: %+v", cfg.Server)
	}
	s := cfg.AnalysisSettings()
	if s.Thresholds.Critical != 180 || s.LoginObject != "S_USER" || s.Report.TopN != 5 || !s.Report.IncludeSummary {
		t.Fatalf("unexpected analysis settings: %+v", s)
	}
	if s.Report.Weights.UserType["A"] != 10 {
		t.Fatalf("default weights missing: %+v", s.Report.Weights)
	}
}

func TestLoadOverridesAnalysis(t *testing.T) {
	body := `
store:
  backend: postgres
database:
  driver: pgx
  name: audit
analysis:
  strict: true
  sections:
    authDetails: false
  weights:
    userType:
      A: 5
  synonyms:
    USR02:
      BNAME: [login]
  inactivity:
    thresholds: {medium: 10, high: 20, critical: 40}
`
	cfg, err := Load(write(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Port != 5432 {
		t.Fatalf("postgres port default expected, got %d", cfg.Database.Port)
	}
	s := cfg.AnalysisSettings()
	if !s.Strict || s.Report.IncludeAuthDetails || !s.Report.IncludeUserDetails {
		t.Fatalf("section flags not applied: %+v", s.Report)
	}
	// maps are merged into the defaults
	if s.Report.Weights.UserType["A"] != 5 || s.Report.Weights.UserType["B"] != 20 || s.Report.Weights.InitialPassword != 25 {
		t.Fatalf("weights: %+v", s.Report.Weights)
	}
	if got := s.Schemas[tables.USR02].Rules[0].Patterns; len(got) != 1 || got[0] != "LOGIN" {
		t.Fatalf("synonyms not applied: %v", got)
	}
	if s.Thresholds.High != 20 {
		t.Fatalf("thresholds: %+v", s.Thresholds)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []string{
		"store:\n  backend: sqlite\n",
		"store:\n  backend: mysql\ndatabase:\n  driver: pgx\n",
		"analysis:\n  inactivity:\n    thresholds: {medium: 90, high: 30, critical: 180}\n",
	}
	for _, body := range cases {
		if _, err := Load(write(t, body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DB_PASSWORD", "secret")
	cfg, err := Load(write(t, "openai:\n  apiKey: from-file\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.Database.Password != "secret" {
		t.Fatalf("env not applied: %+v", cfg.OpenAI)
	}
	if cfg.PostgresDSN() == "" || cfg.MySQLDSN() == "" {
		t.Fatalf("dsn must not be empty")
	}
}
