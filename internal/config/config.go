package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/automaton-sapaudit/internal/application/analysis"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/inactivity"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/roles"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/users"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
		RateLimit   struct {
			Capacity        int `yaml:"capacity"`
			RefillPerSecond int `yaml:"refillPerSecond"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	// Store.Backend: memory | mysql | postgres | minio
	Store struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | pgx
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Analysis Analysis `yaml:"analysis"`
}

type Sections struct {
	UserDetails bool `yaml:"userDetails"`
	RoleDetails bool `yaml:"roleDetails"`
	AuthDetails bool `yaml:"authDetails"`
	Summary     bool `yaml:"summary"`
}

type Inactivity struct {
	Thresholds  inactivity.Thresholds `yaml:"thresholds"`
	LoginObject string                `yaml:"loginObject"`
	LoginField  string                `yaml:"loginField"`
}

type Analysis struct {
	// table -> canonical field -> patterns, replaces the built-in patterns
	Synonyms              map[string]map[string][]string `yaml:"synonyms"`
	Formats               sapdate.Formats                `yaml:"formats"`
	UserTypes             map[string]string              `yaml:"userTypes"`
	CriticalObjects       []string                       `yaml:"criticalObjects"`
	HighPrivilegeKeywords []string                       `yaml:"highPrivilegeKeywords"`
	Weights               report.Weights                 `yaml:"weights"`
	MaxRolesPerUser       int                            `yaml:"maxRolesPerUser"`
	TopN                  int                            `yaml:"topN"`
	TopUsers              int                            `yaml:"topUsers"`
	Sections              Sections                       `yaml:"sections"`
	Strict                bool                           `yaml:"strict"`
	Inactivity            Inactivity                     `yaml:"inactivity"`
}

// Default returns the configuration used for every field config.yaml leaves unset
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.CORSOrigins = []string{"*"}
	c.Server.RateLimit.Capacity = 60
	c.Server.RateLimit.RefillPerSecond = 1
	c.Store.Backend = "memory"
	c.Database.Driver = "mysql"
	c.Database.Host = "127.0.0.1"
	c.Database.SSLMode = "disable"
	c.Minio.BucketName = "sap-audit-reports"
	c.OpenAI.Model = "gpt-4o-mini"

	rc := report.DefaultConfig()
	c.Analysis = Analysis{
		Formats:               sapdate.DefaultFormats(),
		UserTypes:             users.DefaultTypes(),
		CriticalObjects:       append([]string(nil), rc.CriticalObjects...),
		HighPrivilegeKeywords: append([]string(nil), roles.DefaultHighPrivilegeKeywords...),
		Weights:               report.DefaultWeights(),
		MaxRolesPerUser:       rc.MaxRolesPerUser,
		TopN:                  rc.TopN,
		TopUsers:              10,
		Sections: Sections{
			UserDetails: rc.IncludeUserDetails,
			RoleDetails: rc.IncludeRoleDetails,
			AuthDetails: rc.IncludeAuthDetails,
			Summary:     rc.IncludeSummary,
		},
		Inactivity: Inactivity{
			Thresholds:  inactivity.DefaultThresholds(),
			LoginObject: "S_USER",
			LoginField:  "LOGON_DATA",
		},
	}
	return &c
}

// Load baca file config.yaml di atas nilai default, lalu override secret dari env
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 3306
		if cfg.Database.Driver != "mysql" {
			cfg.Database.Port = 5432
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets secrets live in .env instead of config.yaml
func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Store.Backend, "STORE_BACKEND")
	set(&c.Database.Password, "DB_PASSWORD")
	set(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	set(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	set(&c.OpenAI.APIKey, "OPENAI_API_KEY")
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "mysql", "postgres", "minio":
	default:
		return fmt.Errorf("invalid store.backend %q (allowed: memory, mysql, postgres, minio)", c.Store.Backend)
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "pgx":
	default:
		return fmt.Errorf("invalid database.driver %q (allowed: mysql, postgres, pgx)", c.Database.Driver)
	}
	if c.Store.Backend == "postgres" && c.Database.Driver == "mysql" {
		return fmt.Errorf("store.backend postgres needs database.driver postgres or pgx")
	}
	if c.Store.Backend == "mysql" && c.Database.Driver != "mysql" {
		return fmt.Errorf("store.backend mysql needs database.driver mysql")
	}
	t := c.Analysis.Inactivity.Thresholds
	if t.Medium <= 0 || t.Medium >= t.High || t.High >= t.Critical {
		return fmt.Errorf("inactivity thresholds must satisfy 0 < medium < high < critical, got %d/%d/%d", t.Medium, t.High, t.Critical)
	}
	for _, f := range []string{c.Analysis.Formats.DateInput, c.Analysis.Formats.DateOutput} {
		if !strings.Contains(f, "%") {
			return fmt.Errorf("invalid date format %q", f)
		}
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN works for both lib/pq and pgx
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// AnalysisSettings converts the analysis section for the application layer
func (c *Config) AnalysisSettings() analysis.Settings {
	a := c.Analysis
	schemas := tables.DefaultSchemas()
	if len(a.Synonyms) > 0 {
		schemas = tables.WithSynonyms(schemas, a.Synonyms)
	}
	return analysis.Settings{
		Codec:     sapdate.NewCodec(a.Formats),
		Schemas:   schemas,
		Strict:    a.Strict,
		UserTypes: a.UserTypes,
		Keywords:  a.HighPrivilegeKeywords,
		TopUsers:  a.TopUsers,
		Report: report.Config{
			IncludeUserDetails: a.Sections.UserDetails,
			IncludeRoleDetails: a.Sections.RoleDetails,
			IncludeAuthDetails: a.Sections.AuthDetails,
			IncludeSummary:     a.Sections.Summary,
			CriticalObjects:    a.CriticalObjects,
			MaxRolesPerUser:    a.MaxRolesPerUser,
			TopN:               a.TopN,
			Weights:            a.Weights,
		},
		Thresholds:  a.Inactivity.Thresholds,
		LoginObject: a.Inactivity.LoginObject,
		LoginField:  a.Inactivity.LoginField,
	}
}
