package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"claims-reconciliation-service/internal/generator"
	"claims-reconciliation-service/internal/parsers"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/logger"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	config, err := Load(newViper())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if config.OutputFile != "report.html" {
		t.Errorf("expected OutputFile 'report.html', got '%s'", config.OutputFile)
	}
	if config.OutputFormat != "html" {
		t.Errorf("expected OutputFormat 'html', got '%s'", config.OutputFormat)
	}
	if config.Source != SourceCSV {
		t.Errorf("expected Source 'csv', got '%s'", config.Source)
	}
	if config.DB.Driver != store.DriverSQLite {
		t.Errorf("expected sqlite driver, got '%s'", config.DB.Driver)
	}
	if config.DB.ConnLifetime != time.Hour {
		t.Errorf("expected 1h connection lifetime, got %v", config.DB.ConnLifetime)
	}
	if config.SMTP.Port != 587 || !config.SMTP.AttachReport {
		t.Errorf("unexpected smtp defaults: %+v", config.SMTP)
	}
	if config.Serve.Addr != ":8080" {
		t.Errorf("expected serve address ':8080', got '%s'", config.Serve.Addr)
	}
	if config.Generate.Patients != generator.DefaultPatients {
		t.Errorf("expected %d patients, got %d", generator.DefaultPatients, config.Generate.Patients)
	}
	if config.Log.Level != logger.InfoLevel {
		t.Errorf("expected info log level, got '%s'", config.Log.Level)
	}
	if config.NotifyEnabled() {
		t.Error("notifications should be disabled without smtp settings")
	}
	if err := ValidateConfig(config); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("RECONCILER_CLAIMS_FILE", "/data/claims.csv")
	t.Setenv("RECONCILER_OUTPUT_FORMAT", " JSON ")
	t.Setenv("RECONCILER_DB_DRIVER", "mysql")
	t.Setenv("RECONCILER_DB_DSN", "user:pass@tcp(localhost:3306)/claims")
	t.Setenv("RECONCILER_SMTP_HOST", "smtp.example.com")
	t.Setenv("RECONCILER_SMTP_TO", "finance@example.com,audit@example.com")
	t.Setenv("RECONCILER_SERVE_SCHEDULE", "@daily")
	t.Setenv("RECONCILER_VERBOSE", "true")

	config, err := Load(newViper())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if config.ClaimsFile != "/data/claims.csv" {
		t.Errorf("expected claims file from env, got '%s'", config.ClaimsFile)
	}
	if config.OutputFormat != "json" {
		t.Errorf("expected normalized format 'json', got '%s'", config.OutputFormat)
	}
	if config.DB.Driver != store.DriverMySQL || config.DB.DSN == "" {
		t.Errorf("unexpected db config: %+v", config.DB)
	}
	if len(config.SMTP.To) != 2 || config.SMTP.To[1] != "audit@example.com" {
		t.Errorf("expected two recipients, got %v", config.SMTP.To)
	}
	if !config.NotifyEnabled() {
		t.Error("notifications should be enabled")
	}
	if config.Serve.Schedule != "@daily" {
		t.Errorf("expected schedule '@daily', got '%s'", config.Serve.Schedule)
	}
	if config.Log.Level != logger.DebugLevel {
		t.Errorf("verbose should force debug logging, got '%s'", config.Log.Level)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciler.yaml")
	content := `
output-format: csv
report:
  title: Q3 Claims
columns:
  claims:
    claim_id: ClaimNumber
    benefit_amount: Benefit
db:
  dsn: /tmp/claims.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	config, err := Load(v)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if config.OutputFormat != "csv" {
		t.Errorf("expected csv format, got '%s'", config.OutputFormat)
	}
	if config.Report.Title != "Q3 Claims" {
		t.Errorf("expected report title from file, got '%s'", config.Report.Title)
	}
	if config.DB.DSN != "/tmp/claims.db" || config.DB.Driver != store.DriverSQLite {
		t.Errorf("unexpected db config: %+v", config.DB)
	}

	claims, _, err := config.CreateSources()
	if err != nil {
		t.Fatalf("failed to create sources: %v", err)
	}
	if got := claims.Config.GetColumnName(parsers.ColClaimID); got != "ClaimNumber" {
		t.Errorf("expected claim_id alias 'ClaimNumber', got '%s'", got)
	}
	if got := claims.Config.GetColumnName(parsers.ColBenefitAmount); got != "Benefit" {
		t.Errorf("expected benefit_amount alias 'Benefit', got '%s'", got)
	}
}

func TestCreateParserConfigs(t *testing.T) {
	claims, err := CreateClaimParserConfig(nil)
	if err != nil {
		t.Fatalf("failed to create claim parser config: %v", err)
	}
	if claims.Delimiter != ',' {
		t.Errorf("expected Delimiter ',', got '%c'", claims.Delimiter)
	}

	if _, err := CreateClaimParserConfig(map[string]string{"member_id": "Member"}); err == nil {
		t.Error("expected error for alias of unknown column")
	}

	invoices, err := CreateInvoiceParserConfig(map[string]string{"transaction_value": "Amount"})
	if err != nil {
		t.Fatalf("failed to create invoice parser config: %v", err)
	}
	if invoices.GetColumnName(parsers.ColTransactionValue) != "Amount" {
		t.Error("expected transaction_value alias to be applied")
	}

	if _, err := CreateInvoiceParserConfig(map[string]string{
		"invoice_id": "ID",
		"claim_id":   "id",
	}); err == nil {
		t.Error("expected error for two columns sharing one alias")
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format         string
		title          string
		expectedFormat reporter.OutputFormat
		expectedTitle  string
		includeRecords bool
		expectError    bool
	}{
		{format: "html", expectedFormat: reporter.FormatHTML, expectedTitle: reporter.DefaultTitle, includeRecords: true},
		{format: "JSON", title: "Weekly", expectedFormat: reporter.FormatJSON, expectedTitle: "Weekly", includeRecords: true},
		{format: "csv", expectedFormat: reporter.FormatCSV, expectedTitle: reporter.DefaultTitle, includeRecords: true},
		{format: "console", expectedFormat: reporter.FormatConsole, expectedTitle: reporter.DefaultTitle, includeRecords: false},
		{format: "xml", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			config, err := CreateReportConfig(tt.format, tt.title)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.expectedFormat {
				t.Errorf("expected format %s, got %s", tt.expectedFormat, config.Format)
			}
			if config.Title != tt.expectedTitle {
				t.Errorf("expected title '%s', got '%s'", tt.expectedTitle, config.Title)
			}
			if config.IncludeRecords != tt.includeRecords {
				t.Errorf("expected IncludeRecords %v, got %v", tt.includeRecords, config.IncludeRecords)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("report config should be valid: %v", err)
			}
		})
	}
}

func TestCreateGeneratorConfig(t *testing.T) {
	config := &Config{Generate: GenerateConfig{Patients: 12, Seed: 42}}
	gen := config.CreateGeneratorConfig()
	if gen.Patients != 12 || gen.Seed != 42 {
		t.Errorf("unexpected generator config: %+v", gen)
	}
	if err := gen.Validate(); err != nil {
		t.Errorf("generator config should be valid: %v", err)
	}

	config.Generate.Seed = 0
	if config.CreateGeneratorConfig().Seed == 0 {
		t.Error("zero seed should be replaced by a clock seed")
	}
}

func TestLocation(t *testing.T) {
	config := &Config{}
	loc, err := config.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("expected UTC, got %v (%v)", loc, err)
	}

	config.Serve.Timezone = "Mars/Olympus"
	if _, err := config.Location(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		config, err := Load(newViper())
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		return config
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "db source", mutate: func(c *Config) { c.Source = SourceDB }},
		{name: "unknown source", mutate: func(c *Config) { c.Source = "s3" }, expectError: true},
		{name: "unknown format", mutate: func(c *Config) { c.OutputFormat = "pdf" }, expectError: true},
		{name: "archive without dsn", mutate: func(c *Config) { c.Archive = true; c.DB.DSN = "" }, expectError: true},
		{name: "csv source ignores db", mutate: func(c *Config) { c.DB.Driver = "oracle" }},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)
			err := ValidateConfig(config)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
