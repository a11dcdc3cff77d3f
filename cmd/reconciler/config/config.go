package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"claims-reconciliation-service/internal/generator"
	"claims-reconciliation-service/internal/notify"
	"claims-reconciliation-service/internal/parsers"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/logger"
)

// EnvPrefix prefixes every environment variable read by the CLI
const EnvPrefix = "RECONCILER"

// Where the claims and invoices tables are read from
const (
	SourceCSV = "csv"
	SourceDB  = "db"
)

// Viper keys shared by flags, environment and config file
const (
	KeyVerbose        = "verbose"
	KeyClaimsFile     = "claims-file"
	KeyInvoicesFile   = "invoices-file"
	KeyOutputFile     = "output-file"
	KeyOutputFormat   = "output-format"
	KeySource         = "source"
	KeyArchive        = "archive"
	KeyProgress       = "progress"
	KeyReportTitle    = "report.title"
	KeyClaimAliases   = "columns.claims"
	KeyInvoiceAliases = "columns.invoices"

	KeyDBDriver       = "db.driver"
	KeyDBDSN          = "db.dsn"
	KeyDBLogLevel     = "db.log_level"
	KeyDBMaxOpenConns = "db.max_open_conns"
	KeyDBMaxIdleConns = "db.max_idle_conns"
	KeyDBConnLifetime = "db.conn_max_lifetime"

	KeySMTPHost     = "smtp.host"
	KeySMTPPort     = "smtp.port"
	KeySMTPUsername = "smtp.username"
	KeySMTPPassword = "smtp.password"
	KeySMTPFrom     = "smtp.from"
	KeySMTPTo       = "smtp.to"
	KeySMTPAttach   = "smtp.attach_report"

	KeyServeAddr     = "serve.addr"
	KeyServeSchedule = "serve.schedule"
	KeyServeTimezone = "serve.timezone"

	KeyGenerateDir      = "generate.output-dir"
	KeyGeneratePatients = "generate.patients"
	KeyGenerateSeed     = "generate.seed"
	KeyGenerateImport   = "generate.import"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyLogOutput = "log.output"
	KeyLogFile   = "log.file"
)

// Config is the fully resolved CLI configuration
type Config struct {
	Verbose      bool   `mapstructure:"verbose"`
	ClaimsFile   string `mapstructure:"claims-file"`
	InvoicesFile string `mapstructure:"invoices-file"`
	OutputFile   string `mapstructure:"output-file"`
	OutputFormat string `mapstructure:"output-format"`
	Source       string `mapstructure:"source"`
	Archive      bool   `mapstructure:"archive"`
	Progress     bool   `mapstructure:"progress"`

	Report   ReportConfig   `mapstructure:"report"`
	Columns  ColumnsConfig  `mapstructure:"columns"`
	DB       store.Config   `mapstructure:"db"`
	SMTP     notify.Config  `mapstructure:"smtp"`
	Serve    ServeConfig    `mapstructure:"serve"`
	Generate GenerateConfig `mapstructure:"generate"`
	Log      logger.Config  `mapstructure:"log"`
}

// ReportConfig holds report settings that are not flags
type ReportConfig struct {
	Title string `mapstructure:"title"`
}

// ColumnsConfig maps standard column names to the headers of nonstandard files
type ColumnsConfig struct {
	Claims   map[string]string `mapstructure:"claims"`
	Invoices map[string]string `mapstructure:"invoices"`
}

// ServeConfig configures the HTTP service and its schedule
type ServeConfig struct {
	Addr     string `mapstructure:"addr"`
	Schedule string `mapstructure:"schedule"`
	Timezone string `mapstructure:"timezone"`
}

// GenerateConfig configures synthetic data generation
type GenerateConfig struct {
	OutputDir string `mapstructure:"output-dir"`
	Patients  int    `mapstructure:"patients"`
	Seed      int64  `mapstructure:"seed"`
	Import    bool   `mapstructure:"import"`
}

// SetDefaults registers every key so that environment variables are seen by
// Unmarshal even when no flag or config file mentions them
func SetDefaults(v *viper.Viper) {
	db := store.DefaultConfig()
	smtp := notify.DefaultConfig()
	log := logger.DefaultConfig()

	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyClaimsFile, "")
	v.SetDefault(KeyInvoicesFile, "")
	v.SetDefault(KeyOutputFile, reconciler.DefaultOutputPath)
	v.SetDefault(KeyOutputFormat, string(reporter.FormatHTML))
	v.SetDefault(KeySource, SourceCSV)
	v.SetDefault(KeyArchive, false)
	v.SetDefault(KeyProgress, false)
	v.SetDefault(KeyReportTitle, reporter.DefaultTitle)
	v.SetDefault(KeyClaimAliases, map[string]string{})
	v.SetDefault(KeyInvoiceAliases, map[string]string{})

	v.SetDefault(KeyDBDriver, db.Driver)
	v.SetDefault(KeyDBDSN, db.DSN)
	v.SetDefault(KeyDBLogLevel, db.LogLevel)
	v.SetDefault(KeyDBMaxOpenConns, db.MaxOpenConns)
	v.SetDefault(KeyDBMaxIdleConns, db.MaxIdleConns)
	v.SetDefault(KeyDBConnLifetime, db.ConnLifetime)

	v.SetDefault(KeySMTPHost, smtp.Host)
	v.SetDefault(KeySMTPPort, smtp.Port)
	v.SetDefault(KeySMTPUsername, "")
	v.SetDefault(KeySMTPPassword, "")
	v.SetDefault(KeySMTPFrom, "")
	v.SetDefault(KeySMTPTo, []string{})
	v.SetDefault(KeySMTPAttach, smtp.AttachReport)

	v.SetDefault(KeyServeAddr, ":8080")
	v.SetDefault(KeyServeSchedule, "")
	v.SetDefault(KeyServeTimezone, "UTC")

	v.SetDefault(KeyGenerateDir, ".")
	v.SetDefault(KeyGeneratePatients, generator.DefaultPatients)
	v.SetDefault(KeyGenerateSeed, int64(0))
	v.SetDefault(KeyGenerateImport, false)

	v.SetDefault(KeyLogLevel, string(log.Level))
	v.SetDefault(KeyLogFormat, string(log.Format))
	v.SetDefault(KeyLogOutput, string(log.Output))
	v.SetDefault(KeyLogFile, "")
}

// BindEnv makes RECONCILER_DB_DSN override db.dsn, RECONCILER_CLAIMS_FILE
// override claims-file, and so on
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load resolves the configuration from v
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	config.OutputFormat = strings.ToLower(strings.TrimSpace(config.OutputFormat))
	config.Source = strings.ToLower(strings.TrimSpace(config.Source))
	if config.Verbose {
		config.Log.Level = logger.DebugLevel
	}
	return &config, nil
}

// CreateClaimParserConfig applies configured column aliases to the default layout
func CreateClaimParserConfig(aliases map[string]string) (*parsers.ClaimParserConfig, error) {
	config := parsers.DefaultClaimParserConfig()
	for std, alias := range aliases {
		config.ColumnAliases[std] = alias
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid claim columns: %w", err)
	}
	return config, nil
}

// CreateInvoiceParserConfig applies configured column aliases to the default layout
func CreateInvoiceParserConfig(aliases map[string]string) (*parsers.InvoiceParserConfig, error) {
	config := parsers.DefaultInvoiceParserConfig()
	for std, alias := range aliases {
		config.ColumnAliases[std] = alias
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice columns: %w", err)
	}
	return config, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format, title string) (*reporter.ReportConfig, error) {
	parsed, err := reporter.ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}

	config := reporter.DefaultReportConfig()
	config.Format = parsed
	if strings.TrimSpace(title) != "" {
		config.Title = title
	}

	switch parsed {
	case reporter.FormatConsole:
		config.IncludeRecords = false
	case reporter.FormatCSV:
		config.CSVDelimiter = ','
	}
	return config, nil
}

// CreateSources builds CSV sources from the configured paths and column aliases
func (c *Config) CreateSources() (*reconciler.CSVClaimSource, *reconciler.CSVInvoiceSource, error) {
	claimConfig, err := CreateClaimParserConfig(c.Columns.Claims)
	if err != nil {
		return nil, nil, err
	}
	invoiceConfig, err := CreateInvoiceParserConfig(c.Columns.Invoices)
	if err != nil {
		return nil, nil, err
	}
	return &reconciler.CSVClaimSource{Path: c.ClaimsFile, Config: claimConfig},
		&reconciler.CSVInvoiceSource{Path: c.InvoicesFile, Config: invoiceConfig}, nil
}

// CreateGeneratorConfig maps the generate settings onto the generator. A zero
// seed draws one from the clock.
func (c *Config) CreateGeneratorConfig() *generator.Config {
	config := generator.DefaultConfig()
	config.Patients = c.Generate.Patients
	if c.Generate.Seed != 0 {
		config.Seed = c.Generate.Seed
	}
	return config
}

// NotifyEnabled reports whether enough SMTP settings exist to send mail
func (c *Config) NotifyEnabled() bool {
	return strings.TrimSpace(c.SMTP.Host) != "" && len(c.SMTP.To) > 0
}

// Location resolves the schedule timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Serve.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Serve.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Serve.Timezone, err)
	}
	return loc, nil
}

// ValidateConfig checks the settings every command depends on
func ValidateConfig(c *Config) error {
	switch c.Source {
	case SourceCSV, SourceDB:
	default:
		return fmt.Errorf("invalid source '%s'. Valid sources: csv, db", c.Source)
	}

	if _, err := reporter.ParseOutputFormat(c.OutputFormat); err != nil {
		return err
	}

	if c.Source == SourceDB || c.Archive {
		if err := c.DB.Validate(); err != nil {
			return fmt.Errorf("invalid database config: %w", err)
		}
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	return nil
}
