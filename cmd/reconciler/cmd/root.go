package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

var (
	cfgFile string
	envFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	// initErr holds a config file or .env failure until a command can report it
	initErr   error
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Healthcare claims reconciliation tool",
	Long: `Reconciler compares the benefit amount approved on each healthcare claim
with the sum of the invoices billed against it, classifies every claim as
BALANCED, OVERPAID or UNDERPAID, and writes a report with summary statistics.

Examples:
  reconciler reconcile --claims-file claims.csv --invoices-file invoices.csv
  reconciler reconcile -c claims.csv -i invoices.csv --output-format json -o report.json
  reconciler generate --output-dir data --patients 50 --seed 7
  reconciler serve --claims-file claims.csv --invoices-file invoices.csv --schedule @daily
  reconciler version`,
	Version:       getVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	return NewCLIErrorHandler(os.Stderr, viper.GetBool(config.KeyVerbose)).HandleError(err)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded into the environment if present")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads .env, registers defaults and reads the config file.
// Existing environment variables win over .env entries.
func initConfig() {
	initErr = nil

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			initErr = errors.ConfigurationError(errors.CodeInvalidConfig, "env-file", envFile, err)
			return
		}
	}

	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())
	viper.BindPFlag(config.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			initErr = errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err)
			return
		}
		if viper.GetBool(config.KeyVerbose) {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// setup binds the command's flags to their viper keys, resolves the
// configuration and installs the configured logger
func setup(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	if initErr != nil {
		return nil, initErr
	}

	v := viper.GetViper()
	for flag, key := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.ConfigurationError(errors.CodeInvalidConfig, key, flag, err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err)
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", cfg.Log.Level, err)
	}
	logger.SetGlobalLogger(log)

	appConfig = cfg
	return cfg, nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
