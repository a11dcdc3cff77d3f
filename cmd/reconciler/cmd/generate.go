package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/generator"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/errors"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic patients, claims and invoices dataset",
	Long: `Generate writes patients.csv, claims.csv and invoices.csv with realistic
random data. The same --seed always produces the same files.

Examples:
  reconciler generate
  reconciler generate --output-dir data --patients 50 --seed 7
  reconciler generate --output-dir data --import`,

	PreRunE: validateGenerateFlags,
	RunE:    runGenerate,
}

var generateBindings = map[string]string{
	"output-dir": config.KeyGenerateDir,
	"patients":   config.KeyGeneratePatients,
	"seed":       config.KeyGenerateSeed,
	"import":     config.KeyGenerateImport,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("output-dir", "d", ".", "directory for the generated CSV files")
	generateCmd.Flags().IntP("patients", "n", generator.DefaultPatients, "number of patients")
	generateCmd.Flags().Int64("seed", 0, "random seed (0 picks one from the clock)")
	generateCmd.Flags().Bool("import", false, "also import the generated claims and invoices into the database")
}

func validateGenerateFlags(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, generateBindings)
	if err != nil {
		return err
	}
	if cfg.Generate.Patients < 0 {
		return fmt.Errorf("patients cannot be negative")
	}
	if info, err := os.Stat(cfg.Generate.OutputDir); err == nil && !info.IsDir() {
		return fmt.Errorf("output-dir is not a directory: %s", cfg.Generate.OutputDir)
	}
	if cfg.Generate.Import {
		if err := cfg.DB.Validate(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "db", cfg.DB.Driver, err)
		}
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	stderr := cmd.ErrOrStderr()

	genConfig := cfg.CreateGeneratorConfig()
	gen, err := generator.New(genConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "generate", genConfig.Patients, err)
	}

	dataset := gen.Generate()
	files, err := dataset.WriteCSV(cfg.Generate.OutputDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Generated %d patients, %d claims and %d invoices (seed %d)\n",
		len(dataset.Patients), len(dataset.Claims), len(dataset.Invoices), genConfig.Seed)
	fmt.Fprintf(stderr, "  %s\n  %s\n  %s\n", files.Patients, files.Claims, files.Invoices)

	if cfg.Generate.Import {
		db, err := store.Open(&cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.ImportDataset(cmd.Context(), dataset.Claims, dataset.Invoices)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Imported %d claims and %d invoices into %s\n", stats.Claims, stats.Invoices, db)
	}
	return nil
}
