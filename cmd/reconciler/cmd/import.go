package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load claims and invoices CSV files into the database",
	Long: `Import parses both CSV files and upserts their rows into the configured
database (db.driver, db.dsn). Rows are matched by claim_id and invoice_id, so
importing the same files twice leaves the tables unchanged.

Examples:
  reconciler import -c claims.csv -i invoices.csv
  RECONCILER_DB_DSN=claims.db reconciler import -c claims.csv -i invoices.csv
  reconciler import -c claims.csv -i invoices.csv --config reconciler.yaml`,

	PreRunE: validateImportFlags,
	RunE:    runImport,
}

var importBindings = map[string]string{
	"claims-file":   config.KeyClaimsFile,
	"invoices-file": config.KeyInvoicesFile,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("claims-file", "c", "", "path to claims CSV file (required)")
	importCmd.Flags().StringP("invoices-file", "i", "", "path to invoices CSV file (required)")
}

func validateImportFlags(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, importBindings)
	if err != nil {
		return err
	}
	if err := validateFileExists(cfg.ClaimsFile, "claims file"); err != nil {
		return err
	}
	if err := validateFileExists(cfg.InvoicesFile, "invoices file"); err != nil {
		return err
	}
	return cfg.DB.Validate()
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	ctx := cmd.Context()

	claimSource, invoiceSource, err := cfg.CreateSources()
	if err != nil {
		return err
	}
	claims, err := claimSource.LoadClaims(ctx)
	if err != nil {
		return err
	}
	invoices, err := invoiceSource.LoadInvoices(ctx)
	if err != nil {
		return err
	}

	db, err := store.Open(&cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.ImportDataset(ctx, claims, invoices)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d claims and %d invoices into %s\n", stats.Claims, stats.Invoices, db)
	return nil
}
