package generator

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/parsers"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// File names written by WriteCSV
const (
	PatientsFile = "patients.csv"
	ClaimsFile   = "claims.csv"
	InvoicesFile = "invoices.csv"
)

// PatientColumns lists the patients header in file order
var PatientColumns = []string{"patient_id", "name", "age", "state", "insurance_plan"}

// Files are the paths of a written dataset
type Files struct {
	Patients string
	Claims   string
	Invoices string
}

// WriteCSV writes the three tables into dir, creating it if needed. Each file
// is replaced atomically.
func (ds *Dataset) WriteCSV(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WriteError(errors.CodeDirectoryError, dir, err)
	}

	files := &Files{
		Patients: filepath.Join(dir, PatientsFile),
		Claims:   filepath.Join(dir, ClaimsFile),
		Invoices: filepath.Join(dir, InvoicesFile),
	}

	if err := writeTable(files.Patients, PatientColumns, len(ds.Patients), func(i int) []string {
		p := ds.Patients[i]
		return []string{p.PatientID, p.Name, strconv.Itoa(p.Age), p.State, p.InsurancePlan}
	}); err != nil {
		return nil, err
	}

	if err := writeTable(files.Claims, parsers.ClaimColumns, len(ds.Claims), func(i int) []string {
		c := ds.Claims[i]
		return []string{
			c.ClaimID,
			c.PatientID,
			c.DateOfService.Format(models.DateLayout),
			models.FormatAmount(c.ChargesAmount),
			models.FormatAmount(c.BenefitAmount),
			c.ClaimStatus.String(),
			c.ProviderName,
			c.InsuranceCompany,
		}
	}); err != nil {
		return nil, err
	}

	if err := writeTable(files.Invoices, parsers.InvoiceColumns, len(ds.Invoices), func(i int) []string {
		inv := ds.Invoices[i]
		return []string{
			inv.InvoiceID,
			inv.ClaimID,
			inv.TypeOfBill,
			models.FormatAmount(inv.TransactionValue),
			inv.InvoiceDate.Format(models.DateLayout),
			inv.PaymentStatus.String(),
			inv.PaymentMethod,
		}
	}); err != nil {
		return nil, err
	}

	logger.GetGlobalLogger().WithComponent("generator").WithFields(logger.Fields{
		"patients_file": files.Patients,
		"claims_file":   files.Claims,
		"invoices_file": files.Invoices,
	}).Info("Dataset written")
	return files, nil
}

func writeTable(path string, header []string, n int, row func(int) []string) error {
	return reporter.WriteFile(path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(header); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := writer.Write(row(i)); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
}
