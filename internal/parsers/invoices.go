package parsers

import (
	"context"
	"io"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// InvoiceParser handles parsing of invoices CSV files
type InvoiceParser struct {
	*BaseParser
	config *InvoiceParserConfig
	logger logger.Logger
}

// NewInvoiceParser creates a new InvoiceParser with the given configuration
func NewInvoiceParser(config *InvoiceParserConfig) (*InvoiceParser, error) {
	if config == nil {
		config = DefaultInvoiceParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "invoice_parser", config.ColumnAliases, err)
	}

	return &InvoiceParser{
		BaseParser: NewBaseParser(config.parseConfig()),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("invoice_parser"),
	}, nil
}

// ParseInvoices parses every invoice in file order
func (ip *InvoiceParser) ParseInvoices(ctx context.Context, filePath string) ([]models.Invoice, *ParseStats, error) {
	ip.logger.WithField("file_path", filePath).Info("Starting invoice parsing")

	file, reader, err := ip.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx, filePath)
	stats := &ParseStats{FilePath: filePath}

	if err := ip.ReadHeaders(reader, parseCtx, ip.config.required(InvoiceColumns)); err != nil {
		return nil, stats, err
	}

	seen := make(keyIndex)
	var invoices []models.Invoice
	for {
		record, err := ip.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			ip.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Error("Failed to read invoice record")
			return nil, stats, err
		}

		stats.RecordsParsed++
		invoice, err := ip.parseInvoiceFromRecord(record, parseCtx)
		if err != nil {
			ip.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Error("Invalid invoice record")
			return nil, stats, err
		}
		if err := seen.check(parseCtx, ip.config.GetColumnName(ColInvoiceID), invoice.InvoiceID); err != nil {
			ip.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Error("Duplicate invoice key")
			return nil, stats, err
		}
		invoices = append(invoices, invoice)
	}

	stats.TotalLines = parseCtx.LineNumber
	ip.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
	}).Info("Invoice parsing completed")

	return invoices, stats, nil
}

func (ip *InvoiceParser) parseInvoiceFromRecord(record []string, parseCtx *ParseContext) (models.Invoice, error) {
	var invoice models.Invoice
	col := ip.config.GetColumnName
	file, line := parseCtx.FilePath, parseCtx.LineNumber

	var err error
	if invoice.InvoiceID, err = ip.RequiredField(record, parseCtx, col(ColInvoiceID)); err != nil {
		return invoice, err
	}
	if invoice.ClaimID, err = ip.RequiredField(record, parseCtx, col(ColClaimID)); err != nil {
		return invoice, err
	}
	if invoice.TypeOfBill, err = ip.GetFieldValue(record, parseCtx, col(ColTypeOfBill)); err != nil {
		return invoice, err
	}
	if invoice.PaymentMethod, err = ip.GetFieldValue(record, parseCtx, col(ColPaymentMethod)); err != nil {
		return invoice, err
	}

	raw, err := ip.GetFieldValue(record, parseCtx, col(ColTransactionValue))
	if err != nil {
		return invoice, err
	}
	if invoice.TransactionValue, err = models.ParseAmount(raw); err != nil {
		return invoice, errors.SchemaError(errors.CodeInvalidAmount, file, line, col(ColTransactionValue), raw, err)
	}

	if raw, err = ip.GetFieldValue(record, parseCtx, col(ColInvoiceDate)); err != nil {
		return invoice, err
	}
	if invoice.InvoiceDate, err = models.ParseDate(raw); err != nil {
		return invoice, errors.SchemaError(errors.CodeInvalidDate, file, line, col(ColInvoiceDate), raw, err)
	}

	if raw, err = ip.GetFieldValue(record, parseCtx, col(ColPaymentStatus)); err != nil {
		return invoice, err
	}
	if invoice.PaymentStatus, err = models.ParsePaymentStatus(raw); err != nil {
		return invoice, errors.SchemaError(errors.CodeInvalidEnum, file, line, col(ColPaymentStatus), raw, err)
	}

	return invoice, nil
}
