package parsers

import (
	"context"
	"io"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// ClaimParser handles parsing of claims CSV files
type ClaimParser struct {
	*BaseParser
	config *ClaimParserConfig
	logger logger.Logger
}

// NewClaimParser creates a new ClaimParser with the given configuration
func NewClaimParser(config *ClaimParserConfig) (*ClaimParser, error) {
	if config == nil {
		config = DefaultClaimParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "claim_parser", config.ColumnAliases, err)
	}

	return &ClaimParser{
		BaseParser: NewBaseParser(config.parseConfig()),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("claim_parser"),
	}, nil
}

// ParseClaims parses every claim in file order
func (cp *ClaimParser) ParseClaims(ctx context.Context, filePath string) ([]models.Claim, *ParseStats, error) {
	cp.logger.WithField("file_path", filePath).Info("Starting claim parsing")

	file, reader, err := cp.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx, filePath)
	stats := &ParseStats{FilePath: filePath}

	if err := cp.ReadHeaders(reader, parseCtx, cp.config.required(ClaimColumns)); err != nil {
		return nil, stats, err
	}

	seen := make(keyIndex)
	var claims []models.Claim
	for {
		record, err := cp.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			cp.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Error("Failed to read claim record")
			return nil, stats, err
		}

		stats.RecordsParsed++
		claim, err := cp.parseClaimFromRecord(record, parseCtx)
		if err != nil {
			cp.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Error("Invalid claim record")
			return nil, stats, err
		}
		if err := seen.check(parseCtx, cp.config.GetColumnName(ColClaimID), claim.ClaimID); err != nil {
			cp.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Error("Duplicate claim key")
			return nil, stats, err
		}
		claims = append(claims, claim)
	}

	stats.TotalLines = parseCtx.LineNumber
	cp.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
	}).Info("Claim parsing completed")

	return claims, stats, nil
}

func (cp *ClaimParser) parseClaimFromRecord(record []string, parseCtx *ParseContext) (models.Claim, error) {
	var claim models.Claim
	col := cp.config.GetColumnName
	file, line := parseCtx.FilePath, parseCtx.LineNumber

	var err error
	if claim.ClaimID, err = cp.RequiredField(record, parseCtx, col(ColClaimID)); err != nil {
		return claim, err
	}
	if claim.PatientID, err = cp.GetFieldValue(record, parseCtx, col(ColPatientID)); err != nil {
		return claim, err
	}
	if claim.ProviderName, err = cp.GetFieldValue(record, parseCtx, col(ColProviderName)); err != nil {
		return claim, err
	}
	if claim.InsuranceCompany, err = cp.GetFieldValue(record, parseCtx, col(ColInsuranceCompany)); err != nil {
		return claim, err
	}

	raw, err := cp.GetFieldValue(record, parseCtx, col(ColDateOfService))
	if err != nil {
		return claim, err
	}
	if claim.DateOfService, err = models.ParseDate(raw); err != nil {
		return claim, errors.SchemaError(errors.CodeInvalidDate, file, line, col(ColDateOfService), raw, err)
	}

	if raw, err = cp.GetFieldValue(record, parseCtx, col(ColChargesAmount)); err != nil {
		return claim, err
	}
	if claim.ChargesAmount, err = models.ParseAmount(raw); err != nil {
		return claim, errors.SchemaError(errors.CodeInvalidAmount, file, line, col(ColChargesAmount), raw, err)
	}

	if raw, err = cp.GetFieldValue(record, parseCtx, col(ColBenefitAmount)); err != nil {
		return claim, err
	}
	if claim.BenefitAmount, err = models.ParseAmount(raw); err != nil {
		return claim, errors.SchemaError(errors.CodeInvalidAmount, file, line, col(ColBenefitAmount), raw, err)
	}

	if raw, err = cp.GetFieldValue(record, parseCtx, col(ColClaimStatus)); err != nil {
		return claim, err
	}
	if claim.ClaimStatus, err = models.ParseClaimStatus(raw); err != nil {
		return claim, errors.SchemaError(errors.CodeInvalidEnum, file, line, col(ColClaimStatus), raw, err)
	}

	return claim, nil
}
