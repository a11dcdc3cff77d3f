// Package parsers reads the claims and invoices CSV files into typed rows.
//
// Parsing is strict: the first malformed row or unparseable value aborts the
// whole file. Structural problems (missing file, bad quoting, ragged rows,
// missing columns) are reported as data load errors; values that do not fit
// their column type are reported as schema errors carrying the file, line,
// column and offending value.
//
// Example usage:
//
//	parser, err := NewClaimParser(nil)
//	claims, stats, err := parser.ParseClaims(ctx, "data/claims.csv")
package parsers

import (
	"bufio"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

const utf8BOM = "\ufeff"

// ParseConfig holds configuration for CSV parsing
type ParseConfig struct {
	Delimiter        rune
	Comment          rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	ValidateEncoding bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		ValidateEncoding: true,
	}
}

// BaseParser provides common CSV parsing functionality
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	return &BaseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("base_parser"),
	}
}

// ParseContext holds state during parsing operations
type ParseContext struct {
	FilePath   string
	LineNumber int
	Headers    []string
	HeaderMap  map[string]int
	ctx        context.Context
}

// NewParseContext creates a new parsing context
func NewParseContext(ctx context.Context, filePath string) *ParseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ParseContext{
		FilePath:  filePath,
		HeaderMap: make(map[string]int),
		ctx:       ctx,
	}
}

// Err returns the cancellation error of the underlying context, if any
func (pc *ParseContext) Err() error {
	return pc.ctx.Err()
}

// GetColumnIndex returns the index of a column by name, or -1 if not found.
// Exact matches win over case-insensitive ones.
func (pc *ParseContext) GetColumnIndex(name string) int {
	if index, exists := pc.HeaderMap[name]; exists {
		return index
	}

	for i, header := range pc.Headers {
		if strings.EqualFold(header, name) {
			return i
		}
	}

	return -1
}

// OpenFile opens a CSV file and returns a configured csv.Reader
func (bp *BaseParser) OpenFile(filePath string) (*os.File, *csv.Reader, error) {
	bp.logger.WithField("file_path", filePath).Debug("Opening CSV file")

	file, err := os.Open(filePath)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, nil, errors.DataLoadError(errors.CodeFileNotFound, filePath, err)
		case os.IsPermission(err):
			return nil, nil, errors.DataLoadError(errors.CodeFilePermission, filePath, err)
		default:
			return nil, nil, errors.DataLoadError(errors.CodeFileCorrupted, filePath, err)
		}
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, errors.DataLoadError(errors.CodeFileCorrupted, filePath, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, errors.DataLoadError(errors.CodeFileCorrupted, filePath, fmt.Errorf("%s is a directory", filePath))
	}

	if bp.config.ValidateEncoding {
		if err := bp.validateEncoding(file, filePath); err != nil {
			file.Close()
			return nil, nil, err
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, nil, errors.DataLoadError(errors.CodeFileCorrupted, filePath, err)
		}
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.Comment = bp.config.Comment
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	// every row must have as many fields as the header
	reader.FieldsPerRecord = 0
	reader.ReuseRecord = false

	return file, reader, nil
}

// validateEncoding checks that every line of the file is valid UTF-8
func (bp *BaseParser) validateEncoding(file *os.File, filePath string) error {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.DataLoadError(
				errors.CodeEncodingError,
				filePath,
				fmt.Errorf("invalid UTF-8 at line %d", lineNum),
			).WithContext("line", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.DataLoadError(errors.CodeFileCorrupted, filePath, err)
	}
	return nil
}

// ReadHeaders reads the header row and checks that every required column is present
func (bp *BaseParser) ReadHeaders(reader *csv.Reader, parseCtx *ParseContext, requiredHeaders []string) error {
	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return errors.DataLoadError(errors.CodeEmptySource, parseCtx.FilePath, nil)
		}
		return errors.DataLoadError(errors.CodeInvalidFormat, parseCtx.FilePath, err).
			WithContext("line", 1)
	}

	parseCtx.LineNumber++
	parseCtx.Headers = cleanHeaders(headers)
	parseCtx.HeaderMap = make(map[string]int, len(parseCtx.Headers))
	for i, header := range parseCtx.Headers {
		parseCtx.HeaderMap[header] = i
	}

	var missing []string
	for _, header := range requiredHeaders {
		if parseCtx.GetColumnIndex(header) == -1 {
			missing = append(missing, header)
		}
	}
	if len(missing) > 0 {
		bp.logger.WithFields(logger.Fields{
			"file_path":         parseCtx.FilePath,
			"missing_headers":   missing,
			"available_headers": parseCtx.Headers,
		}).Error("Required headers are missing")

		return errors.DataLoadError(
			errors.CodeMissingColumn,
			parseCtx.FilePath,
			fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")),
		).WithContext("column", strings.Join(missing, ", "))
	}

	bp.logger.WithField("headers", parseCtx.Headers).Debug("Read CSV headers")
	return nil
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, utf8BOM)
		}
		cleaned[i] = strings.TrimSpace(header)
	}
	return cleaned
}

// ReadRecord reads the next non-empty record. It returns io.EOF at the end of
// the file and a data load error for malformed CSV.
func (bp *BaseParser) ReadRecord(reader *csv.Reader, parseCtx *ParseContext) ([]string, error) {
	for {
		if err := parseCtx.Err(); err != nil {
			return nil, errors.InternalError(errors.CodeCancelled, "parsing "+parseCtx.FilePath, err)
		}

		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, err
			}

			line := parseCtx.LineNumber + 1
			var csvErr *csv.ParseError
			if stderrors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, errors.DataLoadError(errors.CodeInvalidFormat, parseCtx.FilePath, err).
				WithContext("line", line)
		}

		line, _ := reader.FieldPos(0)
		parseCtx.LineNumber = line

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}

		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// GetFieldValue returns the trimmed value of a column in the current record
func (bp *BaseParser) GetFieldValue(record []string, parseCtx *ParseContext, fieldName string) (string, error) {
	index := parseCtx.GetColumnIndex(fieldName)
	if index == -1 || index >= len(record) {
		return "", errors.DataLoadError(
			errors.CodeMissingColumn,
			parseCtx.FilePath,
			fmt.Errorf("field '%s' not present at line %d", fieldName, parseCtx.LineNumber),
		).WithContext("column", fieldName)
	}

	return strings.TrimSpace(record[index]), nil
}

// RequiredField is GetFieldValue that also rejects empty values
func (bp *BaseParser) RequiredField(record []string, parseCtx *ParseContext, fieldName string) (string, error) {
	value, err := bp.GetFieldValue(record, parseCtx, fieldName)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", errors.SchemaError(errors.CodeMissingField, parseCtx.FilePath, parseCtx.LineNumber, fieldName, "", nil)
	}
	return value, nil
}

// keyIndex remembers the line each key was first seen on
type keyIndex map[string]int

// check records key at the current line, failing if it was already seen
func (k keyIndex) check(parseCtx *ParseContext, column, key string) error {
	if first, dup := k[key]; dup {
		return errors.SchemaError(errors.CodeDuplicateKey, parseCtx.FilePath, parseCtx.LineNumber, column, key,
			fmt.Errorf("first seen at line %d", first))
	}
	k[key] = parseCtx.LineNumber
	return nil
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	FilePath      string
	TotalLines    int
	RecordsParsed int
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %s: %d lines, %d records", ps.FilePath, ps.TotalLines, ps.RecordsParsed)
}
