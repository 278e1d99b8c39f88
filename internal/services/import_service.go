package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/screwcat/internal/models"
	"github.com/charlesng35/screwcat/internal/monitoring"
	"github.com/charlesng35/screwcat/internal/spreadsheet"
	apperrors "github.com/charlesng35/screwcat/pkg/errors"
	"github.com/charlesng35/screwcat/pkg/logger"
)

// Spreadsheet columns, 1-based.
const (
	colName = iota + 1
	colDescription
	colMaterial
	colQuantity
	colNote
	colPrice
	colImageURL
)

// ImportOptions bounds a spreadsheet import.
type ImportOptions struct {
	// HeaderRow is the first data row of every sheet.
	HeaderRow int
	// MaxRowsPerSheet caps the data rows read from each sheet.
	MaxRowsPerSheet int
	// BatchSize is the number of rows per INSERT statement.
	BatchSize int
	// ReportedErrors is how many row errors the report and failure message expose.
	ReportedErrors int
}

// DefaultImportOptions returns the stock import limits.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		HeaderRow:       8,
		MaxRowsPerSheet: 1000,
		BatchSize:       500,
		ReportedErrors:  5,
	}
}

func (o ImportOptions) withDefaults() ImportOptions {
	def := DefaultImportOptions()
	if o.HeaderRow <= 0 {
		o.HeaderRow = def.HeaderRow
	}
	if o.MaxRowsPerSheet <= 0 {
		o.MaxRowsPerSheet = def.MaxRowsPerSheet
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.ReportedErrors <= 0 {
		o.ReportedErrors = def.ReportedErrors
	}
	return o
}

// ImportReport summarises a completed import.
type ImportReport struct {
	RowsCount  int      `json:"rowsCount"`
	Submitted  int      `json:"submitted"`
	Errors     []string `json:"errors,omitempty"`
	CacheStale bool     `json:"-"`
}

// ImportService reconciles uploaded workbooks against the catalog.
type ImportService struct {
	db          *gorm.DB
	reader      spreadsheet.Reader
	invalidator *Invalidator
	opts        ImportOptions
	strict      bool
	log         *zap.Logger
}

// ImportOption customises an ImportService.
type ImportOption func(*ImportService)

func WithImportInvalidator(inv *Invalidator) ImportOption {
	return func(s *ImportService) { s.invalidator = inv }
}

func WithImportOptions(opts ImportOptions) ImportOption {
	return func(s *ImportService) { s.opts = opts.withDefaults() }
}

func WithImportStrictInvalidation(strict bool) ImportOption {
	return func(s *ImportService) { s.strict = strict }
}

// NewImportService constructs an import service. A nil reader selects the excelize reader.
func NewImportService(db *gorm.DB, reader spreadsheet.Reader, opts ...ImportOption) (*ImportService, error) {
	if db == nil {
		return nil, errors.New("import service: db is required")
	}
	if reader == nil {
		reader = spreadsheet.NewExcelizeReader()
	}
	svc := &ImportService{
		db:     db,
		reader: reader,
		opts:   DefaultImportOptions(),
		log:    logger.WithModule("import"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type referenceMaps struct {
	types     map[string]uint
	materials map[string]uint
}

// Import reads every sheet of the workbook, maps sheet names to fastener types and inserts the
// valid rows in one conflict-tolerant pass. Rows already present are skipped silently.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	ctx = ensuredContext(ctx)
	started := time.Now()

	report, err := s.run(ctx, r)
	duration := time.Since(started)

	switch {
	case err == nil:
		monitoring.RecordImport("success", report.RowsCount, report.Submitted, len(report.Errors), duration)
		s.log.Info("import completed",
			zap.Int("inserted", report.RowsCount),
			zap.Int("submitted", report.Submitted),
			zap.Int("row_errors", len(report.Errors)),
			zap.Duration("duration", duration),
		)
	case errors.Is(err, ErrNoValidRows) || errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		monitoring.RecordImport("rejected", 0, 0, 0, duration)
		s.log.Info("import rejected", zap.Error(err))
	default:
		monitoring.RecordImport("error", 0, 0, 0, duration)
		s.log.Error("import failed", zap.Error(err))
	}
	return report, err
}

func (s *ImportService) run(ctx context.Context, r io.Reader) (*ImportReport, error) {
	opts := s.opts
	workbook, err := s.reader.Read(ctx, r, spreadsheet.ReadOptions{
		FirstRow: opts.HeaderRow,
		MaxRows:  opts.MaxRowsPerSheet,
	})
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnsupportedFormat) {
			return nil, apperrors.NewBadRequest("Unsupported spreadsheet format").WithInternal(err)
		}
		return nil, importError(err)
	}

	refs, err := s.loadReferences(ctx, workbook.SheetNames())
	if err != nil {
		return nil, importError(err)
	}

	var (
		rows    []models.Fastener
		rowErrs []string
	)
	for _, sheet := range workbook.Sheets {
		typeID, ok := refs.types[sheet.Name]
		if !ok {
			rowErrs = append(rowErrs, fmt.Sprintf("Unknown screw type: %s", sheet.Name))
			continue
		}
		for _, row := range sheet.Rows {
			fastener, rowErr, keep := buildRow(sheet.Name, row, typeID, refs.materials)
			if rowErr != "" {
				rowErrs = append(rowErrs, rowErr)
			}
			if keep {
				rows = append(rows, fastener)
			}
		}
	}

	if len(rows) == 0 {
		return nil, apperrors.NewBadRequest(noValidRowsMessage(rowErrs, opts.ReportedErrors)).
			WithDetails(map[string]interface{}{"errors": firstN(rowErrs, opts.ReportedErrors)}).
			WithInternal(ErrNoValidRows)
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, opts.BatchSize)
	if res.Error != nil {
		return nil, importError(res.Error)
	}

	report := &ImportReport{
		RowsCount: int(res.RowsAffected),
		Submitted: len(rows),
		Errors:    firstN(rowErrs, opts.ReportedErrors),
	}
	if res.RowsAffected < 0 {
		report.RowsCount = len(rows)
	}

	if err := s.invalidator.Fastener(ctx, 0); err != nil {
		if s.strict {
			return nil, apperrors.NewDependencyFailure("Cache invalidation failed", err)
		}
		report.CacheStale = true
	}
	return report, nil
}

// loadReferences resolves the sheet names to type ids and loads every material, concurrently.
func (s *ImportService) loadReferences(ctx context.Context, sheetNames []string) (*referenceMaps, error) {
	refs := &referenceMaps{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var types []ReferenceView
		if len(sheetNames) > 0 {
			if err := s.db.WithContext(gctx).Model(&models.FastenerType{}).Scopes(models.Active).
				Select("id", "name").Where("name IN ?", sheetNames).Order("id").Scan(&types).Error; err != nil {
				return fmt.Errorf("import service: load types: %w", err)
			}
		}
		refs.types = indexByName(types)
		return nil
	})
	g.Go(func() error {
		var materials []ReferenceView
		if err := s.db.WithContext(gctx).Model(&models.Material{}).Scopes(models.Active).
			Select("id", "name").Order("id").Scan(&materials).Error; err != nil {
			return fmt.Errorf("import service: load materials: %w", err)
		}
		refs.materials = indexByName(materials)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// buildRow converts one spreadsheet row. It returns keep=false for skipped rows and a
// non-empty message for rejected ones.
func buildRow(sheet string, row spreadsheet.Row, typeID uint, materials map[string]uint) (models.Fastener, string, bool) {
	if row.Empty() {
		return models.Fastener{}, "", false
	}
	name := row.Text(colName)
	if name == "" {
		return models.Fastener{}, "", false
	}

	quantity, price := row.Text(colQuantity), row.Text(colPrice)
	if quantity == "" || price == "" {
		return models.Fastener{}, fmt.Sprintf("Row %d in \"%s\": missing required data", row.Index, sheet), false
	}

	materialID, ok := materials[row.Text(colMaterial)]
	if !ok {
		materialID = models.DefaultMaterialID
	}

	return models.Fastener{
		Name:        name,
		Description: row.Text(colDescription),
		Quantity:    models.Decimal(quantity),
		Price:       models.Decimal(price),
		Note:        row.Text(colNote),
		ImageURL:    row.Text(colImageURL),
		TypeID:      typeID,
		SizeID:      models.DefaultSizeID,
		MaterialID:  materialID,
	}, "", true
}

func indexByName(views []ReferenceView) map[string]uint {
	index := make(map[string]uint, len(views))
	for _, view := range views {
		if _, exists := index[view.Name]; !exists {
			index[view.Name] = view.ID
		}
	}
	return index
}

func noValidRowsMessage(rowErrs []string, limit int) string {
	if len(rowErrs) == 0 {
		return "No valid rows found in the uploaded file"
	}
	msg := "Import failed: " + strings.Join(firstN(rowErrs, limit), "; ")
	if len(rowErrs) > limit {
		msg += "..."
	}
	return msg
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

func importError(err error) error {
	return apperrors.Wrap(err, "Import error: "+truncate(err.Error(), 200))
}
