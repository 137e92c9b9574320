package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"trialgate/domain/core"
	"trialgate/domain/patient"
	"trialgate/internal/logging"
)

// Treatment sheet columns. Only "name" is required.
const (
	ColumnName         = "name"
	ColumnCategories   = "categories"
	ColumnIsSystemic   = "is_systemic"
	ColumnStart        = "start"
	ColumnStop         = "stop"
	ColumnStopReason   = "stop_reason"
	ColumnBestResponse = "best_response"
	ColumnCycles       = "cycles"
)

// systemicCategories imply a systemic course when is_systemic is blank.
var systemicCategories = map[patient.TreatmentCategory]bool{
	patient.CategoryChemotherapy:    true,
	patient.CategoryImmunotherapy:   true,
	patient.CategoryTargetedTherapy: true,
	patient.CategoryHormoneTherapy:  true,
}

// TreatmentReader reads a treatment history from an xlsx or csv file.
type TreatmentReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *zap.Logger
}

// NewTreatmentReader picks the format from the file extension.
func NewTreatmentReader(filePath string, logger *zap.Logger) *TreatmentReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &TreatmentReader{filePath: filePath, fileType: fileType, logger: logging.OrNop(logger)}
}

// ReadTreatments returns one course per data row, in file order.
func (r *TreatmentReader) ReadTreatments() ([]patient.TreatmentCourse, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%s file has no header row", strings.ToUpper(r.fileType))
	}
	return r.processRows(rows)
}

// readExcelRows reads the first sheet of the workbook.
func (r *TreatmentReader) readExcelRows() ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	r.logger.Debug("Excel sheet read",
		zap.String("sheet", sheet),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(startTime)))
	return rows, nil
}

func (r *TreatmentReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into treatment courses.
func (r *TreatmentReader) processRows(rows [][]string) ([]patient.TreatmentCourse, error) {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}
	if !slices.Contains(headers, ColumnName) {
		return nil, fmt.Errorf("missing required column %q", ColumnName)
	}

	courses := make([]patient.TreatmentCourse, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		cells := make(map[string]string, len(headers))
		blank := true
		for j, cell := range rows[i] {
			if j < len(headers) {
				cells[headers[j]] = strings.TrimSpace(cell)
				blank = blank && cells[headers[j]] == ""
			}
		}
		if blank {
			continue
		}

		course, err := parseCourse(cells)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		courses = append(courses, course)
	}

	r.logger.Info("Treatment history loaded",
		zap.String("file", r.filePath),
		zap.String("type", r.fileType),
		zap.Int("courses", len(courses)))
	return courses, nil
}

func parseCourse(cells map[string]string) (patient.TreatmentCourse, error) {
	course := patient.TreatmentCourse{Name: cells[ColumnName]}

	for _, raw := range strings.FieldsFunc(cells[ColumnCategories], func(r rune) bool { return r == ';' || r == ',' }) {
		c, err := patient.ParseTreatmentCategory(raw)
		if err != nil {
			return course, err
		}
		course.Categories = append(course.Categories, c)
	}

	if raw := cells[ColumnIsSystemic]; raw != "" {
		systemic, err := parseBool(raw)
		if err != nil {
			return course, fmt.Errorf("%s: %w", ColumnIsSystemic, err)
		}
		course.IsSystemic = systemic
	} else {
		for _, c := range course.Categories {
			course.IsSystemic = course.IsSystemic || systemicCategories[c]
		}
	}

	var err error
	if course.Start, err = core.ParsePartialDate(cells[ColumnStart]); err != nil {
		return course, fmt.Errorf("%s: %w", ColumnStart, err)
	}
	if course.Stop, err = core.ParsePartialDate(cells[ColumnStop]); err != nil {
		return course, fmt.Errorf("%s: %w", ColumnStop, err)
	}
	course.StopReason = optional(cells[ColumnStopReason])
	course.BestResponse = optional(cells[ColumnBestResponse])
	if raw := cells[ColumnCycles]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return course, fmt.Errorf("%s: %q is not a cycle count", ColumnCycles, raw)
		}
		course.Cycles = &n
	}

	return course, course.Validate()
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
