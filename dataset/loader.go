package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// LoadFile dispatches on the file extension: .csv goes to LoadCSV,
// .xlsx/.xlsm to LoadExcel (sheet may be empty to use the first sheet).
func LoadFile(path, sheet, target string) (*Frame, *mat.VecDense, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to open file")
		}
		defer f.Close()
		return LoadCSV(f, target)
	case ".xlsx", ".xlsm":
		return LoadExcel(path, sheet, target)
	default:
		return nil, nil, errors.NewValueError("LoadFile", "unsupported file extension "+filepath.Ext(path))
	}
}

// LoadCSV reads a header row followed by records. The target column is parsed
// as float64, every other column becomes a categorical feature.
func LoadCSV(r io.Reader, target string) (*Frame, *mat.VecDense, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read csv")
	}
	return fromRecords(records, target)
}

// LoadExcel reads the given sheet (or the first one) of a workbook.
func LoadExcel(path, sheet, target string) (*Frame, *mat.VecDense, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, errors.Wrap(errors.ErrEmptyData, "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read sheet %q", sheet)
	}

	// GetRows は末尾の空セルを省略するので、ヘッダー幅まで埋める
	if len(rows) > 0 {
		width := len(rows[0])
		for i := 1; i < len(rows); i++ {
			for len(rows[i]) < width {
				rows[i] = append(rows[i], "")
			}
		}
	}
	return fromRecords(rows, target)
}

func fromRecords(records [][]string, target string) (*Frame, *mat.VecDense, error) {
	if len(records) < 2 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "need a header row and at least one record")
	}
	header := make([]string, len(records[0]))
	for j, h := range records[0] {
		header[j] = strings.TrimSpace(h)
	}

	targetIdx := -1
	for j, h := range header {
		if h == target {
			targetIdx = j
			break
		}
	}
	if targetIdx < 0 {
		return nil, nil, errors.NewValidationError("target", "column not found in header", target)
	}

	columns := make([]string, 0, len(header)-1)
	for j, h := range header {
		if j != targetIdx {
			columns = append(columns, h)
		}
	}

	body := records[1:]
	rows := make([][]string, 0, len(body))
	y := make([]float64, 0, len(body))
	converted := false
	for i, rec := range body {
		if len(rec) != len(header) {
			return nil, nil, errors.NewDimensionError("load row "+strconv.Itoa(i+2), len(header), len(rec), 1)
		}
		v, stripped, err := parseTarget(rec[targetIdx])
		if err != nil {
			return nil, nil, errors.NewValueError("load",
				"row "+strconv.Itoa(i+2)+", column "+target+": cannot parse "+strconv.Quote(rec[targetIdx])+" as a number")
		}
		converted = converted || stripped
		y = append(y, v)

		row := make([]string, 0, len(columns))
		for j, cell := range rec {
			if j != targetIdx {
				row = append(row, strings.TrimSpace(cell))
			}
		}
		rows = append(rows, row)
	}
	if converted {
		errors.Warn(errors.NewDataConversionWarning("string", "float64",
			"thousands separators removed from target column "+target))
	}

	frame, err := NewFrame(columns, rows)
	if err != nil {
		return nil, nil, err
	}
	return frame, mat.NewVecDense(len(y), y), nil
}

func parseTarget(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, false, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v, true, err
}
