package metrics

import (
	"fmt"
	"io"
	"math"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"
)

// Precision is the number of decimal places every reported metric is rounded to.
const Precision = 4

// Summary holds the seven rounded regression statistics for one model.
type Summary struct {
	Label             string
	ExplainedVariance float64
	MSLE              float64
	R2                float64
	MAE               float64
	MSE               float64
	MedianAE          float64
	// RMSE is derived from the rounded MSE, so RMSE == Round4(sqrt(MSE)) always holds.
	RMSE float64
}

// SummaryRow is one line of the rendered table.
type SummaryRow struct {
	Name  string
	Value float64
}

// Round4 rounds v to Precision decimal places, half away from zero on the
// decimal representation. NaN and ±Inf are returned unchanged.
func Round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(Precision).InexactFloat64()
}

// NewSummary computes the statistics without printing anything. Any metric
// failure (length mismatch, negative values for MSLE) aborts the whole summary.
func NewSummary(label string, yTrue, yPred *mat.VecDense) (*Summary, error) {
	evs, err := ExplainedVarianceScore(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	msle, err := MSLE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	medae, err := MedianAbsoluteError(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	roundedMSE := Round4(mse)
	return &Summary{
		Label:             label,
		ExplainedVariance: Round4(evs),
		MSLE:              Round4(msle),
		R2:                Round4(r2),
		MAE:               Round4(mae),
		MSE:               roundedMSE,
		MedianAE:          Round4(medae),
		RMSE:              Round4(math.Sqrt(roundedMSE)),
	}, nil
}

// Rows returns the table rows in display order.
func (s *Summary) Rows() []SummaryRow {
	return []SummaryRow{
		{Name: "Explained Variance", Value: s.ExplainedVariance},
		{Name: "Mean Squared Log Error", Value: s.MSLE},
		{Name: "R2", Value: s.R2},
		{Name: "MAE", Value: s.MAE},
		{Name: "MSE", Value: s.MSE},
		{Name: "Median Absolute Error", Value: s.MedianAE},
		{Name: "Root Mean Squared Error", Value: s.RMSE},
	}
}

// Render writes the two-column table. Values always show four decimals.
func (s *Summary) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{fmt.Sprintf("Metric (%s)", s.Label), "Value"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, row := range s.Rows() {
		table.Append([]string{row.Name, formatValue(row.Value)})
	}
	table.Render()
}

// Summarize computes the summary for label and renders it to w.
// Nothing is written when a metric fails.
func Summarize(w io.Writer, label string, yTrue, yPred *mat.VecDense) (*Summary, error) {
	s, err := NewSummary(label, yTrue, yPred)
	if err != nil {
		return nil, err
	}
	s.Render(w)
	return s, nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%v", v)
	}
	return decimal.NewFromFloat(v).StringFixed(Precision)
}
