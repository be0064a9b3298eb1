// Package visualization renders diagnostic plots for tuning results:
// actual vs. predicted, residuals and averaged feature importances.
package visualization

import (
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/tuning"
)

// Output names (without extension).
const (
	ActualPredictedName    = "plot_actual_predicted"
	ResidualsName          = "plot_residuals"
	FeatureImportancesName = "plot_feature_importances"
)

// DefaultDir is the directory the plots are written to.
const DefaultDir = "visualization"

const (
	gridCols    = 2
	tileWidth   = 6 * vg.Inch
	tileHeight  = 4 * vg.Inch
	titleHeight = 0.5 * vg.Inch
)

var (
	pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	refColor   = color.RGBA{A: 255}
	zeroColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Collection はラベルごとの結果。描画時はキーの辞書順に平坦化する。
type Collection map[string][]*tuning.Result

// Flatten returns the results in sorted key order.
func (c Collection) Flatten() []*tuning.Result {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []*tuning.Result
	for _, k := range keys {
		out = append(out, c[k]...)
	}
	return out
}

// PlotActualPredicted は結果ごとに (実測値, 予測値) の散布図と対角線を2列のグリッドで描く
func PlotActualPredicted(sink Sink, results []*tuning.Result) error {
	return plotGrid(sink, ActualPredictedName, "Actual vs. Predicted values by model", results,
		func(r *tuning.Result) (*plot.Plot, error) {
			p := plot.New()
			p.Title.Text = r.Label
			p.X.Label.Text = "Actual Values"
			p.Y.Label.Text = "Predicted Values"

			pts := make(plotter.XYs, r.YTest.Len())
			for i := range pts {
				pts[i] = plotter.XY{X: r.YTest.AtVec(i), Y: r.YPred.AtVec(i)}
			}
			s, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, err
			}
			s.GlyphStyle.Color = withAlpha(pointColor, 64)
			s.GlyphStyle.Radius = vg.Points(2)

			data := r.YTest.RawVector().Data
			lo, hi := floats.Min(data), floats.Max(data)
			ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
			if err != nil {
				return nil, err
			}
			ref.LineStyle.Color = refColor
			ref.LineStyle.Width = vg.Points(1)

			p.Add(s, ref)
			return p, nil
		})
}

// PlotResiduals は結果ごとに (予測値, 実測値 - 予測値) の散布図と y=0 の破線を描く。
// 残差は各結果自身の YTest から計算する。
func PlotResiduals(sink Sink, results []*tuning.Result) error {
	return plotGrid(sink, ResidualsName, "Residual values by model", results,
		func(r *tuning.Result) (*plot.Plot, error) {
			p := plot.New()
			p.Title.Text = r.Label
			p.X.Label.Text = "Predicted Values"
			p.Y.Label.Text = "Prediction Errors"

			pts := make(plotter.XYs, r.YPred.Len())
			for i := range pts {
				pred := r.YPred.AtVec(i)
				pts[i] = plotter.XY{X: pred, Y: r.YTest.AtVec(i) - pred}
			}
			s, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, err
			}
			s.GlyphStyle.Color = withAlpha(pointColor, 128)
			s.GlyphStyle.Radius = vg.Points(2)

			data := r.YPred.RawVector().Data
			zero, err := hline(floats.Min(data), floats.Max(data), zeroColor)
			if err != nil {
				return nil, err
			}
			p.Add(s, zero)
			return p, nil
		})
}

// PlotFeatureImportances は特徴量ごとの平均重要度を棒グラフで描く
func PlotFeatureImportances(sink Sink, ranked []RankedImportance) error {
	if len(ranked) == 0 {
		return errors.ErrNoResults
	}
	p := plot.New()
	p.Title.Text = "Average Feature Importances"
	p.X.Label.Text = "Features"
	p.Y.Label.Text = "Average Importance"

	values := make(plotter.Values, len(ranked))
	names := make([]string, len(ranked))
	for i, r := range ranked {
		values[i] = r.Average
		names[i] = r.Feature
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	bars.Color = pointColor
	bars.LineStyle.Width = 0

	zero, err := hline(-0.5, float64(len(ranked))-0.5, refColor)
	if err != nil {
		return err
	}
	p.Add(bars, zero)
	p.NominalX(names...)

	width := vg.Length(math.Max(6, float64(len(ranked))*0.8)) * vg.Inch
	img := vgimg.New(width, tileHeight)
	p.Draw(draw.New(img))
	return sink.Save(FeatureImportancesName, vgimg.PngCanvas{Canvas: img})
}

// plotGrid は結果ごとのサブプロットを2列のグリッドに並べ、全体タイトルを付けて保存する
func plotGrid(sink Sink, name, title string, results []*tuning.Result, build func(*tuning.Result) (*plot.Plot, error)) error {
	if len(results) == 0 {
		return errors.ErrNoResults
	}
	rows := (len(results) + gridCols - 1) / gridCols

	width := gridCols * tileWidth
	height := vg.Length(rows)*tileHeight + titleHeight
	img := vgimg.New(width, height)
	dc := draw.New(img)

	// 上端にタイトル、残りにサブプロット
	head := plot.New()
	head.Title.Text = title
	head.HideAxes()
	head.Draw(draw.Crop(dc, 0, 0, height-titleHeight, 0))

	body := draw.Crop(dc, 0, 0, 0, -titleHeight)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      gridCols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	for i, r := range results {
		if r == nil || r.YPred == nil || r.YTest == nil || r.YTest.Len() == 0 {
			return errors.NewValueError("plot", "result without held-out predictions")
		}
		if r.YPred.Len() != r.YTest.Len() {
			return errors.NewDimensionError(name, r.YTest.Len(), r.YPred.Len(), 0)
		}
		p, err := build(r)
		if err != nil {
			return errors.Wrapf(err, "subplot %q", r.Label)
		}
		p.Draw(tiles.At(body, i%gridCols, i/gridCols))
	}
	return sink.Save(name, vgimg.PngCanvas{Canvas: img})
}

func hline(x0, x1 float64, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x0, Y: 0}, {X: x1, Y: 0}})
	if err != nil {
		return nil, err
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1)
	l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	return l, nil
}

func withAlpha(c color.RGBA, a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}

// RenderAll は Collection から3種類の図をすべて描く
func RenderAll(sink Sink, c Collection) error {
	results := c.Flatten()
	if err := PlotActualPredicted(sink, results); err != nil {
		return err
	}
	if err := PlotResiduals(sink, results); err != nil {
		return err
	}
	return PlotFeatureImportances(sink, RankFeatureImportances(results))
}
