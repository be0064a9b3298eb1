// Package tree はCART方式の決定木回帰器を提供します。
package tree

import (
	"encoding/gob"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/core/params"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

func init() {
	gob.Register(&DecisionTreeRegressor{})
}

// Node はフラットな配列に格納される木のノード。Left/Right が -1 なら葉。
type Node struct {
	Feature   int
	Threshold float64 // x <= Threshold なら左
	Left      int
	Right     int
	Value     float64 // ノード内の目的変数の平均
	NSamples  int
	Impurity  float64 // 二乗誤差（分散）
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool { return n.Left < 0 }

// DecisionTreeRegressor is a CART regressor using the squared-error criterion.
type DecisionTreeRegressor struct {
	// ハイパーパラメータ
	MaxDepth        int         // 0 => 制限なし
	MinSamplesSplit int         // 分割を試みる最小サンプル数
	MinSamplesLeaf  int         // 各葉に必要な最小サンプル数
	MaxFeatures     interface{} // nil (全特徴量), int, float64 の割合, "sqrt", "log2"
	RandomState     uint64      // 特徴量サンプリング用のシード

	// 学習結果
	Nodes       []Node
	Importances []float64

	State *model.StateManager
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth sets max_depth. 0 means unlimited.
func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }

// WithMinSamplesSplit sets min_samples_split.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets min_samples_leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures sets max_features (nil, int, float64 fraction, "sqrt", "log2").
func WithMaxFeatures(v interface{}) Option {
	return func(t *DecisionTreeRegressor) { t.MaxFeatures = v }
}

// WithRandomState sets the seed used for feature subsampling.
func WithRandomState(seed uint64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor creates an unfitted tree with sklearn defaults.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		State:           model.NewStateManager(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *DecisionTreeRegressor) validate() error {
	if t.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 1 or nil", t.MaxDepth)
	}
	if t.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.MinSamplesSplit)
	}
	if t.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.MinSamplesLeaf)
	}
	_, err := params.MaxFeatures(t.MaxFeatures)
	return err
}

// Fit builds the tree on all rows of X.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	r, _ := X.Dims()
	sample := make([]int, r)
	for i := range sample {
		sample[i] = i
	}
	return t.FitSample(X, y, sample)
}

// FitSample builds the tree on the rows of X listed in sample. Rows may
// repeat, which is how bootstrap resampling is expressed.
func (t *DecisionTreeRegressor) FitSample(X, y mat.Matrix, sample []int) error {
	if err := t.validate(); err != nil {
		return err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 || len(sample) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, _ := y.Dims()
	if yr != r {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", r, yr, 0)
	}

	b := &builder{
		tree:    t,
		cols:    columns(X),
		y:       mat.Col(nil, 0, metrics.ColumnVector(y)),
		nFeat:   c,
		maxFeat: params.ResolveMaxFeatures(t.MaxFeatures, c),
		rng:     rand.New(rand.NewPCG(t.RandomState, t.RandomState)),
		imp:     make([]float64, c),
	}
	t.Nodes = t.Nodes[:0]
	idx := append([]int(nil), sample...)
	b.build(idx, 0)

	// 不純度減少量を正規化
	total := 0.0
	for _, v := range b.imp {
		total += v
	}
	if total > 0 {
		for j := range b.imp {
			b.imp[j] /= total
		}
	}
	t.Importances = b.imp

	t.state().SetDimensions(c, len(sample))
	t.state().SetFitted()
	return nil
}

// Predict returns an n×1 vector of leaf means.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.state().RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := t.state().RequireFeatures("DecisionTreeRegressor.Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, t.predictRow(X, i))
	}
	return out, nil
}

func (t *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	k := 0
	for {
		n := t.Nodes[k]
		if n.IsLeaf() {
			return n.Value
		}
		if X.At(i, n.Feature) <= n.Threshold {
			k = n.Left
		} else {
			k = n.Right
		}
	}
}

// Score returns R² of the predictions on X against y.
func (t *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.ColumnVector(y), metrics.ColumnVector(pred))
}

// FeatureImportances returns the normalised total impurity decrease per feature.
func (t *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if err := t.state().RequireFitted("DecisionTreeRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), t.Importances...), nil
}

// Depth returns the depth of the fitted tree (a single leaf has depth 0).
func (t *DecisionTreeRegressor) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(k, d int) int
	walk = func(k, d int) int {
		n := t.Nodes[k]
		if n.IsLeaf() {
			return d
		}
		return max(walk(n.Left, d+1), walk(n.Right, d+1))
	}
	return walk(0, 0)
}

// NLeaves returns the number of leaves.
func (t *DecisionTreeRegressor) NLeaves() int {
	leaves := 0
	for _, n := range t.Nodes {
		if n.IsLeaf() {
			leaves++
		}
	}
	return leaves
}

// GetParams returns the hyperparameters. max_depth is nil when unlimited.
func (t *DecisionTreeRegressor) GetParams(deep bool) map[string]interface{} {
	var maxDepth interface{}
	if t.MaxDepth > 0 {
		maxDepth = t.MaxDepth
	}
	return map[string]interface{}{
		"max_depth":         maxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_features":      t.MaxFeatures,
		"random_state":      t.RandomState,
	}
}

// SetParams sets hyperparameters by sklearn name.
func (t *DecisionTreeRegressor) SetParams(p map[string]interface{}) error {
	for k, v := range p {
		var err error
		switch k {
		case "max_depth":
			t.MaxDepth, err = params.OptionalInt(k, v, 1)
		case "min_samples_split":
			t.MinSamplesSplit, err = params.Int(k, v, 2)
		case "min_samples_leaf":
			t.MinSamplesLeaf, err = params.Int(k, v, 1)
		case "max_features":
			t.MaxFeatures, err = params.MaxFeatures(v)
		case "random_state":
			t.RandomState, err = params.Uint64(k, v)
		default:
			err = errors.NewValidationError(k, "unknown parameter for DecisionTreeRegressor", v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted tree with the same hyperparameters.
func (t *DecisionTreeRegressor) Clone() model.SKLearnCompatible {
	return t.CloneTree()
}

// CloneTree is Clone with the concrete return type.
func (t *DecisionTreeRegressor) CloneTree() *DecisionTreeRegressor {
	return NewDecisionTreeRegressor(
		WithMaxDepth(t.MaxDepth),
		WithMinSamplesSplit(t.MinSamplesSplit),
		WithMinSamplesLeaf(t.MinSamplesLeaf),
		WithMaxFeatures(t.MaxFeatures),
		WithRandomState(t.RandomState),
	)
}

func (t *DecisionTreeRegressor) state() *model.StateManager {
	if t.State == nil {
		t.State = model.NewStateManager()
	}
	return t.State
}

// ---------------------------
// 木の構築
// ---------------------------

type builder struct {
	tree    *DecisionTreeRegressor
	cols    [][]float64 // 列優先のコピー
	y       []float64
	nFeat   int
	maxFeat int
	rng     *rand.Rand
	imp     []float64
}

func columns(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		col := make([]float64, r)
		for i := range col {
			col[i] = X.At(i, j)
		}
		cols[j] = col
	}
	return cols
}

func (b *builder) stats(idx []int) (mean, impurity float64) {
	var sum, sumSq float64
	for _, i := range idx {
		v := b.y[i]
		sum += v
		sumSq += v * v
	}
	n := float64(len(idx))
	mean = sum / n
	impurity = sumSq/n - mean*mean
	if impurity < 0 {
		impurity = 0
	}
	return mean, impurity
}

func (b *builder) build(idx []int, depth int) int {
	t := b.tree
	mean, impurity := b.stats(idx)
	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1, Value: mean, NSamples: len(idx), Impurity: impurity})

	n := len(idx)
	if (t.MaxDepth > 0 && depth >= t.MaxDepth) ||
		n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf || impurity <= 1e-12 {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if b.cols[feature][i] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	_, impL := b.stats(left)
	_, impR := b.stats(right)
	b.imp[feature] += float64(n)*impurity - float64(len(left))*impL - float64(len(right))*impR

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	t.Nodes[id].Feature = feature
	t.Nodes[id].Threshold = threshold
	t.Nodes[id].Left = l
	t.Nodes[id].Right = r
	return id
}

// bestSplit は SSE を最小化する（= sum²/n の和を最大化する）分割を探す。
// 同点の場合は先に見つかった特徴量・位置を採用する。
func (b *builder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	minLeaf := b.tree.MinSamplesLeaf
	n := len(idx)
	best := math.Inf(-1)

	sorted := make([]int, n)
	for _, f := range b.candidateFeatures() {
		col := b.cols[f]
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })

		var total float64
		for _, i := range sorted {
			total += b.y[i]
		}

		var sumL float64
		for pos := 1; pos < n; pos++ {
			sumL += b.y[sorted[pos-1]]
			if pos < minLeaf || n-pos < minLeaf {
				continue
			}
			lo, hi := col[sorted[pos-1]], col[sorted[pos]]
			if lo == hi {
				continue
			}
			nl, nr := float64(pos), float64(n-pos)
			sumR := total - sumL
			proxy := sumL*sumL/nl + sumR*sumR/nr
			if proxy > best {
				best = proxy
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// candidateFeatures は max_features に従って特徴量を選ぶ。全特徴量なら元の順序のまま。
func (b *builder) candidateFeatures() []int {
	feats := make([]int, b.nFeat)
	for j := range feats {
		feats[j] = j
	}
	if b.maxFeat >= b.nFeat {
		return feats
	}
	b.rng.Shuffle(len(feats), func(i, j int) { feats[i], feats[j] = feats[j], feats[i] })
	chosen := feats[:b.maxFeat]
	sort.Ints(chosen)
	return chosen
}
