package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// ParamSet は1つのハイパーパラメータ候補（パラメータ名 -> 値）
type ParamSet map[string]interface{}

// Copy returns a shallow copy.
func (p ParamSet) Copy() ParamSet {
	out := make(ParamSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String renders the set with sorted keys, for logs and reports.
func (p ParamSet) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		v := p[k]
		if v == nil {
			s += k + ": None"
			continue
		}
		s += fmt.Sprintf("%s: %v", k, v)
	}
	return s + "}"
}

// Grid はパラメータ名から候補値リストへの写像。nil は「制限なし」を表す。
type Grid map[string][]interface{}

// Validate rejects an empty grid and empty candidate lists.
func (g Grid) Validate() error {
	if len(g) == 0 {
		return errors.NewValidationError("param_grid", "must contain at least one parameter", g)
	}
	for k, vs := range g {
		if len(vs) == 0 {
			return errors.NewValidationError(k, "parameter grid entries must be non-empty lists", vs)
		}
	}
	return nil
}

// Keys returns the parameter names in sorted order.
func (g Grid) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the number of combinations in the grid.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, vs := range g {
		n *= len(vs)
	}
	return n
}

// Collapse は各パラメータを単一候補に固定したグリッドを作る（二段階探索の後半で使う）
func Collapse(p ParamSet) Grid {
	g := make(Grid, len(p))
	for k, v := range p {
		g[k] = []interface{}{v}
	}
	return g
}

// ParameterGrid はグリッドの直積を列挙する。キーは辞書順で、最後のキーが最も速く変化する。
type ParameterGrid struct {
	grid Grid
	keys []string
}

// NewParameterGrid validates g and returns its enumerator.
func NewParameterGrid(g Grid) (*ParameterGrid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &ParameterGrid{grid: g, keys: g.Keys()}, nil
}

// Len returns the number of combinations.
func (pg *ParameterGrid) Len() int { return pg.grid.Size() }

// At returns the i-th combination.
func (pg *ParameterGrid) At(i int) ParamSet {
	out := make(ParamSet, len(pg.keys))
	for k := len(pg.keys) - 1; k >= 0; k-- {
		vs := pg.grid[pg.keys[k]]
		out[pg.keys[k]] = vs[i%len(vs)]
		i /= len(vs)
	}
	return out
}

// All returns every combination in order.
func (pg *ParameterGrid) All() []ParamSet {
	out := make([]ParamSet, pg.Len())
	for i := range out {
		out[i] = pg.At(i)
	}
	return out
}

// ParameterSampler draws NIter distinct combinations from Grid without
// replacement.
type ParameterSampler struct {
	Grid        Grid
	NIter       int
	RandomState uint64
}

// Sample returns the drawn combinations. When the grid has fewer than NIter
// combinations, all of them are returned in grid order and a
// SearchSpaceWarning is emitted.
func (s ParameterSampler) Sample() ([]ParamSet, error) {
	if s.NIter < 1 {
		return nil, errors.NewValidationError("n_iter", "must be >= 1", s.NIter)
	}
	pg, err := NewParameterGrid(s.Grid)
	if err != nil {
		return nil, err
	}
	size := pg.Len()
	if size <= s.NIter {
		if size < s.NIter {
			errors.Warn(&errors.SearchSpaceWarning{Requested: s.NIter, Available: size})
		}
		return pg.All(), nil
	}

	rng := rand.New(rand.NewPCG(s.RandomState, s.RandomState))
	perm := rng.Perm(size)
	out := make([]ParamSet, s.NIter)
	for i := range out {
		out[i] = pg.At(perm[i])
	}
	return out, nil
}
