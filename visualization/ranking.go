package visualization

import (
	"sort"

	"github.com/pricingwizard/pricingwizard/tuning"
)

// RankedImportance は特徴量ごとの平均 Permutation Importance
type RankedImportance struct {
	Feature  string
	Average  float64
	PerModel map[string]float64 // ラベル -> 重要度
}

// RankFeatureImportances はモデル横断で重要度を平均し、降順に並べる（同値は特徴量名順）。
// ある結果に現れない特徴量はその結果では 0 として扱う。
func RankFeatureImportances(results []*tuning.Result) []RankedImportance {
	if len(results) == 0 {
		return nil
	}
	index := map[string]int{}
	var ranked []RankedImportance
	for _, r := range results {
		for _, fi := range r.FeatureImportances {
			k, ok := index[fi.Feature]
			if !ok {
				k = len(ranked)
				index[fi.Feature] = k
				ranked = append(ranked, RankedImportance{Feature: fi.Feature, PerModel: map[string]float64{}})
			}
			ranked[k].PerModel[r.Label] = fi.Importance
			ranked[k].Average += fi.Importance
		}
	}
	for i := range ranked {
		ranked[i].Average /= float64(len(results))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Average != ranked[j].Average {
			return ranked[i].Average > ranked[j].Average
		}
		return ranked[i].Feature < ranked[j].Feature
	})
	return ranked
}
