// Package ranking implements information-retrieval metrics over binary
// relevance vectors.
//
// A relevance vector r is in rank order: r[0] is the relevance of the top
// recommendation. Values are 0 or 1; any non-zero value counts as relevant.
// Positions are never re-sorted, so ties keep their served order.
package ranking

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Relevance builds the relevance vector of predicted against the set of
// ground-truth items. Its length equals len(predicted).
func Relevance(predicted, truth []string) []float64 {
	relevant := make(map[string]struct{}, len(truth))
	for _, id := range truth {
		relevant[id] = struct{}{}
	}

	r := make([]float64, len(predicted))
	for i, id := range predicted {
		if _, ok := relevant[id]; ok {
			r[i] = 1
		}
	}
	return r
}

// binarize maps r onto {0,1}.
func binarize(r []float64) []float64 {
	out := make([]float64, len(r))
	for i, v := range r {
		if v != 0 {
			out[i] = 1
		}
	}
	return out
}

// cut returns r truncated to min(k, len(r)).
func cut(r []float64, k int) []float64 {
	if k < 0 {
		k = 0
	}
	if k > len(r) {
		k = len(r)
	}
	return r[:k]
}

// PrecisionAtK is the fraction of relevant items among the first
// min(k, len(r)) positions. It is 0 when that window is empty.
func PrecisionAtK(r []float64, k int) float64 {
	window := binarize(cut(r, k))
	if len(window) == 0 {
		return 0
	}
	return floats.Sum(window) / float64(len(window))
}

// DCGAtK is the discounted cumulative gain of the first k positions,
// using r[i] / log2(i+2).
func DCGAtK(r []float64, k int) float64 {
	var dcg float64
	for i, v := range cut(r, k) {
		dcg += v / math.Log2(float64(i+2))
	}
	return dcg
}

// NDCGAtK normalizes DCGAtK by the DCG of the ideal ordering, where all
// relevant items come first. It is 0 when there is nothing relevant.
func NDCGAtK(r []float64, k int) float64 {
	if k < 1 {
		return 0
	}
	bin := binarize(r)

	relevant := int(floats.Sum(bin))
	if relevant > k {
		relevant = k
	}
	ideal := make([]float64, relevant)
	for i := range ideal {
		ideal[i] = 1
	}

	idcg := DCGAtK(ideal, k)
	if idcg == 0 {
		return 0
	}
	return DCGAtK(bin, k) / idcg
}

// AveragePrecision is the mean of PrecisionAtK(r, j+1) over every
// relevant position j. It is 0 when no item is relevant.
func AveragePrecision(r []float64) float64 {
	var precisions []float64
	for j, v := range r {
		if v != 0 {
			precisions = append(precisions, PrecisionAtK(r, j+1))
		}
	}
	if len(precisions) == 0 {
		return 0
	}
	return stat.Mean(precisions, nil)
}

// MeanAveragePrecision averages AveragePrecision over several vectors.
func MeanAveragePrecision(rs [][]float64) float64 {
	if len(rs) == 0 {
		return 0
	}
	aps := make([]float64, len(rs))
	for i, r := range rs {
		aps[i] = AveragePrecision(r)
	}
	return stat.Mean(aps, nil)
}

// ReciprocalRank is 1/(i+1) for the first relevant position i, or 0.
func ReciprocalRank(r []float64) float64 {
	for i, v := range r {
		if v != 0 {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// MeanReciprocalRank averages ReciprocalRank over several vectors.
func MeanReciprocalRank(rs [][]float64) float64 {
	if len(rs) == 0 {
		return 0
	}
	rr := make([]float64, len(rs))
	for i, r := range rs {
		rr[i] = ReciprocalRank(r)
	}
	return stat.Mean(rr, nil)
}

// RPrecision is the precision up to and including the last relevant
// position, or 0 when nothing is relevant.
func RPrecision(r []float64) float64 {
	last := -1
	for i, v := range r {
		if v != 0 {
			last = i
		}
	}
	if last < 0 {
		return 0
	}
	return PrecisionAtK(r, last+1)
}

// PredictionCoverageAtK is the share of the catalog that appears in the
// top k of at least one prediction list, in [0,1].
func PredictionCoverageAtK(predicted [][]string, catalog []string, k int) float64 {
	if len(catalog) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	for _, p := range predicted {
		limit := k
		if limit < 0 {
			limit = 0
		}
		if limit > len(p) {
			limit = len(p)
		}
		for _, id := range p[:limit] {
			seen[id] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(len(catalog))
}
