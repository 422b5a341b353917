package composite

import (
	"math"

	"MarketGauge/internal/model"
)

// FactorScore is one indicator's contribution to a composite.
type FactorScore struct {
	Key        model.IndicatorKey
	Value      float64
	Normalized float64
	Weight     float64
	Weighted   float64
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// OverboughtFactors scores every available indicator of set toward the
// composite overbought score.
func (t Table) OverboughtFactors(set model.IndicatorSet) []FactorScore {
	return t.score(set, func(f Factor, v float64) (float64, bool) {
		n, ok := f.overbought(v)
		return clamp(n, 0, t.COSCap), ok
	})
}

// StrengthFactors scores every available indicator of set toward the
// bull strength index.
func (t Table) StrengthFactors(set model.IndicatorSet) []FactorScore {
	return t.score(set, func(f Factor, v float64) (float64, bool) {
		n, ok := f.strength(v)
		return clamp(n, 0, t.BSICap), ok
	})
}

func (t Table) score(set model.IndicatorSet, normalize func(Factor, float64) (float64, bool)) []FactorScore {
	var out []FactorScore
	for _, k := range model.IndicatorKeys {
		f, ok := t.Factors[k]
		v := set[k]
		if !ok || !v.Valid {
			continue
		}
		n, ok := normalize(f, v.Float64)
		if !ok {
			continue
		}
		out = append(out, FactorScore{
			Key: k, Value: v.Float64, Normalized: n,
			Weight: f.Weight, Weighted: n * f.Weight,
		})
	}
	return out
}

func total(scores []FactorScore) float64 {
	sum := 0.0
	for _, s := range scores {
		sum += s.Weighted
	}
	return clamp(sum, 0, 100)
}

// COS returns the composite overbought score of one timeframe in [0, 100].
// Unavailable indicators contribute nothing; weights are not renormalized.
func (t Table) COS(set model.IndicatorSet) float64 {
	return total(t.OverboughtFactors(set))
}

// BSI returns the bull strength index of one timeframe in [0, 100].
func (t Table) BSI(set model.IndicatorSet) float64 {
	return total(t.StrengthFactors(set))
}

// Evaluate computes both composites for both timeframes of snap.
func (t Table) Evaluate(snap model.IndicatorSnapshot) model.CompositeMetrics {
	var m model.CompositeMetrics
	for _, tf := range model.Timeframes {
		set := make(model.IndicatorSet, len(snap))
		for k, r := range snap {
			set[k] = r.Get(tf)
		}
		m.COS.Set(tf, t.COS(set))
		m.BSI.Set(tf, t.BSI(set))
	}
	return m
}

// Evaluate scores snap with the default table.
func Evaluate(snap model.IndicatorSnapshot) model.CompositeMetrics {
	return DefaultTable().Evaluate(snap)
}
