package calculator

import (
	"github.com/sirupsen/logrus"

	"MarketGauge/internal/logger"
	"MarketGauge/internal/model"
)

// Engine computes the latest value of every indicator for a bar series.
type Engine struct {
	MinBars int
	Monthly Params
	Weekly  Params
	log     *logrus.Entry
}

// NewEngine returns an engine with the default settings.
func NewEngine(minBars int) *Engine {
	if minBars <= 0 {
		minBars = DefaultMinBars
	}
	return &Engine{
		MinBars: minBars,
		Monthly: MonthlyParams(),
		Weekly:  DefaultParams(),
		log:     logger.WithComponent("calculator"),
	}
}

func (e *Engine) params(tf model.Timeframe) Params {
	if tf == model.Monthly {
		return e.Monthly
	}
	return e.Weekly
}

// Compute returns the most recent defined value of each indicator. With
// fewer than MinBars bars every indicator is unavailable.
func (e *Engine) Compute(bars []model.OHLCV, tf model.Timeframe) model.IndicatorSet {
	set := model.NewIndicatorSet()
	if len(bars) < e.MinBars {
		e.log.WithFields(logrus.Fields{"timeframe": tf, "bars": len(bars), "min": e.MinBars}).
			Warn("not enough bars, indicators unavailable")
		return set
	}

	p := e.params(tf)
	closes := extractCloses(bars)

	set[model.KeyRSI] = Latest(RSI(closes, p.RSIPeriod))
	set[model.KeyStochRSI] = Latest(StochRSI(closes, p.StochRSI.RSIPeriod, p.StochRSI.StochPeriod, p.StochRSI.KSmooth))
	set[model.KeyMFI] = Latest(MFI(bars, p.MFIPeriod))
	set[model.KeyCRSI] = Latest(ConnorsRSI(closes, p.CRSI.RSIPeriod, p.CRSI.StreakPeriod, p.rankPeriod(len(bars))))
	set[model.KeyWilliamsR] = Latest(WilliamsR(bars, p.WilliamsRPeriod))
	set[model.KeyRVI] = Latest(RVI(bars, p.RVIPeriod))
	a := p.AdaptiveRSI
	set[model.KeyAdaptiveRSI] = Latest(AdaptiveRSI(closes, a.Period, a.KamaN, a.Fast, a.Slow))

	for _, k := range model.IndicatorKeys {
		if !set[k].Valid {
			e.log.WithFields(logrus.Fields{"timeframe": tf, "indicator": k, "bars": len(bars)}).
				Debug("indicator unavailable")
		}
	}
	return set
}
