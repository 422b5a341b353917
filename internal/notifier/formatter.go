package notifier

import (
	"fmt"
	"strings"

	"github.com/guregu/null/v6"

	"MarketGauge/internal/model"
)

var indicatorLabels = map[model.IndicatorKey]string{
	model.KeyRSI:         "RSI",
	model.KeyStochRSI:    "StochRSI",
	model.KeyMFI:         "MFI",
	model.KeyCRSI:        "Connors RSI",
	model.KeyWilliamsR:   "Williams %R",
	model.KeyRVI:         "RVI",
	model.KeyAdaptiveRSI: "Adaptive RSI",
}

func formatValue(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

// FormatSnapshot renders a snapshot as a chat message.
func FormatSnapshot(s *model.Snapshot) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>MarketGauge</b> | %s\n\n", s.DateStr()))
	b.WriteString(fmt.Sprintf("Price: %.2f\n", s.Price))
	if s.Note != "" {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", s.Note))
	}

	b.WriteString("\n<b>Composite</b> (monthly / weekly)\n")
	b.WriteString(fmt.Sprintf("  COS: %.1f / %.1f\n", s.Composite.COS.Monthly, s.Composite.COS.Weekly))
	b.WriteString(fmt.Sprintf("  BSI: %.1f / %.1f\n", s.Composite.BSI.Monthly, s.Composite.BSI.Weekly))

	if !s.Degraded() {
		b.WriteString("\n<b>Indicators</b> (monthly / weekly)\n")
		for _, k := range model.IndicatorKeys {
			r := s.Indicators[k]
			b.WriteString(fmt.Sprintf("  %s: %s / %s\n", indicatorLabels[k], formatValue(r.Monthly), formatValue(r.Weekly)))
		}
	}

	b.WriteString("\n<b>Outcomes</b>\n")
	for _, h := range model.Horizons {
		o := s.Outcomes[h]
		if o.Direction == model.DirectionUnknown || o.Direction == "" {
			b.WriteString(fmt.Sprintf("  %s: unknown\n", h))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %s %.1f%% → %.2f\n", h, o.Direction, o.Percentage, o.Price))
	}
	return b.String()
}

// FormatDaily renders a daily bar as a chat message.
func FormatDaily(bar *model.DailyBar) string {
	return fmt.Sprintf("📅 %s [%s]\nO %.2f  H %.2f  L %.2f  C %.2f\nVolume %.2f",
		model.DateKey(bar.Time), bar.Source, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
}

// FormatHelp lists the supported chat commands.
func FormatHelp() string {
	return "/today - snapshot for the current date\n" +
		"/snapshot YYYY-MM-DD - snapshot for a date\n" +
		"/daily YYYY-MM-DD - daily bar for a date\n" +
		"/help - this message"
}
