package calculator

// ConnorsRSI averages three components: the short RSI of closes, the RSI
// of the up/down streak length, and the percent rank of the latest
// one-bar rate of change within rankPeriod bars. It needs at least
// rankPeriod+rsiPeriod+streakPeriod+5 closes.
func ConnorsRSI(closes []float64, rsiPeriod, streakPeriod, rankPeriod int) []float64 {
	out := nanSeries(len(closes))
	if rankPeriod <= 0 || len(closes) < rankPeriod+rsiPeriod+streakPeriod+5 {
		return out
	}

	rsi := RSI(closes, rsiPeriod)
	streakRSI := RSI(streaks(closes), streakPeriod)
	rank := percentRank(rateOfChange(closes), rankPeriod)

	for i := range closes {
		a, b, c := rsi[i], streakRSI[i], rank[i]
		if valid(a) && valid(b) && valid(c) {
			out[i] = (a + b + c) / 3
		}
	}
	return out
}

// streaks counts consecutive up (positive) or down (negative) closes;
// an unchanged close resets the count to zero.
func streaks(closes []float64) []float64 {
	s := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		switch {
		case change > 0:
			if s[i-1] > 0 {
				s[i] = s[i-1] + 1
			} else {
				s[i] = 1
			}
		case change < 0:
			if s[i-1] < 0 {
				s[i] = s[i-1] - 1
			} else {
				s[i] = -1
			}
		}
	}
	return s
}

// rateOfChange returns the one-bar percentage change; the first point is 0.
func rateOfChange(closes []float64) []float64 {
	roc := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		roc[i] = (closes[i]/closes[i-1] - 1) * 100
	}
	return roc
}

// percentRank ranks the last value of each trailing window among the
// window, ties sharing their average rank, scaled to (0, 100].
func percentRank(s []float64, window int) []float64 {
	out := nanSeries(len(s))
	for i := window - 1; i < len(s); i++ {
		x := s[i]
		if !valid(x) {
			continue
		}
		less, equal, n := 0, 0, 0
		for j := i - window + 1; j <= i; j++ {
			v := s[j]
			if !valid(v) {
				continue
			}
			n++
			switch {
			case v < x:
				less++
			case v == x:
				equal++
			}
		}
		avgRank := float64(less) + float64(equal+1)/2
		out[i] = avgRank / float64(n) * 100
	}
	return out
}
