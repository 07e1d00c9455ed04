package playback

const (
	MinRate = 0.5
	MaxRate = 2.0
)

// RateSteps are the rates offered by FasterRate and SlowerRate.
var RateSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// ClampRate limits r to [MinRate, MaxRate]. Non-positive rates become 1.
func ClampRate(r float64) float64 {
	switch {
	case r <= 0:
		return 1
	case r < MinRate:
		return MinRate
	case r > MaxRate:
		return MaxRate
	}
	return r
}

// FasterRate returns the next step above r.
func FasterRate(r float64) float64 {
	for _, s := range RateSteps {
		if s > r {
			return s
		}
	}
	return RateSteps[len(RateSteps)-1]
}

// SlowerRate returns the next step below r.
func SlowerRate(r float64) float64 {
	for i := len(RateSteps) - 1; i >= 0; i-- {
		if RateSteps[i] < r {
			return RateSteps[i]
		}
	}
	return RateSteps[0]
}
