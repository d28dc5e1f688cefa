package competitor

// Win-back probability bounds and adjustment weights.
const (
	winBackBase         = 0.70
	winBackFloor        = 0.1
	winBackCeiling      = 0.9
	strengthPenalty     = 0.3
	weeklyDecay         = 0.03
	maxDecay            = 0.3
	highSensitivityBump = 0.15
	midSensitivityBump  = 0.08
	advantagePenalty    = 0.2
)

// WinBackProbability estimates how likely a discount-led intervention restores lost
// volume. Stronger signals, longer time since loss, and a bigger competitor price
// advantage all reduce it; a price-sensitive customer raises it. The result is always
// within [0.1, 0.9].
func WinBackProbability(signalStrength float64, weeksSinceLoss int, sensitivityScore, competitorAdvantage float64) float64 {
	prob := winBackBase

	prob -= signalStrength / 100 * strengthPenalty

	decay := float64(weeksSinceLoss) * weeklyDecay
	if decay > maxDecay {
		decay = maxDecay
	}
	prob -= decay

	if sensitivityScore > 60 {
		prob += highSensitivityBump
	} else if sensitivityScore > 40 {
		prob += midSensitivityBump
	}

	prob -= competitorAdvantage / 100 * advantagePenalty

	return clamp(prob, winBackFloor, winBackCeiling)
}
