package player

import "math"

// silentVolume is the beep volume used for a zero gain.
const silentVolume = -10

// clampGain limits a gain to [0, 1].
func clampGain(gain float64) float64 {
	if gain < 0 {
		return 0
	}
	if gain > 1 {
		return 1
	}
	return gain
}

// gainToVolume converts a 0.0-1.0 linear amplitude to beep's Volume value.
// With Base 2 the output amplitude is 2^Volume, so log2 keeps the gain
// linear in amplitude, which the crossfade curve relies on.
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> silent.
func gainToVolume(gain float64) float64 {
	if gain <= 0 {
		return silentVolume
	}
	if gain >= 1 {
		return 0
	}
	return math.Log2(gain)
}
