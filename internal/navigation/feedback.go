// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package navigation

import (
	"math"
	"time"
)

const (
	// FeedbackDelay is the base interval between two "on course" cues.
	FeedbackDelay = 400 * time.Millisecond

	facingCone         = math.Pi / 12
	facingLateralRatio = 0.5
	minCueIntensity    = 0.1
	intensityRange     = 5.0
	minDelayDistance   = 0.2
	maxDelayDistance   = 2.0
)

// Feedback is the non-verbal cue for the current direction.
type Feedback struct {
	// FacingTarget is true if the user is heading towards the keypoint.
	FacingTarget bool `json:"facing_target"`
	// Intensity grows from 0.1 to 1 as the keypoint gets closer.
	Intensity float64 `json:"intensity"`
	// Delay is the minimum interval between two cues.
	Delay time.Duration `json:"delay"`
}

// FeedbackFor returns the cue for a direction.
func FeedbackFor(dir DirectionInfo) Feedback {
	facing := math.Abs(dir.AngleDiff) < facingCone || dir.LateralRatio < facingLateralRatio
	clamped := math.Min(maxDelayDistance, math.Max(minDelayDistance, dir.Distance))
	return Feedback{
		FacingTarget: facing,
		Intensity:    math.Max(minCueIntensity, 1-dir.Distance/intensityRange),
		Delay:        time.Duration(float64(FeedbackDelay) * clamped),
	}
}
