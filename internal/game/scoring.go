package game

import "math"

const (
	// BaseMultiplier is the floor every player starts at and resets to.
	BaseMultiplier = 1.0
	// MaxMultiplier caps streak growth.
	MaxMultiplier = 2.0

	basePoints     = 100.0
	maxTimeBonus   = 100.0
	multiplierStep = 0.1
)

// CalculateScore maps one submission to the points earned and the player's
// next multiplier. Pure: no clock, no state.
//
// A wrong answer earns nothing and resets the multiplier. A correct answer
// earns base points plus a bonus that decays linearly with elapsed time,
// scaled by the current multiplier; the new multiplier grows with the streak
// (the count of consecutive correct answers before this one) up to the cap.
func CalculateScore(elapsedSeconds, limitSeconds, currentMultiplier float64, isCorrect bool, streak int) (points int, newMultiplier float64) {
	if !isCorrect {
		return 0, BaseMultiplier
	}

	if currentMultiplier < BaseMultiplier {
		currentMultiplier = BaseMultiplier
	}

	speed := 0.0
	if limitSeconds > 0 {
		speed = (limitSeconds - elapsedSeconds) / limitSeconds
	}
	if speed < 0 {
		speed = 0
	}
	if speed > 1 {
		speed = 1
	}

	points = int(math.Round((basePoints + maxTimeBonus*speed) * currentMultiplier))
	if points < 0 {
		points = 0
	}

	newMultiplier = BaseMultiplier + multiplierStep*float64(streak+1)
	if newMultiplier > MaxMultiplier {
		newMultiplier = MaxMultiplier
	}
	return points, newMultiplier
}
