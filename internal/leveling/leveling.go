// Package leveling computes experience awards and level thresholds. Pure
// functions only; both session repositories delegate here so the award rules
// stay identical across backends.
package leveling

// ExperienceFor converts a finished player's stats into an experience award.
// Everyone gets a small participation floor; a perfect game earns a bonus.
func ExperienceFor(score, correctAnswers, totalQuestions int) int {
	xp := score/10 + correctAnswers*15
	if totalQuestions > 0 && correctAnswers == totalQuestions {
		xp += 50
	}
	if xp < 10 {
		xp = 10
	}
	return xp
}

// LevelFor maps total accumulated experience to a level, starting at 1.
func LevelFor(experience int) int {
	level := 1
	for experience >= ThresholdFor(level+1) {
		level++
	}
	return level
}

// ThresholdFor returns the total experience required to reach a level.
// Quadratic growth: level 2 at 100, level 3 at 300, level 4 at 600.
func ThresholdFor(level int) int {
	if level <= 1 {
		return 0
	}
	return 50 * level * (level - 1)
}
