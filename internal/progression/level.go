package progression

import (
	"math"

	"github.com/jengzang/travel-journal-go/internal/models"
)

// Initial returns level 1 with no XP
func Initial(xpToNextLevel int) models.Progression {
	return models.Progression{Level: 1, XPToNextLevel: xpToNextLevel}
}

// ApplyXP adds amount to p and levels up while XP reaches the threshold.
// Each level-up subtracts the threshold and grows it by multiplier.
// Returns the new state and the number of levels gained.
func ApplyXP(p models.Progression, amount int, multiplier float64) (models.Progression, int) {
	if amount <= 0 {
		return p, 0
	}

	p.XP += amount
	gained := 0
	for p.XPToNextLevel > 0 && p.XP >= p.XPToNextLevel {
		p.XP -= p.XPToNextLevel
		p.Level++
		p.XPToNextLevel = int(math.Floor(float64(p.XPToNextLevel) * multiplier))
		gained++
	}
	return p, gained
}
