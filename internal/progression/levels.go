package progression

// LevelPolicy configures the XP curve shared by users and pets: a flat
// XP cost per level up to a cap.
type LevelPolicy struct {
	XPPerLevel int64
	MaxLevel   int
}

// AddXP applies earned XP with carry: a single big grant can cross
// several levels, the remainder rolls forward. At MaxLevel the XP bar
// pins just below full so the currentXp < xpPerLevel invariant holds.
// Returns the new level, new xp and the number of levels gained.
func AddXP(level int, xp, earned int64, pol LevelPolicy) (int, int64, int) {
	if earned < 0 {
		earned = 0
	}
	xp += earned
	gained := 0
	for xp >= pol.XPPerLevel && level < pol.MaxLevel {
		xp -= pol.XPPerLevel
		level++
		gained++
	}
	if level >= pol.MaxLevel && xp >= pol.XPPerLevel {
		xp = pol.XPPerLevel - 1
	}
	return level, xp, gained
}
