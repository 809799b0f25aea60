// Package xp computes rank XP (leaderboard-position based) and cosmetic XP
// (completion based, with a level curve). All functions are pure over the
// static parameter set below.
package xp

import (
	"math"

	"rungate/internal/gamemode"
)

type rankParams struct {
	wrPoints        float64
	rankPercentages [10]float64
	formulaA        float64
	formulaB        float64

	groupScaleFactors [4]float64
	groupExponents    [4]float64
	groupMinSizes     [4]float64
	groupPointPcts    [4]float64
}

type cosParams struct {
	maxLevels                     int
	startingValue                 float64
	linearScaleBaseIncrease       float64
	linearScaleInterval           float64
	linearScaleIntervalMultiplier float64
	staticScaleStart              float64
	staticScaleBaseMultiplier     float64
	staticScaleInterval           float64
	staticScaleIntervalMultiplier float64

	uniqueTierScaleLinear float64
	uniqueTierScaleStaged float64
	repeatTierScaleLinear float64
	repeatTierScaleStaged float64
	repeatTierScaleStages float64
	repeatTierScaleBonus  float64
}

var defaultRankParams = rankParams{
	wrPoints:        3000,
	rankPercentages: [10]float64{1, 0.75, 0.68, 0.61, 0.57, 0.53, 0.505, 0.48, 0.455, 0.43},
	formulaA:        50000,
	formulaB:        49,

	groupScaleFactors: [4]float64{1, 1.5, 2, 2.5},
	groupExponents:    [4]float64{0.5, 0.56, 0.62, 0.68},
	groupMinSizes:     [4]float64{10, 45, 125, 250},
	groupPointPcts:    [4]float64{0.2, 0.13, 0.07, 0.03},
}

var defaultCosParams = cosParams{
	maxLevels:                     500,
	startingValue:                 20000,
	linearScaleBaseIncrease:       1000,
	linearScaleInterval:           10,
	linearScaleIntervalMultiplier: 1,
	staticScaleStart:              101,
	staticScaleBaseMultiplier:     1.5,
	staticScaleInterval:           25,
	staticScaleIntervalMultiplier: 0.5,

	uniqueTierScaleLinear: 2500,
	uniqueTierScaleStaged: 2500,
	repeatTierScaleLinear: 20,
	repeatTierScaleStaged: 40,
	repeatTierScaleStages: 5,
	repeatTierScaleBonus:  40,
}

// RankXPGain breaks down the rank XP for one leaderboard position.
type RankXPGain struct {
	RankXP   int64
	Formula  int64
	Top10    int64
	GroupNum int
	GroupXP  int64
}

// System precomputes the cosmetic level boundaries. Construction is cheap;
// share one instance per process.
type System struct {
	rank rankParams
	cos  cosParams

	xpInLevels  []int64
	xpForLevels []int64
}

func New() *System {
	s := &System{rank: defaultRankParams, cos: defaultCosParams}

	s.xpInLevels = make([]int64, s.cos.maxLevels+1)
	s.xpForLevels = make([]int64, s.cos.maxLevels+1)
	for i := 1; i <= s.cos.maxLevels; i++ {
		s.xpInLevels[i] = s.CosXPInLevel(i)
	}
	// Level 1 is the start; reaching level N costs the XP contained in
	// levels 1..N-1.
	for i := 2; i <= s.cos.maxLevels; i++ {
		s.xpForLevels[i] = s.xpForLevels[i-1] + s.xpInLevels[i-1]
	}
	return s
}

// RankXPForRank returns the rank XP for holding a given 1-based rank on a
// leaderboard with the given total completions. Beyond the top 10, points
// come from membership in dynamically sized rank groups.
func (s *System) RankXPForRank(rank, completions int) RankXPGain {
	gain := RankXPGain{GroupNum: -1}

	formula := int64(math.Ceil(s.rank.formulaA / (float64(rank) + s.rank.formulaB)))
	gain.Formula = formula
	gain.RankXP += formula

	if rank <= 10 {
		top10 := int64(math.Ceil(s.rank.rankPercentages[rank-1] * s.rank.wrPoints))
		gain.Top10 = top10
		gain.RankXP += top10
		return gain
	}

	var groupSizes [4]float64
	for i := range groupSizes {
		groupSizes[i] = math.Max(
			s.rank.groupScaleFactors[i]*math.Pow(float64(completions), s.rank.groupExponents[i]),
			s.rank.groupMinSizes[i],
		)
	}

	rankOffset := 11.0
	for i := range groupSizes {
		if float64(rank) < rankOffset+groupSizes[i] {
			groupXP := int64(math.Ceil(s.rank.wrPoints * s.rank.groupPointPcts[i]))
			gain.GroupNum = i + 1
			gain.GroupXP = groupXP
			gain.RankXP += groupXP
			break
		}
		rankOffset += groupSizes[i]
	}

	return gain
}

// CosXPInLevel returns the cosmetic XP contained within a single level, or
// -1 for a level outside the curve.
func (s *System) CosXPInLevel(level int) int64 {
	c := s.cos
	if level < 1 || level > c.maxLevels {
		return -1
	}

	lvl := float64(level)
	if lvl < c.staticScaleStart {
		return int64(c.startingValue +
			c.linearScaleBaseIncrease*lvl*
				(c.linearScaleIntervalMultiplier*math.Ceil(lvl/c.linearScaleInterval)))
	}

	linearPortion := c.linearScaleBaseIncrease * (c.staticScaleStart - 1) *
		(c.linearScaleIntervalMultiplier * math.Ceil((c.staticScaleStart-1)/c.linearScaleInterval))
	multiplier := c.staticScaleBaseMultiplier
	if lvl >= c.staticScaleStart+c.staticScaleInterval {
		multiplier += math.Floor((lvl-c.staticScaleStart)/c.staticScaleInterval) *
			c.staticScaleIntervalMultiplier
	}
	return int64(linearPortion * multiplier)
}

// CosXPForLevel returns the total cosmetic XP required to reach a level, or
// -1 for a level outside the curve.
func (s *System) CosXPForLevel(level int) int64 {
	if level < 1 || level > s.cos.maxLevels {
		return -1
	}
	return s.xpForLevels[level]
}

func initialScale(tier int32) float64 {
	t := float64(tier)
	return t*t - t + 10
}

// CosXPForCompletion returns the cosmetic XP awarded for completing a track.
// Stage completions always count as repeats; bonus awards are flat across
// tiers.
func (s *System) CosXPForCompletion(tier int32, trackType gamemode.TrackType, linear, unique bool) int64 {
	c := s.cos

	if trackType == gamemode.TrackBonus {
		baseBonus := math.Ceil(
			(c.uniqueTierScaleLinear*initialScale(3) + c.uniqueTierScaleLinear*initialScale(4)) / 2)
		if unique {
			return int64(baseBonus)
		}
		return int64(math.Ceil(baseBonus / c.repeatTierScaleBonus))
	}

	tierScale := c.uniqueTierScaleStaged
	repeatScale := c.repeatTierScaleStaged
	if linear {
		tierScale = c.uniqueTierScaleLinear
		repeatScale = c.repeatTierScaleLinear
	}
	baseXP := tierScale * initialScale(tier)

	if trackType == gamemode.TrackStage {
		return int64(math.Ceil(baseXP / c.repeatTierScaleStaged / c.repeatTierScaleStages))
	}

	if unique {
		return int64(baseXP)
	}
	return int64(math.Ceil(baseXP / repeatScale))
}
