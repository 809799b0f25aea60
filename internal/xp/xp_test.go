package xp

import (
	"testing"

	"rungate/internal/gamemode"
)

func TestRankXPTop10(t *testing.T) {
	s := New()

	// Rank 1: formula ceil(50000/50) + full WR points.
	wr := s.RankXPForRank(1, 1000)
	if wr.Formula != 1000 {
		t.Errorf("rank 1 formula = %d, want 1000", wr.Formula)
	}
	if wr.Top10 != 3000 {
		t.Errorf("rank 1 top10 = %d, want 3000", wr.Top10)
	}
	if wr.RankXP != 4000 {
		t.Errorf("rank 1 total = %d, want 4000", wr.RankXP)
	}
	if wr.GroupNum != -1 {
		t.Errorf("rank 1 group = %d, want -1", wr.GroupNum)
	}

	// Rank 10: ceil(50000/59) + ceil(0.43*3000).
	r10 := s.RankXPForRank(10, 1000)
	if r10.Formula != 848 {
		t.Errorf("rank 10 formula = %d, want 848", r10.Formula)
	}
	if r10.Top10 != 1290 {
		t.Errorf("rank 10 top10 = %d, want 1290", r10.Top10)
	}
}

func TestRankXPGroups(t *testing.T) {
	s := New()

	// With 100 completions group 1 spans ranks 11-20.
	r11 := s.RankXPForRank(11, 100)
	if r11.GroupNum != 1 {
		t.Errorf("rank 11 group = %d, want 1", r11.GroupNum)
	}
	if r11.GroupXP != 600 {
		t.Errorf("rank 11 group xp = %d, want 600", r11.GroupXP)
	}
	if r11.Top10 != 0 {
		t.Errorf("rank 11 top10 = %d, want 0", r11.Top10)
	}

	r21 := s.RankXPForRank(21, 100)
	if r21.GroupNum != 2 {
		t.Errorf("rank 21 group = %d, want 2", r21.GroupNum)
	}

	// Deep ranks beyond every group still earn formula points.
	deep := s.RankXPForRank(100000, 100)
	if deep.GroupNum != -1 {
		t.Errorf("deep rank group = %d, want -1", deep.GroupNum)
	}
	if deep.RankXP != deep.Formula {
		t.Errorf("deep rank total = %d, want formula only %d", deep.RankXP, deep.Formula)
	}
}

func TestRankXPMonotonicallyDecreasing(t *testing.T) {
	s := New()
	prev := s.RankXPForRank(1, 5000).RankXP
	for rank := 2; rank <= 300; rank++ {
		got := s.RankXPForRank(rank, 5000).RankXP
		if got > prev {
			t.Fatalf("rank %d xp %d exceeds rank %d xp %d", rank, got, rank-1, prev)
		}
		prev = got
	}
}

func TestCosXPLevelCurve(t *testing.T) {
	s := New()

	if got := s.CosXPInLevel(1); got != 21000 {
		t.Errorf("level 1 xp = %d, want 21000", got)
	}
	if got := s.CosXPInLevel(0); got != -1 {
		t.Errorf("level 0 xp = %d, want -1", got)
	}
	if got := s.CosXPInLevel(501); got != -1 {
		t.Errorf("level 501 xp = %d, want -1", got)
	}

	prev := int64(0)
	for level := 1; level <= 500; level++ {
		total := s.CosXPForLevel(level)
		if total < prev {
			t.Fatalf("level %d total %d below level %d total %d", level, total, level-1, prev)
		}
		prev = total
	}
}

func TestCosXPForCompletion(t *testing.T) {
	s := New()

	uniqueLinear := s.CosXPForCompletion(3, gamemode.TrackMain, true, true)
	repeatLinear := s.CosXPForCompletion(3, gamemode.TrackMain, true, false)
	if uniqueLinear <= 0 {
		t.Fatalf("unique linear xp = %d", uniqueLinear)
	}
	if repeatLinear >= uniqueLinear {
		t.Errorf("repeat %d not below unique %d", repeatLinear, uniqueLinear)
	}

	// Tier scaling: t²-t+10 initial scale means higher tiers award more.
	if lo, hi := s.CosXPForCompletion(1, gamemode.TrackMain, true, true),
		s.CosXPForCompletion(10, gamemode.TrackMain, true, true); lo >= hi {
		t.Errorf("tier 1 xp %d not below tier 10 xp %d", lo, hi)
	}

	// Bonus awards are flat across tiers.
	if a, b := s.CosXPForCompletion(1, gamemode.TrackBonus, false, true),
		s.CosXPForCompletion(10, gamemode.TrackBonus, false, true); a != b {
		t.Errorf("bonus xp differs across tiers: %d vs %d", a, b)
	}

	// Stage completions always count as repeats.
	stage := s.CosXPForCompletion(3, gamemode.TrackStage, false, true)
	main := s.CosXPForCompletion(3, gamemode.TrackMain, false, true)
	if stage >= main {
		t.Errorf("stage xp %d not below main xp %d", stage, main)
	}
}
