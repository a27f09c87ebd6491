package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageFromProgress(t *testing.T) {
	cases := []struct {
		progress float64
		want     LaunchStage
	}{
		{0, StagePreLaunch},
		{9.9, StagePreLaunch},
		{10, StageEarly},
		{39.9, StageEarly},
		{40, StageConfirmed},
		{84.9, StageConfirmed},
		{85, StageNearGraduation},
		{99.9, StageNearGraduation},
		{100, StageGraduated},
		{120, StageGraduated},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StageFromProgress(tc.progress), "progress %.1f", tc.progress)
	}
}

func TestNewTokenCandidate_NeutralDefaults(t *testing.T) {
	now := time.Now()
	c := NewTokenCandidate("Mint1", "", "", "pumpfun", now)

	assert.Equal(t, UnknownSymbol, c.Symbol)
	assert.False(t, c.HasKnownSymbol())
	assert.Equal(t, 50.0, c.SecurityScore)
	assert.False(t, c.SecurityChecked)
	assert.Equal(t, 1.0, c.BuySellRatio)
	assert.Equal(t, 1, c.PlatformCount())
	assert.Contains(t, c.PlatformList(), "pumpfun")
}

func TestTokenCandidate_Clone_IsDeep(t *testing.T) {
	c := NewTokenCandidate("Mint1", "", "", "pumpfun", time.Now())
	c.RiskFactors = []string{"mutable_metadata"}
	pct := 42.0
	c.GraduationPct = &pct

	clone := c.Clone()
	clone.AddPlatform("dexscreener")
	clone.RiskFactors[0] = "changed"
	*clone.GraduationPct = 99

	assert.Equal(t, 1, c.PlatformCount())
	assert.Equal(t, "mutable_metadata", c.RiskFactors[0])
	require.NotNil(t, c.GraduationPct)
	assert.Equal(t, 42.0, *c.GraduationPct)
}

func TestTokenCandidate_AgeAt(t *testing.T) {
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewTokenCandidate("Mint1", "", "", "pumpfun", first)
	assert.Equal(t, 90*time.Minute, c.AgeAt(first.Add(90*time.Minute)))
}
