package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planTime = time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)

func TestNewPlan(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := New("siri", 1000, 1.50, 1.66, 1.44, planTime)
		require.NoError(t, err)
		assert.Equal(t, "SIRI", p.Symbol)
		assert.Equal(t, StatusActive, p.Status)
		assert.NotEmpty(t, p.ID)
	})

	t.Run("invalid", func(t *testing.T) {
		cases := []struct {
			name                         string
			shares, entry, target, stop  float64
		}{
			{"zero shares", 0, 1.50, 1.66, 1.44},
			{"target below entry", 1000, 1.50, 1.40, 1.30},
			{"stop above entry", 1000, 1.50, 1.66, 1.55},
			{"negative stop", 1000, 1.50, 1.66, -0.1},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := New("SIRI", tc.shares, tc.entry, tc.target, tc.stop, planTime)
				assert.Error(t, err)
			})
		}
	})
}

func TestRRRatio(t *testing.T) {
	// reward (1.66-1.50)=0.16, risk (1.50-1.42)=0.08 → 2.0
	p, err := New("SIRI", 1000, 1.50, 1.66, 1.42, planTime)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, p.RRRatio(), 1e-9)
}

func TestCheck(t *testing.T) {
	p, err := New("SIRI", 1000, 1.50, 1.66, 1.44, planTime)
	require.NoError(t, err)

	t.Run("price stop", func(t *testing.T) {
		res := Check(p, 1.40, planTime.Add(24*time.Hour))
		assert.Equal(t, ActionPriceStop, res.Action)
		assert.InDelta(t, 6.6667, res.LossPct, 1e-3)
	})

	t.Run("take profit", func(t *testing.T) {
		res := Check(p, 1.70, planTime.Add(24*time.Hour))
		assert.Equal(t, ActionTakeProfit, res.Action)
	})

	t.Run("time stop after five flat days", func(t *testing.T) {
		res := Check(p, 1.48, planTime.Add(5*24*time.Hour))
		assert.Equal(t, ActionTimeStop, res.Action)
		assert.Equal(t, 5, res.DaysHeld)
	})

	t.Run("hold when above entry within window", func(t *testing.T) {
		res := Check(p, 1.55, planTime.Add(6*24*time.Hour))
		assert.Equal(t, ActionHold, res.Action)
	})

	t.Run("hold early", func(t *testing.T) {
		res := Check(p, 1.47, planTime.Add(48*time.Hour))
		assert.Equal(t, ActionHold, res.Action)
	})
}
