package plot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "Rewards over time", []Point{
		{Label: "t1", Reward: 30},
		{Reward: -35},
		{Label: "t3", Reward: 35},
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Rewards over time")
	assert.Contains(t, html, "running mean")
}

func TestRender_Empty(t *testing.T) {
	assert.ErrorIs(t, Render(&bytes.Buffer{}, "x", nil), ErrNoData)
}
