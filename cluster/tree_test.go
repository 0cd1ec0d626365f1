package cluster

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkPreorder(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 2})

	var cards []int
	tree.Walk(func(c *Cluster) bool {
		cards = append(cards, c.Cardinality())
		return true
	})

	assert.Equal(t, []int{6, 3, 2, 1, 3, 2, 1}, cards)
}

func TestWalkEarlyExit(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 2})

	visits := 0
	tree.Walk(func(c *Cluster) bool {
		visits++
		return false
	})

	assert.Equal(t, 1, visits)
}

func TestValidateDetectsRadiusCorruption(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 2})

	tree.root.radius++

	err := tree.Validate(context.Background())
	assert.ErrorIs(t, err, ErrTreeInvalid)
	assert.Contains(t, err.Error(), "radius")
}

func TestValidateDetectsForeignCenter(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 2})

	tree.root.left.center = 5 // member of the right subtree

	err := tree.Validate(context.Background())
	assert.ErrorIs(t, err, ErrTreeInvalid)
	assert.Contains(t, err.Error(), "center")
}

func TestValidateCancelled(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, tree.Validate(ctx), context.Canceled)
}

func TestStats(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 2})

	st := tree.Stats()
	assert.Equal(t, 6, st.Cardinality)
	assert.Equal(t, 2, st.Height)
	assert.Equal(t, 7, st.NodeCount)
	assert.Equal(t, 4, st.LeafCount)
	assert.InDelta(t, math.Sqrt(200), st.RootRadius, 1e-12)
	assert.Equal(t, 2.0, st.MeanLeafDepth)
	assert.Equal(t, 1.5, st.MeanLeafCardinality)
	assert.Greater(t, st.MeanLFD, 0.0)
}

func TestWriteCSV(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 2})

	var buf bytes.Buffer
	require.NoError(t, tree.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, tree.NodeCount()+1)

	assert.Equal(t, "depth,cardinality,radius,lfd,center,leaf", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,6,"))
	assert.True(t, strings.HasSuffix(lines[1], ",false"))
}
