package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/faceir/metric"
)

func TestReadPairs(t *testing.T) {
	csv := "probe,reference,label\na.png,b.png,1\nc.png,d.png,0\n"
	pairs, err := readPairs(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, pair{Probe: "a.png", Reference: "b.png", Label: 1}, pairs[0])
	assert.Equal(t, pair{Probe: "c.png", Reference: "d.png", Label: 0}, pairs[1])
}

func TestReadPairsWithoutLabel(t *testing.T) {
	pairs, err := readPairs(strings.NewReader("probe,reference\na.png,b.png\n"))
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, -1, pairs[0].Label)
}

func TestReadPairsBadLabel(t *testing.T) {
	_, err := readPairs(strings.NewReader("probe,reference,label\na.png,b.png,1\nc.png,d.png,same\n"))
	assert.Error(t, err)
}

func TestReadPairsMissingColumn(t *testing.T) {
	_, err := readPairs(strings.NewReader("left,right\na.png,b.png\n"))
	assert.Error(t, err)
}

func TestWriteScores(t *testing.T) {
	pairs := []pair{{Probe: "a.png", Reference: "b.png", Label: -1}}
	scores := []metric.Similarity{metric.NewSimilarity(0.75)}

	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, pairs, scores))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "probe,reference,dissimilarity,cosine", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "a.png,b.png,0.25"), lines[1])

	assert.Error(t, writeScores(&buf, pairs, nil))
}

func TestAccuracy(t *testing.T) {
	pairs := []pair{
		{Label: 1}, {Label: 0}, {Label: 1}, {Label: -1},
	}
	scores := []metric.Similarity{
		metric.NewSimilarity(0.9),
		metric.NewSimilarity(0.1),
		metric.NewSimilarity(0.2),
		metric.NewSimilarity(0.9),
	}
	acc, ok := accuracy(pairs, scores, 0.3)
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, acc, 1e-9)

	_, ok = accuracy([]pair{{Label: -1}}, scores[:1], 0.3)
	assert.False(t, ok)
}
