package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esports_v1/ingestion/internal/predictor"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, options{}, opts)

	opts, err = parseFlags([]string{"-finished", "-recompute", "-limit", "200"})
	require.NoError(t, err)
	assert.True(t, opts.finished)
	assert.True(t, opts.recompute)
	assert.Equal(t, 200, opts.limit)

	opts, err = parseFlags([]string{"-match", "123456"})
	require.NoError(t, err)
	assert.Equal(t, int64(123456), opts.matchID)
}

func TestParseFlags_Invalid(t *testing.T) {
	for _, args := range [][]string{
		{"-recompute"},
		{"-match", "1", "-finished"},
		{"-limit", "-1"},
	} {
		_, err := parseFlags(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, predictor.BatchResult{
		Mode: predictor.ModeFinished, Candidates: 4, Predicted: 4,
		Evaluated: 4, Correct: 3, Accuracy: 0.75,
	})
	assert.Contains(t, buf.String(), "Backtest: evaluated=4 correct=3 accuracy=75.00%")

	buf.Reset()
	printSummary(&buf, predictor.BatchResult{Mode: predictor.ModeUpcoming})
	assert.Contains(t, buf.String(), "No matches needed a prediction")
	assert.NotContains(t, buf.String(), "Backtest")
}
