package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	out, err := execute(t, "score",
		"--positioning", "15", "--messaging", "14", "--visibility", "6",
		"--credibility", "12", "--conversion", "13")
	require.NoError(t, err)
	assert.Contains(t, out, "score: 60/100 (Mixed)")
	assert.Contains(t, out, "primary pillar: Visibility")
	assert.Contains(t, out, "Visibility    6/20 Weak")
}

func TestScoreCommandRejectsOutOfRange(t *testing.T) {
	_, err := execute(t, "score", "--positioning", "21")
	assert.ErrorContains(t, err, "positioning=21")
}

func TestQuestionsCommand(t *testing.T) {
	out, err := execute(t, "questions", "--tier", "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, " 1 * [positioning] business_name")
	assert.Contains(t, out, "[visibility] website")

	_, err = execute(t, "questions", "--tier", "platinum")
	assert.ErrorContains(t, err, "unknown tier")
}

func TestJobsRunNeedsName(t *testing.T) {
	_, err := execute(t, "jobs", "run")
	assert.Error(t, err)
}
