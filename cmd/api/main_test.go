package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposals/api/internal/money"
	"proposals/api/internal/proposal"
)

const sampleProposal = `{
  "sections": [
    {"title": "Design", "items": [
      {"item": "Wireframes", "hours": "20", "price": "$2,000"},
      {"item": "Mockups", "hours": 20, "price": 2000}
    ]},
    {"title": "Build", "items": [
      {"item": "Frontend", "hours": "30", "price": "$3,000"},
      {"item": "Backend", "hours": "30", "price": "$3,000"}
    ]}
  ]
}`

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("PROPOSALS_CONFIG", "")
	t.Setenv("LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

type cliResult struct {
	Sections []proposal.Section `json:"sections"`
	Total    string             `json:"total"`
}

func decodeCLIResult(t *testing.T, out string) cliResult {
	t.Helper()
	var result cliResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	return result
}

func TestReconcileCommandRescalesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposal.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleProposal), 0o600))

	out, _, err := runCLI(t, "", "reconcile", path, "--budget", "$5,000", "--rate", "100", "--hours-locked")
	require.NoError(t, err)

	result := decodeCLIResult(t, out)
	assert.Equal(t, "$5,000", result.Total)
	require.Len(t, result.Sections, 2)
	assert.Equal(t, 2000.0, result.Sections[0].Subtotal)
	assert.Equal(t, 1000.0, result.Sections[0].Items[0].Price)
	assert.Equal(t, 10.0, result.Sections[0].Items[0].Hours)
}

func TestReconcileCommandReadsStdinArray(t *testing.T) {
	var file struct {
		Sections json.RawMessage `json:"sections"`
	}
	require.NoError(t, json.Unmarshal([]byte(sampleProposal), &file))

	out, _, err := runCLI(t, string(file.Sections), "reconcile")
	require.NoError(t, err)

	result := decodeCLIResult(t, out)
	assert.Equal(t, "$10,000", result.Total)
	assert.Equal(t, 6000.0, result.Sections[1].Subtotal)
}

func TestReconcileCommandRejectsBadJSON(t *testing.T) {
	_, _, err := runCLI(t, `{"sections":`, "reconcile", "-")
	require.Error(t, err)
}

func TestGenerateCommandUsesFallback(t *testing.T) {
	t.Setenv("GENERATOR_URL", "")
	t.Setenv("PROPOSALS_FALLBACK_DELAY_MS", "0")

	out, progress, err := runCLI(t, "", "generate", "--prompt", "Design a brochure site for Lantern Bakery", "--rate", "90", "--budget", "$4,500")
	require.NoError(t, err)

	result := decodeCLIResult(t, out)
	require.Len(t, result.Sections, 6)
	total := money.ParseString(result.Total)
	assert.InDelta(t, 4500, total, float64(proposal.ItemCount(result.Sections))*0.5)
	assert.Equal(t, 6, strings.Count(progress, "%"))
}

func TestGenerateCommandRequiresPrompt(t *testing.T) {
	_, _, err := runCLI(t, "", "generate")
	require.Error(t, err)
}
