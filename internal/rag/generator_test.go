package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLLM returns a canned completion and records the prompts it saw.
type stubLLM struct {
	response string
	err      error
	prompts  []string
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func grounding(sources ...string) []Result {
	out := make([]Result, len(sources))
	for i, src := range sources {
		out[i] = Result{Chunk: Chunk{Source: src, Index: i, Text: "content of " + src}, Score: 1 - float64(i)*0.1}
	}
	return out
}

const validTestCaseJSON = `[
  {
    "test_id": "TC-001",
    "feature": "Discount Code",
    "test_scenario": "Apply valid discount code SAVE15",
    "test_type": "positive",
    "preconditions": ["Cart contains at least one item"],
    "test_steps": ["Open checkout", "Enter SAVE15", "Click Apply"],
    "expected_result": "15% discount applied",
    "grounded_in": "promo.md - Section 3.1",
    "priority": "high",
    "test_data": {"discount_code": "SAVE15"}
  }
]`

func TestGenerator_EmptyContextFailsFast(t *testing.T) {
	llm := &stubLLM{response: validTestCaseJSON}
	g := NewGenerator(llm)

	_, err := g.Generate(context.Background(), TaskTestCases, "test discounts", nil, "")
	assert.ErrorIs(t, err, ErrNoGroundingContext)
	assert.Empty(t, llm.prompts, "the provider must never be called without context")
}

func TestGenerator_TestCases(t *testing.T) {
	llm := &stubLLM{response: validTestCaseJSON}
	g := NewGenerator(llm)

	art, err := g.Generate(context.Background(), TaskTestCases, "test discount code", grounding("promo.md", "checkout.md"), "")
	require.NoError(t, err)
	require.Len(t, art.TestCases, 1)

	tc := art.TestCases[0]
	assert.Equal(t, "TC-001", tc.TestID)
	assert.Equal(t, "positive", tc.TestType)
	assert.Equal(t, []string{"Open checkout", "Enter SAVE15", "Click Apply"}, tc.TestSteps)
	assert.Equal(t, "SAVE15", tc.TestData["discount_code"])

	// Cited sources are a subset of the context's source labels.
	assert.Equal(t, []string{"promo.md"}, art.Sources)
}

func TestGenerator_PromptLabelsChunksInRankedOrder(t *testing.T) {
	llm := &stubLLM{response: validTestCaseJSON}
	g := NewGenerator(llm)

	_, err := g.Generate(context.Background(), TaskTestCases, "test discount code", grounding("promo.md", "checkout.md"), "")
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)

	prompt := llm.prompts[0]
	first := strings.Index(prompt, "Document 1: promo.md")
	second := strings.Index(prompt, "Document 2: checkout.md")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Contains(t, prompt, "content of promo.md")
	assert.Contains(t, prompt, "test discount code")
	assert.Contains(t, prompt, "grounded_in")
}

func TestGenerator_StripsMarkdownFences(t *testing.T) {
	llm := &stubLLM{response: "```json\n" + validTestCaseJSON + "\n```"}
	g := NewGenerator(llm)

	art, err := g.Generate(context.Background(), TaskTestCases, "i", grounding("promo.md"), "")
	require.NoError(t, err)
	assert.Len(t, art.TestCases, 1)
}

func TestGenerator_SingleObjectResponseWrapped(t *testing.T) {
	llm := &stubLLM{response: `{"test_id":"TC-9","feature":"F","test_scenario":"s","test_type":"negative","test_steps":["x"],"expected_result":"e","grounded_in":"promo.md"}`}
	g := NewGenerator(llm)

	art, err := g.Generate(context.Background(), TaskTestCases, "i", grounding("promo.md"), "")
	require.NoError(t, err)
	require.Len(t, art.TestCases, 1)
	assert.Equal(t, "TC-9", art.TestCases[0].TestID)
}

func TestGenerator_ParseErrorSurfaced(t *testing.T) {
	for _, response := range []string{"not json at all", "[]", "```\ngarbage\n```"} {
		llm := &stubLLM{response: response}
		g := NewGenerator(llm)

		_, err := g.Generate(context.Background(), TaskTestCases, "i", grounding("promo.md"), "")
		assert.ErrorIs(t, err, ErrGenerationParseError, "response %q", response)
	}
}

func TestGenerator_UngroundedClaimRejected(t *testing.T) {
	llm := &stubLLM{response: `[{"test_id":"TC-1","feature":"F","test_scenario":"s","test_type":"positive","test_steps":["x"],"expected_result":"e","grounded_in":"made_up.md - Section 1"}]`}
	g := NewGenerator(llm)

	_, err := g.Generate(context.Background(), TaskTestCases, "i", grounding("promo.md"), "")
	assert.ErrorIs(t, err, ErrUngroundedClaim)
}

func TestGenerator_MissingCitationRejected(t *testing.T) {
	llm := &stubLLM{response: `[{"test_id":"TC-1","feature":"F","test_scenario":"s","test_type":"positive","test_steps":["x"],"expected_result":"e","grounded_in":""}]`}
	g := NewGenerator(llm)

	_, err := g.Generate(context.Background(), TaskTestCases, "i", grounding("promo.md"), "")
	assert.ErrorIs(t, err, ErrUngroundedClaim)
}

func TestGenerator_ProviderFailure(t *testing.T) {
	llm := &stubLLM{err: errors.New("quota exceeded")}
	g := NewGenerator(llm)

	_, err := g.Generate(context.Background(), TaskTestCases, "i", grounding("promo.md"), "")
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
}

func TestGenerator_ScriptExtraction(t *testing.T) {
	llm := &stubLLM{response: "Here is the script:\n```python\nimport pytest\n\ndef test_save15():\n    assert True\n```\nDone."}
	g := NewGenerator(llm)

	art, err := g.Generate(context.Background(), TaskScript, "automate TC-001", grounding("promo.md", "checkout.md"), "<form id=\"discount\"></form>")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(art.Script, "import pytest"))
	assert.Contains(t, art.Script, "def test_save15():")
	assert.NotContains(t, art.Script, "```")
	assert.Equal(t, []string{"promo.md", "checkout.md"}, art.Sources)

	// The page HTML is part of the prompt when provided.
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "HTML Structure")
	assert.Contains(t, llm.prompts[0], "<form id=\"discount\">")
}

func TestGenerator_ScriptWithoutFence(t *testing.T) {
	llm := &stubLLM{response: "import unittest\n"}
	g := NewGenerator(llm)

	art, err := g.Generate(context.Background(), TaskScript, "i", grounding("promo.md"), "")
	require.NoError(t, err)
	assert.Equal(t, "import unittest", art.Script)
}

func TestGenerator_EmptyScriptIsParseError(t *testing.T) {
	llm := &stubLLM{response: "```python\n\n```"}
	g := NewGenerator(llm)

	_, err := g.Generate(context.Background(), TaskScript, "i", grounding("promo.md"), "")
	assert.ErrorIs(t, err, ErrGenerationParseError)
}

func TestCitedSource(t *testing.T) {
	assert.Equal(t, "promo.md", citedSource("promo.md - Section 3.1"))
	assert.Equal(t, "promo.md", citedSource("promo.md — discounts"))
	assert.Equal(t, "promo.md", citedSource("  promo.md  "))
	assert.Equal(t, "", citedSource(""))
}
