package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Task selects the output schema of a generation call.
type Task int

const (
	// TaskTestCases asks the model for a JSON array of structured test cases.
	TaskTestCases Task = iota
	// TaskScript asks the model for an executable Selenium Python script.
	TaskScript
)

func (t Task) String() string {
	switch t {
	case TaskTestCases:
		return "test_cases"
	case TaskScript:
		return "script"
	default:
		return fmt.Sprintf("task(%d)", int(t))
	}
}

// TestCase is a structured test case grounded in documentation.
type TestCase struct {
	TestID         string         `json:"test_id"`
	Feature        string         `json:"feature"`
	TestScenario   string         `json:"test_scenario"`
	TestType       string         `json:"test_type"`
	Preconditions  []string       `json:"preconditions,omitempty"`
	TestSteps      []string       `json:"test_steps"`
	ExpectedResult string         `json:"expected_result"`
	GroundedIn     string         `json:"grounded_in"`
	Priority       string         `json:"priority,omitempty"`
	TestData       map[string]any `json:"test_data,omitempty"`
}

// Artifact is the validated output of a generation call together with the
// source documents it is grounded in.
type Artifact struct {
	TestCases []TestCase `json:"test_cases,omitempty"`
	Script    string     `json:"script,omitempty"`
	Sources   []string   `json:"sources"`
}

// Generator assembles a prompt from retrieved chunks, invokes the
// generation provider and validates the structured result against the
// supplied context. It is stateless and performs no internal retries.
type Generator struct {
	client GenerationClient
}

func NewGenerator(client GenerationClient) *Generator {
	return &Generator{client: client}
}

// Generate produces an artifact for task grounded in context. Generation
// without retrieved material is out of contract: an empty context fails
// with ErrNoGroundingContext before any provider call. Output that cannot
// be parsed against the task schema fails with ErrGenerationParseError;
// output citing a source absent from context fails with ErrUngroundedClaim.
func (g *Generator) Generate(ctx context.Context, task Task, instruction string, grounding []Result, extra string) (*Artifact, error) {
	if len(grounding) == 0 {
		return nil, fmt.Errorf("%w: build the knowledge base before generating", ErrNoGroundingContext)
	}

	prompt := buildPrompt(task, instruction, grounding, extra)
	raw, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	switch task {
	case TaskTestCases:
		return parseTestCases(raw, grounding)
	case TaskScript:
		return parseScript(raw, grounding)
	default:
		return nil, fmt.Errorf("%w: unknown task %d", ErrInvalidArgument, int(task))
	}
}

// buildPrompt concatenates each chunk's text labeled with its source file
// in ranked order, then the task instruction and the schema directive.
func buildPrompt(task Task, instruction string, results []Result, extra string) string {
	var b strings.Builder

	b.WriteString("DOCUMENTATION:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "--- Document %d: %s (relevance %.2f) ---\n%s\n\n", i+1, r.Chunk.Source, r.Score, r.Chunk.Text)
	}
	if extra != "" {
		b.WriteString("--- HTML Structure ---\n")
		b.WriteString(extra)
		b.WriteString("\n\n")
	}

	b.WriteString("TASK:\n")
	b.WriteString(instruction)
	b.WriteString("\n\n")

	switch task {
	case TaskTestCases:
		b.WriteString(testCaseDirective)
	case TaskScript:
		b.WriteString(scriptDirective)
	}
	return b.String()
}

const testCaseDirective = `You are an expert QA automation engineer. Generate test cases based STRICTLY on the documentation above.

RULES:
1. Base every test case ONLY on information found in the documentation.
2. Do NOT invent features, fields or functionality the documentation does not mention.
3. Set grounded_in on every test case to the source document filename that supports it (optionally followed by " - " and a section note).
4. Be specific about element IDs, field names and values mentioned in the documentation.

OUTPUT: respond with ONLY a JSON array of test case objects with fields
test_id, feature, test_scenario, test_type (positive|negative|edge_case),
preconditions, test_steps, expected_result, grounded_in, priority
(high|medium|low) and test_data.`

const scriptDirective = `You are an expert Selenium automation engineer. Generate a complete, executable Python test script for the test case above.

RULES:
1. Use pytest with selenium WebDriver for Chrome and webdriver_manager.
2. Use explicit waits (WebDriverWait with expected_conditions), not sleeps.
3. Base all selectors on the documentation and HTML structure provided; do not invent element IDs.
4. Include setup and teardown, assertions matching the expected result, and exception handling.

OUTPUT: respond with ONLY the Python script in a single fenced code block.`

func parseTestCases(raw string, results []Result) (*Artifact, error) {
	body := stripFences(raw)

	var cases []TestCase
	if err := json.Unmarshal([]byte(body), &cases); err != nil {
		// Some models return a single object instead of an array.
		var single TestCase
		if err2 := json.Unmarshal([]byte(body), &single); err2 != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationParseError, err)
		}
		cases = []TestCase{single}
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: response contained no test cases", ErrGenerationParseError)
	}

	known := sourceSet(results)
	var sources []string
	seen := make(map[string]bool)
	for _, tc := range cases {
		src := citedSource(tc.GroundedIn)
		if src == "" {
			return nil, fmt.Errorf("%w: test case %q has no grounded_in source", ErrUngroundedClaim, tc.TestID)
		}
		if !known[src] {
			return nil, fmt.Errorf("%w: test case %q cites %q", ErrUngroundedClaim, tc.TestID, src)
		}
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}

	return &Artifact{TestCases: cases, Sources: sources}, nil
}

func parseScript(raw string, results []Result) (*Artifact, error) {
	script := extractCodeBlock(raw)
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("%w: response contained no script", ErrGenerationParseError)
	}

	sources := make([]string, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		if !seen[r.Chunk.Source] {
			seen[r.Chunk.Source] = true
			sources = append(sources, r.Chunk.Source)
		}
	}
	return &Artifact{Script: script, Sources: sources}, nil
}

func sourceSet(results []Result) map[string]bool {
	set := make(map[string]bool, len(results))
	for _, r := range results {
		set[r.Chunk.Source] = true
	}
	return set
}

// citedSource extracts the source filename from a grounded_in value like
// "product_specs.md - Section 3.1".
func citedSource(groundedIn string) string {
	s := strings.TrimSpace(groundedIn)
	for _, sep := range []string{" - ", " — ", " – "} {
		if i := strings.Index(s, sep); i >= 0 {
			s = s[:i]
			break
		}
	}
	return strings.TrimSpace(s)
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractCodeBlock returns the contents of the first fenced code block, or
// the whole response when no fence is present.
func extractCodeBlock(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return strings.TrimSpace(s)
	}
	rest := s[start+3:]
	// Skip the language tag on the fence line.
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[i+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
