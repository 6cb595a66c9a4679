package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"qa-agent/internal/logger"
	"qa-agent/internal/rag"
	"qa-agent/internal/telemetry"
	"qa-agent/models"
)

// ScriptService turns a structured test case into an executable
// Selenium Python script grounded in the indexed documentation.
type ScriptService struct {
	retriever *rag.Retriever
	generator *rag.Generator
	metrics   *telemetry.Metrics
	topK      int
	outputDir string
}

func NewScriptService(retriever *rag.Retriever, generator *rag.Generator, metrics *telemetry.Metrics, topK int, outputDir string) *ScriptService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ScriptService{
		retriever: retriever,
		generator: generator,
		metrics:   metrics,
		topK:      topK,
		outputDir: outputDir,
	}
}

// GenerateScript retrieves documentation for the test case's feature
// and scenario, then generates a script citing those documents plus the
// optional page HTML.
func (ss *ScriptService) GenerateScript(ctx context.Context, req *models.GenerateScriptRequest) (*models.ScriptResponse, error) {
	start := time.Now()

	topK := req.TopK
	if topK <= 0 {
		topK = ss.topK
	}

	query := strings.TrimSpace(req.TestCase.Feature + " " + req.TestCase.TestScenario)
	if query == "" {
		return nil, fmt.Errorf("%w: test case has neither feature nor scenario", rag.ErrInvalidArgument)
	}

	logger.Info("Generating Selenium script", "test_id", req.TestCase.TestID, "query", query)

	results, err := ss.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	instruction, err := buildScriptInstruction(&req.TestCase)
	if err != nil {
		return nil, err
	}

	// Cap page HTML so it cannot crowd the documentation out of the prompt
	html := truncateHTML(req.HTMLContent, maxHTMLBytes)

	artifact, err := ss.generator.Generate(ctx, rag.TaskScript, instruction, results, html)
	if err != nil {
		return nil, err
	}

	if ss.metrics != nil {
		ss.metrics.RecordArtifactGenerated("selenium_script")
	}

	resp := &models.ScriptResponse{
		Success:        true,
		Message:        "Selenium script generated successfully",
		Script:         artifact.Script,
		TestID:         req.TestCase.TestID,
		Feature:        req.TestCase.Feature,
		GenerationTime: time.Since(start).Seconds(),
		Sources:        artifact.Sources,
	}

	if req.SaveToFile {
		filePath, err := ss.saveScript(artifact.Script, req.TestCase.TestID)
		if err != nil {
			return nil, err
		}
		resp.FilePath = filePath
	}

	return resp, nil
}

const maxHTMLBytes = 5000

// truncateHTML cuts s to at most limit bytes without splitting a rune.
func truncateHTML(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// saveScript writes the script under the output directory as
// test_<id>.py with the test ID lowercased and dashes flattened.
func (ss *ScriptService) saveScript(script, testID string) (string, error) {
	if err := os.MkdirAll(ss.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create script directory: %w", err)
	}

	if testID == "" {
		testID = "unknown"
	}
	filename := fmt.Sprintf("test_%s.py", strings.ReplaceAll(strings.ToLower(testID), "-", "_"))
	filePath := filepath.Join(ss.outputDir, filename)

	if err := os.WriteFile(filePath, []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("failed to save script: %w", err)
	}

	logger.Info("Selenium script saved", "path", filePath)
	return filePath, nil
}

func buildScriptInstruction(tc *rag.TestCase) (string, error) {
	var b strings.Builder

	b.WriteString("Generate a complete, executable Selenium Python script for the following test case.\n\n")
	fmt.Fprintf(&b, "Test ID: %s\n", tc.TestID)
	fmt.Fprintf(&b, "Feature: %s\n", tc.Feature)
	fmt.Fprintf(&b, "Scenario: %s\n\n", tc.TestScenario)

	if len(tc.Preconditions) > 0 {
		b.WriteString("PRECONDITIONS:\n")
		for _, pre := range tc.Preconditions {
			fmt.Fprintf(&b, "- %s\n", pre)
		}
		b.WriteString("\n")
	}

	b.WriteString("TEST STEPS:\n")
	for i, step := range tc.TestSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	fmt.Fprintf(&b, "\nEXPECTED RESULT:\n%s\n", tc.ExpectedResult)

	if len(tc.TestData) > 0 {
		data, err := json.Marshal(tc.TestData)
		if err != nil {
			return "", fmt.Errorf("%w: unserializable test data: %v", rag.ErrInvalidArgument, err)
		}
		fmt.Fprintf(&b, "\nTEST DATA:\n%s\n", data)
	}

	return b.String(), nil
}
