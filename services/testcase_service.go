package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qa-agent/internal/logger"
	"qa-agent/internal/rag"
	"qa-agent/internal/telemetry"
	"qa-agent/models"
)

const defaultTopK = 5

// allFeatureQueries drives GenerateAll: one generation pass per feature
// area of the documented checkout flow.
var allFeatureQueries = []string{
	"Generate test cases for discount code functionality",
	"Generate test cases for form validation (name, email, address)",
	"Generate test cases for shopping cart operations (add, remove, modify quantity)",
	"Generate test cases for shipping method selection",
	"Generate test cases for payment method selection",
	"Generate test cases for order submission and checkout flow",
}

// TestCaseService produces grounded test cases from a natural language
// query via the retrieval pipeline. topK is the retrieval depth used
// when a request does not name its own.
type TestCaseService struct {
	retriever *rag.Retriever
	generator *rag.Generator
	metrics   *telemetry.Metrics
	topK      int
}

func NewTestCaseService(retriever *rag.Retriever, generator *rag.Generator, metrics *telemetry.Metrics, topK int) *TestCaseService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &TestCaseService{
		retriever: retriever,
		generator: generator,
		metrics:   metrics,
		topK:      topK,
	}
}

// GenerateTestCases retrieves the top-k chunks for the query and asks
// the generator for test cases of the requested types.
func (ts *TestCaseService) GenerateTestCases(ctx context.Context, req *models.GenerateTestCasesRequest) (*models.TestCaseResponse, error) {
	start := time.Now()

	topK := req.TopK
	if topK <= 0 {
		topK = ts.topK
	}

	logger.Info("Generating test cases", "query", req.Query, "top_k", topK)

	results, err := ts.retriever.Retrieve(ctx, req.Query, topK)
	if err != nil {
		return nil, err
	}

	instruction := buildTestCaseInstruction(req)
	artifact, err := ts.generator.Generate(ctx, rag.TaskTestCases, instruction, results, "")
	if err != nil {
		return nil, err
	}

	if ts.metrics != nil {
		ts.metrics.RecordArtifactGenerated("test_cases")
	}

	duration := time.Since(start).Seconds()
	logger.Info("Test cases generated", "count", len(artifact.TestCases), "duration_s", duration)

	return &models.TestCaseResponse{
		Success:        true,
		Message:        fmt.Sprintf("Generated %d test cases successfully", len(artifact.TestCases)),
		TestCases:      artifact.TestCases,
		Sources:        artifact.Sources,
		Query:          req.Query,
		GenerationTime: duration,
	}, nil
}

// GenerateAll runs a generation pass for every canned feature query. A
// failed pass is logged and skipped so one bad generation does not sink
// the rest; generating nothing at all is still an error.
func (ts *TestCaseService) GenerateAll(ctx context.Context) (*models.TestCaseResponse, error) {
	start := time.Now()

	var all []rag.TestCase
	var lastErr error

	for _, query := range allFeatureQueries {
		req := &models.GenerateTestCasesRequest{Query: query, TopK: ts.topK}
		resp, err := ts.GenerateTestCases(ctx, req)
		if err != nil {
			logger.Error("Generation pass failed", "query", query, "error", err)
			lastErr = err
			continue
		}
		all = append(all, resp.TestCases...)
	}

	if len(all) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("%w: no test cases generated", rag.ErrNoGroundingContext)
	}

	return &models.TestCaseResponse{
		Success:        true,
		Message:        fmt.Sprintf("Generated %d test cases", len(all)),
		TestCases:      all,
		GenerationTime: time.Since(start).Seconds(),
	}, nil
}

func buildTestCaseInstruction(req *models.GenerateTestCasesRequest) string {
	include := func(flag *bool) bool { return flag == nil || *flag }

	var testTypes []string
	if include(req.IncludePositive) {
		testTypes = append(testTypes, "positive (happy path)")
	}
	if include(req.IncludeNegative) {
		testTypes = append(testTypes, "negative (error cases)")
	}
	if include(req.IncludeEdgeCases) {
		testTypes = append(testTypes, "edge cases (boundary conditions)")
	}
	if len(testTypes) == 0 {
		testTypes = []string{"positive (happy path)"}
	}

	return fmt.Sprintf(
		"Generate comprehensive test cases for: %s\nGenerate %s test scenarios.",
		req.Query, strings.Join(testTypes, ", "))
}
