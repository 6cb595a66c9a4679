package models

import (
	"qa-agent/internal/rag"
)

// GenerateTestCasesRequest is the body of POST /api/test-cases/generate
type GenerateTestCasesRequest struct {
	Query            string `json:"query" binding:"required,min=3"`
	TopK             int    `json:"top_k" binding:"omitempty,gte=1,lte=20"`
	IncludePositive  *bool  `json:"include_positive,omitempty"`
	IncludeNegative  *bool  `json:"include_negative,omitempty"`
	IncludeEdgeCases *bool  `json:"include_edge_cases,omitempty"`
}

// TestCaseResponse carries generated test cases and their sources
type TestCaseResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	TestCases      []rag.TestCase `json:"test_cases"`
	Sources        []string       `json:"sources,omitempty"`
	Query          string         `json:"query,omitempty"`
	GenerationTime float64        `json:"generation_time,omitempty"`
}

// GenerateScriptRequest is the body of POST /api/scripts/generate
type GenerateScriptRequest struct {
	TestCase    rag.TestCase `json:"test_case" binding:"required"`
	HTMLContent string       `json:"html_content,omitempty"`
	TopK        int          `json:"top_k" binding:"omitempty,gte=1,lte=20"`
	SaveToFile  bool         `json:"save_to_file"`
}

// ScriptResponse carries a generated Selenium script
type ScriptResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	Script         string   `json:"script,omitempty"`
	TestID         string   `json:"test_id,omitempty"`
	Feature        string   `json:"feature,omitempty"`
	FilePath       string   `json:"file_path,omitempty"`
	GenerationTime float64  `json:"generation_time,omitempty"`
	Sources        []string `json:"sources,omitempty"`
}

// ExportTestCasesRequest is the body of POST /api/test-cases/export
type ExportTestCasesRequest struct {
	TestCases []rag.TestCase `json:"test_cases" binding:"required,min=1"`
	Format    string         `json:"format" binding:"required,oneof=json excel"`
}
