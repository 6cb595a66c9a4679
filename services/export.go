package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"qa-agent/internal/rag"

	"github.com/xuri/excelize/v2"
)

// ExportResult is a generated export ready to stream as an attachment.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ExportService renders generated test cases as downloadable files.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// ExportTestCases renders the given test cases in the requested format,
// either "json" or "excel".
func (es *ExportService) ExportTestCases(testCases []rag.TestCase, format string) (*ExportResult, error) {
	switch format {
	case "json":
		return es.exportJSON(testCases)
	case "excel":
		return es.exportExcel(testCases)
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", rag.ErrInvalidArgument, format)
	}
}

func (es *ExportService) exportJSON(testCases []rag.TestCase) (*ExportResult, error) {
	data, err := json.MarshalIndent(testCases, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test cases: %w", err)
	}

	return &ExportResult{
		Data:        data,
		ContentType: "application/json",
		Filename:    exportFilename("json"),
	}, nil
}

func (es *ExportService) exportExcel(testCases []rag.TestCase) (*ExportResult, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Test Cases"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Test ID", "Feature", "Test Scenario", "Test Type", "Preconditions",
		"Test Steps", "Expected Result", "Grounded In", "Priority", "Test Data",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, tc := range testCases {
		row := rowIdx + 2

		testData := ""
		if len(tc.TestData) > 0 {
			if data, err := json.Marshal(tc.TestData); err == nil {
				testData = string(data)
			}
		}

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), tc.TestID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), tc.Feature)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), tc.TestScenario)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), tc.TestType)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), strings.Join(tc.Preconditions, "\n"))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), numberedSteps(tc.TestSteps))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), tc.ExpectedResult)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), tc.GroundedIn)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), tc.Priority)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), testData)
	}

	for i := range headers {
		col := fmt.Sprintf("%c", 'A'+i)
		f.SetColWidth(sheetName, col, col, 25)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return &ExportResult{
		Data:        buf.Bytes(),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Filename:    exportFilename("xlsx"),
	}, nil
}

func numberedSteps(steps []string) string {
	var b strings.Builder
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return strings.TrimRight(b.String(), "\n")
}

func exportFilename(ext string) string {
	return fmt.Sprintf("test_cases_%s.%s", time.Now().Format("20060102_150405"), ext)
}
