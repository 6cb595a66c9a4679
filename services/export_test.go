package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"qa-agent/internal/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTestCases() []rag.TestCase {
	return []rag.TestCase{
		{
			TestID:         "TC-001",
			Feature:        "Discount Code",
			TestScenario:   "Apply a valid discount code",
			TestType:       "positive",
			Preconditions:  []string{"Cart contains at least one item"},
			TestSteps:      []string{"Enter SAVE15", "Click Apply"},
			ExpectedResult: "Order total is reduced by 15%",
			GroundedIn:     "checkout.md",
			Priority:       "high",
			TestData:       map[string]any{"code": "SAVE15"},
		},
		{
			TestID:         "TC-002",
			Feature:        "Discount Code",
			TestScenario:   "Reject an expired discount code",
			TestType:       "negative",
			TestSteps:      []string{"Enter EXPIRED", "Click Apply"},
			ExpectedResult: "An error message is shown",
			GroundedIn:     "checkout.md",
			Priority:       "medium",
		},
	}
}

func TestExportService_JSON(t *testing.T) {
	es := NewExportService()

	result, err := es.ExportTestCases(sampleTestCases(), "json")
	require.NoError(t, err)

	assert.Equal(t, "application/json", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "test_cases_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".json"))

	var decoded []rag.TestCase
	require.NoError(t, json.Unmarshal(result.Data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "TC-001", decoded[0].TestID)
	assert.Equal(t, "negative", decoded[1].TestType)
}

func TestExportService_Excel(t *testing.T) {
	es := NewExportService()

	result, err := es.ExportTestCases(sampleTestCases(), "excel")
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Test Cases")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per test case")

	assert.Equal(t, "Test ID", rows[0][0])
	assert.Equal(t, "TC-001", rows[1][0])
	assert.Equal(t, "1. Enter SAVE15\n2. Click Apply", rows[1][5])
	assert.Contains(t, rows[1][9], "SAVE15")
	assert.Equal(t, "TC-002", rows[2][0])
}

func TestExportService_UnsupportedFormat(t *testing.T) {
	es := NewExportService()
	_, err := es.ExportTestCases(sampleTestCases(), "csv")
	assert.ErrorIs(t, err, rag.ErrInvalidArgument)
}
