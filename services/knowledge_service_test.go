package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"qa-agent/internal/rag"
	"qa-agent/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder produces deterministic vectors from keyword counts. The
// trailing bias component keeps every vector non-zero.
type keywordEmbedder struct {
	failAfter int // fail once this many calls have succeeded; 0 disables
	calls     int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failAfter > 0 && e.calls > e.failAfter {
		return nil, errors.New("quota exceeded")
	}

	lower := strings.ToLower(text)
	vec := []float32{0, 0, 0, 1}
	for i, kw := range []string{"discount", "shipping", "payment"} {
		vec[i] = float32(strings.Count(lower, kw))
	}
	return vec, nil
}

func newTestKnowledge(t *testing.T, emb rag.EmbeddingClient, index *rag.Index, dir string) *KnowledgeService {
	t.Helper()
	parser := NewDocumentParser(1000, 200)
	return NewKnowledgeService(index, emb, parser, nil, nil, dir)
}

// memorySnapshots is an in-memory SnapshotPersister with a strictly
// increasing fake clock, shared between services to model the API and
// worker processes writing the same store.
type memorySnapshots struct {
	entries []rag.Entry
	savedAt time.Time
	clock   time.Time
}

func (m *memorySnapshots) tick() time.Time {
	if m.clock.IsZero() {
		m.clock = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	}
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memorySnapshots) Save(_ context.Context, entries []rag.Entry) (time.Time, error) {
	m.entries = append([]rag.Entry(nil), entries...)
	m.savedAt = m.tick()
	return m.savedAt, nil
}

func (m *memorySnapshots) Load(_ context.Context) ([]rag.Entry, error) {
	return append([]rag.Entry(nil), m.entries...), nil
}

func (m *memorySnapshots) LatestSavedAt(_ context.Context) (time.Time, error) {
	return m.savedAt, nil
}

func (m *memorySnapshots) Drop(_ context.Context) error {
	m.entries = nil
	m.savedAt = time.Time{}
	return nil
}

func TestKnowledgeService_BuildFromUploadDir(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "checkout.md", "The discount code SAVE15 gives 15% off the order total.")
	writeTempFile(t, dir, "shipping.md", "Standard shipping takes 5 days, express shipping takes 1 day.")

	index := rag.NewIndex()
	ks := newTestKnowledge(t, &keywordEmbedder{}, index, dir)

	resp, err := ks.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.FilesProcessed)
	assert.Equal(t, 2, resp.ChunksCreated)
	assert.Equal(t, 2, resp.DocumentsAdded)
	assert.Equal(t, 2, index.Size())
	assert.Equal(t, 4, index.Dimension())
}

func TestKnowledgeService_BuildWithNoFiles(t *testing.T) {
	ks := newTestKnowledge(t, &keywordEmbedder{}, rag.NewIndex(), t.TempDir())

	_, err := ks.BuildKnowledgeBase(context.Background(), nil, false)
	assert.ErrorIs(t, err, rag.ErrInvalidArgument)
}

func TestKnowledgeService_EmbedFailureAbortsBuild(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "checkout.md", "Discount codes apply at checkout.")
	writeTempFile(t, dir, "payment.md", "Payment by card or PayPal.")

	index := rag.NewIndex()
	ks := newTestKnowledge(t, &keywordEmbedder{}, index, dir)
	_, err := ks.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)
	require.Equal(t, 2, index.Size())

	// Rebuild with clear_existing on the same index; the second embed
	// call fails mid-build
	failing := newTestKnowledge(t, &keywordEmbedder{failAfter: 1}, index, dir)
	_, err = failing.BuildKnowledgeBase(context.Background(), nil, true)
	assert.ErrorIs(t, err, rag.ErrEmbeddingUnavailable)

	// The previous contents survive the failed rebuild
	assert.Equal(t, 2, index.Size())
}

func TestKnowledgeService_ClearEmptiesIndex(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "checkout.md", "Discount codes apply at checkout.")

	index := rag.NewIndex()
	ks := newTestKnowledge(t, &keywordEmbedder{}, index, dir)
	_, err := ks.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)

	require.NoError(t, ks.Clear(context.Background()))
	assert.Zero(t, index.Size())
	assert.Zero(t, index.Dimension(), "dimension resets with the contents")
}

func TestKnowledgeService_Stats(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "checkout.md", "Discount codes apply at checkout.")
	writeTempFile(t, dir, "shipping.md", "Express shipping costs extra.")

	index := rag.NewIndex()
	ks := newTestKnowledge(t, &keywordEmbedder{}, index, dir)
	_, err := ks.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)

	stats := ks.Stats()
	assert.Equal(t, 2, stats.NumDocuments)
	assert.Equal(t, 2, stats.NumChunks)
	assert.Equal(t, 4, stats.Dimension)
}

// A build done in the worker process lands in the shared snapshot
// store; the API's snapshot sync must load it instead of overwriting it
// with the API's older index.
func TestKnowledgeService_SyncPicksUpWorkerBuild(t *testing.T) {
	store := &memorySnapshots{}
	parser := NewDocumentParser(1000, 200)

	apiDir := t.TempDir()
	writeTempFile(t, apiDir, "checkout.md", "The discount code SAVE15 gives 15% off the order total.")
	apiIndex := rag.NewIndex()
	api := NewKnowledgeService(apiIndex, &keywordEmbedder{}, parser, store, nil, apiDir)
	_, err := api.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)

	// The worker process builds from its own files into its own index,
	// writing the same store afterwards
	workerDir := t.TempDir()
	writeTempFile(t, workerDir, "shipping.md", "Express shipping takes 1 day.")
	worker := NewKnowledgeService(rag.NewIndex(), &keywordEmbedder{}, parser, store, nil, workerDir)
	_, err = worker.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)

	require.NoError(t, api.SyncSnapshot(context.Background()))

	// The worker's build is now queryable through the API index
	stats := api.Stats()
	assert.Equal(t, 1, stats.NumChunks)
	sources := make(map[string]bool)
	for _, e := range apiIndex.Snapshot() {
		sources[e.Chunk.Source] = true
	}
	assert.True(t, sources["shipping.md"])

	// And the persisted snapshot was not clobbered with the old index
	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "shipping.md", persisted[0].Chunk.Source)
}

func TestKnowledgeService_SyncPersistsWhenLocalIsNewest(t *testing.T) {
	store := &memorySnapshots{}
	dir := t.TempDir()
	writeTempFile(t, dir, "checkout.md", "Discount codes apply at checkout.")

	index := rag.NewIndex()
	parser := NewDocumentParser(1000, 200)
	ks := NewKnowledgeService(index, &keywordEmbedder{}, parser, store, nil, dir)
	_, err := ks.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)

	savedBefore, err := store.LatestSavedAt(context.Background())
	require.NoError(t, err)

	require.NoError(t, ks.SyncSnapshot(context.Background()))

	savedAfter, err := store.LatestSavedAt(context.Background())
	require.NoError(t, err)
	assert.True(t, savedAfter.After(savedBefore), "sync persisted the local index")

	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, persisted, index.Size())
}

func TestKnowledgeService_LoadSnapshotRestoresEntries(t *testing.T) {
	store := &memorySnapshots{}
	dir := t.TempDir()
	writeTempFile(t, dir, "checkout.md", "Discount codes apply at checkout.")

	parser := NewDocumentParser(1000, 200)
	builder := NewKnowledgeService(rag.NewIndex(), &keywordEmbedder{}, parser, store, nil, dir)
	_, err := builder.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)

	// A fresh process restores the snapshot and a sync right after
	// does not reload again
	restored := rag.NewIndex()
	ks := NewKnowledgeService(restored, &keywordEmbedder{}, parser, store, nil, dir)
	require.NoError(t, ks.LoadSnapshot(context.Background()))
	assert.Equal(t, 1, restored.Size())

	savedBefore, err := store.LatestSavedAt(context.Background())
	require.NoError(t, err)
	require.NoError(t, ks.SyncSnapshot(context.Background()))
	savedAfter, err := store.LatestSavedAt(context.Background())
	require.NoError(t, err)
	assert.True(t, savedAfter.After(savedBefore), "sync took the persist path")
	assert.Equal(t, 1, restored.Size())
}

// groundedGenClient answers test case prompts with JSON citing the first
// document labeled in the prompt.
type groundedGenClient struct {
	lastPrompt string
}

func (g *groundedGenClient) Complete(_ context.Context, prompt string) (string, error) {
	g.lastPrompt = prompt
	return `[
		{
			"test_id": "TC-001",
			"feature": "Discount Code",
			"test_scenario": "Apply a valid discount code",
			"test_type": "positive",
			"preconditions": ["Cart contains at least one item"],
			"test_steps": ["Enter SAVE15 in the discount field", "Click Apply"],
			"expected_result": "Order total is reduced by 15%",
			"grounded_in": "checkout.md - Discounts",
			"priority": "high"
		}
	]`, nil
}

// Full pipeline: upload directory to cited test cases, no fabricated
// sources along the way.
func TestKnowledgeService_BuildThenGenerateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "checkout.md", "The discount code SAVE15 gives 15% off the order total.")
	writeTempFile(t, dir, "shipping.md", "Standard shipping takes 5 days, express shipping takes 1 day.")

	emb := &keywordEmbedder{}
	index := rag.NewIndex()
	ks := newTestKnowledge(t, emb, index, dir)
	_, err := ks.BuildKnowledgeBase(context.Background(), nil, false)
	require.NoError(t, err)

	gen := &groundedGenClient{}
	svc := NewTestCaseService(rag.NewRetriever(index, emb), rag.NewGenerator(gen), nil, 0)

	resp, err := svc.GenerateTestCases(context.Background(), &models.GenerateTestCasesRequest{
		Query: "test cases for the discount code",
		TopK:  2,
	})
	require.NoError(t, err)

	require.Len(t, resp.TestCases, 1)
	assert.Equal(t, "TC-001", resp.TestCases[0].TestID)
	assert.Contains(t, resp.Sources, "checkout.md")

	// The discount document outranks shipping for a discount query
	assert.Contains(t, gen.lastPrompt, "Document 1: checkout.md")
	assert.Contains(t, gen.lastPrompt, "SAVE15")
}

func TestKnowledgeService_GenerateBeforeBuild(t *testing.T) {
	emb := &keywordEmbedder{}
	index := rag.NewIndex()
	svc := NewTestCaseService(rag.NewRetriever(index, emb), rag.NewGenerator(&groundedGenClient{}), nil, 0)

	_, err := svc.GenerateTestCases(context.Background(), &models.GenerateTestCasesRequest{
		Query: "test cases for the discount code",
	})
	assert.ErrorIs(t, err, rag.ErrNoGroundingContext)
	assert.Zero(t, emb.calls, "no provider call on an empty index")
}
