package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"qa-agent/internal/logger"
	"qa-agent/internal/rag"
	"qa-agent/internal/telemetry"
	"qa-agent/models"

	"github.com/google/uuid"
)

// SnapshotPersister is the persistence surface the knowledge service
// needs. *SnapshotStore implements it; tests use an in-memory fake.
type SnapshotPersister interface {
	Save(ctx context.Context, entries []rag.Entry) (time.Time, error)
	Load(ctx context.Context) ([]rag.Entry, error)
	LatestSavedAt(ctx context.Context) (time.Time, error)
	Drop(ctx context.Context) error
}

// KnowledgeService owns the in-process vector index and the build
// pipeline that fills it: parse files, chunk, embed each chunk, insert.
type KnowledgeService struct {
	index     *rag.Index
	embedder  rag.EmbeddingClient
	parser    *DocumentParser
	snapshots SnapshotPersister
	metrics   *telemetry.Metrics
	uploadDir string

	// snapMu guards snapshotAt, the persisted timestamp this process
	// last loaded or wrote. A newer persisted timestamp means another
	// process (the queue worker) built since then.
	snapMu     sync.Mutex
	snapshotAt time.Time
}

func NewKnowledgeService(
	index *rag.Index,
	embedder rag.EmbeddingClient,
	parser *DocumentParser,
	snapshots SnapshotPersister,
	metrics *telemetry.Metrics,
	uploadDir string,
) *KnowledgeService {
	return &KnowledgeService{
		index:     index,
		embedder:  embedder,
		parser:    parser,
		snapshots: snapshots,
		metrics:   metrics,
		uploadDir: uploadDir,
	}
}

// BuildKnowledgeBase parses the given files into chunks, embeds every
// chunk and inserts the batch into the index. With no file paths given,
// all files in the upload directory are used. An embedding failure
// aborts the whole build: the index never holds fabricated vectors, and
// when clearExisting is set the previous contents survive a failed
// build because embedding happens before the clear.
func (ks *KnowledgeService) BuildKnowledgeBase(ctx context.Context, filePaths []string, clearExisting bool) (*models.BuildKnowledgeBaseResponse, error) {
	start := time.Now()

	if len(filePaths) == 0 {
		var err error
		filePaths, err = ks.listUploadedFiles()
		if err != nil {
			return nil, err
		}
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("%w: no files found, upload documents first", rag.ErrInvalidArgument)
	}

	logger.Info("Building knowledge base", "files", len(filePaths), "clear_existing", clearExisting)

	filesProcessed := 0
	var chunks []rag.Chunk
	for _, filePath := range filePaths {
		fileChunks, err := ks.parser.ParseFile(filePath)
		if err != nil {
			logger.Error("Failed to parse file", "file", filePath, "error", err)
			continue
		}
		chunks = append(chunks, fileChunks...)
		filesProcessed++
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced from %d files", rag.ErrInvalidArgument, len(filePaths))
	}

	entries := make([]rag.Entry, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := ks.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			ks.recordBuild(start, "failed")
			return nil, fmt.Errorf("%w: embedding chunk %d of %s: %v", rag.ErrEmbeddingUnavailable, chunk.Index, chunk.Source, err)
		}
		entries = append(entries, rag.Entry{
			ID:     uuid.NewString(),
			Chunk:  chunk,
			Vector: vector,
		})
	}

	if clearExisting {
		ks.index.Clear()
	}

	added, err := ks.index.Insert(entries)
	if err != nil {
		ks.recordBuild(start, "failed")
		return nil, err
	}

	ks.saveSnapshot(ctx)
	ks.recordBuild(start, "success")

	logger.Info("Knowledge base built",
		"files_processed", filesProcessed,
		"chunks_created", len(chunks),
		"documents_added", added,
		"index_size", ks.index.Size(),
		"duration", time.Since(start).String())

	return &models.BuildKnowledgeBaseResponse{
		Success:        true,
		Message:        fmt.Sprintf("Indexed %d chunks from %d files", added, filesProcessed),
		FilesProcessed: filesProcessed,
		ChunksCreated:  len(chunks),
		DocumentsAdded: added,
		NumDocuments:   ks.index.Size(),
	}, nil
}

// Clear empties the index and drops the persisted snapshot.
func (ks *KnowledgeService) Clear(ctx context.Context) error {
	ks.index.Clear()

	if ks.snapshots != nil {
		if err := ks.snapshots.Drop(ctx); err != nil {
			return fmt.Errorf("index cleared but snapshot drop failed: %w", err)
		}
		ks.snapMu.Lock()
		ks.snapshotAt = time.Now().UTC()
		ks.snapMu.Unlock()
	}

	logger.Info("Knowledge base cleared")
	return nil
}

// Stats reports the current state of the index.
func (ks *KnowledgeService) Stats() models.KnowledgeBaseStats {
	entries := ks.index.Snapshot()

	sources := make(map[string]bool)
	for _, entry := range entries {
		sources[entry.Chunk.Source] = true
	}

	return models.KnowledgeBaseStats{
		NumDocuments: len(sources),
		NumChunks:    len(entries),
		Dimension:    ks.index.Dimension(),
	}
}

// LoadSnapshot restores a persisted snapshot into the index on startup.
// Nothing persisted is not an error.
func (ks *KnowledgeService) LoadSnapshot(ctx context.Context) error {
	if ks.snapshots == nil {
		return nil
	}

	ks.snapMu.Lock()
	defer ks.snapMu.Unlock()
	return ks.reloadSnapshot(ctx)
}

// SyncSnapshot reconciles the in-process index with the persisted
// snapshot. When another process wrote a newer snapshot, that snapshot
// is loaded into the index; otherwise the current index contents are
// persisted. Used by the snapshot scheduler and on shutdown so a build
// done in the queue worker becomes queryable here instead of being
// clobbered by a stale save.
func (ks *KnowledgeService) SyncSnapshot(ctx context.Context) error {
	if ks.snapshots == nil {
		return nil
	}

	ks.snapMu.Lock()
	defer ks.snapMu.Unlock()

	latest, err := ks.snapshots.LatestSavedAt(ctx)
	if err != nil {
		return err
	}
	if latest.After(ks.snapshotAt) {
		return ks.reloadSnapshot(ctx)
	}
	return ks.persistSnapshot(ctx)
}

// reloadSnapshot replaces the index contents with the persisted
// snapshot. Caller holds snapMu.
func (ks *KnowledgeService) reloadSnapshot(ctx context.Context) error {
	entries, err := ks.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	latest, err := ks.snapshots.LatestSavedAt(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 && latest.IsZero() {
		return nil
	}

	ks.index.Clear()
	if len(entries) > 0 {
		if _, err := ks.index.Insert(entries); err != nil {
			return fmt.Errorf("failed to restore snapshot: %w", err)
		}
	}
	ks.snapshotAt = latest

	logger.Info("Restored knowledge base snapshot", "chunks", len(entries), "saved_at", latest)
	return nil
}

// persistSnapshot writes the current index contents. Caller holds snapMu.
func (ks *KnowledgeService) persistSnapshot(ctx context.Context) error {
	savedAt, err := ks.snapshots.Save(ctx, ks.index.Snapshot())
	if err != nil {
		return err
	}
	ks.snapshotAt = savedAt
	return nil
}

func (ks *KnowledgeService) saveSnapshot(ctx context.Context) {
	if ks.snapshots == nil {
		return
	}
	ks.snapMu.Lock()
	defer ks.snapMu.Unlock()
	if err := ks.persistSnapshot(ctx); err != nil {
		logger.Error("Failed to persist knowledge base snapshot", "error", err)
	}
}

func (ks *KnowledgeService) recordBuild(start time.Time, status string) {
	if ks.metrics != nil {
		ks.metrics.RecordBuildDuration(time.Since(start).Seconds(), status)
	}
}

func (ks *KnowledgeService) listUploadedFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(ks.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	var paths []string
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(ks.uploadDir, entry.Name()))
	}
	return paths, nil
}
