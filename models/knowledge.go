package models

import (
	"time"
)

// KBChunk is the persisted form of one index entry in the kb_chunks
// collection.
type KBChunk struct {
	ChunkID  string    `bson:"chunk_id" json:"chunk_id"`
	Source   string    `bson:"source" json:"source"`
	Position int       `bson:"position" json:"position"`
	Index    int       `bson:"index" json:"index"`
	Start    int       `bson:"start" json:"start"`
	End      int       `bson:"end" json:"end"`
	Text     string    `bson:"text" json:"text"`
	Vector   []float32 `bson:"vector" json:"-"`
	SavedAt  time.Time `bson:"saved_at" json:"saved_at"`
}

// UploadResponse is returned after a successful document upload
type UploadResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Files     []string `json:"files"`
	FilePaths []string `json:"file_paths"`
}

// BuildKnowledgeBaseRequest is the body of POST /api/knowledge-base/build
type BuildKnowledgeBaseRequest struct {
	FilePaths     []string `json:"file_paths,omitempty"`
	ClearExisting bool     `json:"clear_existing"`
	Async         bool     `json:"async"`
}

// BuildKnowledgeBaseResponse reports the outcome of a synchronous build
type BuildKnowledgeBaseResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	FilesProcessed int    `json:"files_processed"`
	ChunksCreated  int    `json:"chunks_created"`
	DocumentsAdded int    `json:"documents_added"`
	NumDocuments   int    `json:"num_documents"`
}

// AsyncBuildResponse is returned with 202 when a build is enqueued
type AsyncBuildResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	BuildID string `json:"build_id"`
}

// KnowledgeBaseStats describes the current state of the index
type KnowledgeBaseStats struct {
	NumDocuments int `json:"num_documents"`
	NumChunks    int `json:"num_chunks"`
	Dimension    int `json:"dimension"`
}

// KnowledgeBaseStatsResponse is the body of GET /api/knowledge-base/stats
type KnowledgeBaseStatsResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Stats   KnowledgeBaseStats `json:"stats"`
}

// StatusResponse is a generic success/message envelope
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthCheckResponse is the body of GET /health
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	AppName   string            `json:"app_name"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
