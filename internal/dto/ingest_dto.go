package dto

import "time"

// FileReport is one file's outcome in an ingestion batch.
type FileReport struct {
	Filename   string `json:"filename"`
	Status     string `json:"status"` // "indexed" | "error"
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// IngestReport is the per-file result of indexFiles; partial failure keeps
// the successful entries.
type IngestReport struct {
	Domain    string       `json:"domain"`
	Files     []FileReport `json:"files"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

type DeleteFileResponse struct {
	Domain   string `json:"domain"`
	Filename string `json:"filename"`
	// Warning is set when index cleanup succeeded but the stored bytes
	// could not be removed.
	Warning string `json:"warning,omitempty"`
}

type ReindexResponse struct {
	Domain string       `json:"domain"`
	Report IngestReport `json:"report"`
}

type SourceFileResponse struct {
	Filename    string     `json:"filename"`
	SizeBytes   int64      `json:"size_bytes"`
	ContentHash string     `json:"content_hash,omitempty"`
	ChunkCount  int        `json:"chunk_count"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	IndexedAt   *time.Time `json:"indexed_at,omitempty"`
}
