package dto

// IngestProgressMessage travels over the in-process event bus while an
// ingestion batch runs. The consumer turns it into logs and lifecycle
// events.
type IngestProgressMessage struct {
	JobID      string `json:"job_id,omitempty"`
	Domain     string `json:"domain"`
	Filename   string `json:"filename"`
	Status     string `json:"status"` // "indexed" | "error" | "deleted"
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
	Processed  int    `json:"processed,omitempty"`
	Total      int    `json:"total,omitempty"`
}
