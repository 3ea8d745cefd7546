package dto

type QueryRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty"`
	// File restricts retrieval to chunks of one source file.
	File string `json:"file,omitempty"`
}

type QuerySource struct {
	File       string  `json:"file"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

type QueryResponse struct {
	Domain   string        `json:"domain"`
	Answer   string        `json:"answer"`
	Sources  []QuerySource `json:"sources"`
	Rounds   int           `json:"rounds"`
	Degraded bool          `json:"degraded"`
}

// StreamEvent is one SSE frame of a streaming query. Type is one of
// "start", "stage", "delta", "final_result", "complete", "error".
type StreamEvent struct {
	Type    string      `json:"type"`
	Stage   string      `json:"stage,omitempty"`
	Delta   string      `json:"delta,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}
