package embedding

import "context"

// Provider turns text into fixed-dimension vectors. Implementations batch
// internally; callers hand over the full slice and get one vector per input
// in the same order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
