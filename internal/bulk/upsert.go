package bulk

import (
	"context"
	"fmt"
)

// DefaultChunkSize is the fixed number of records per upsert chunk
const DefaultChunkSize = 1000

// ChunkResult holds per-chunk diagnostics
type ChunkResult struct {
	Chunk     int `json:"chunk"`
	Records   int `json:"records"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Processed int `json:"processed"`
}

// UpsertSummary aggregates the results of all committed chunks
type UpsertSummary struct {
	TotalInserted  int           `json:"totalInserted"`
	TotalUpdated   int           `json:"totalUpdated"`
	TotalProcessed int           `json:"totalProcessed"`
	Chunks         []ChunkResult `json:"chunks"`
}

// UpsertFunc applies one chunk covering input indices [start, end) and
// reports how many records it inserted vs updated.
type UpsertFunc func(ctx context.Context, chunk, start, end int) (inserted, updated int, err error)

// UpsertInChunks partitions total records into strictly sequential chunks of
// the given size and applies fn to each in order, each chunk awaited before
// the next begins. A chunk failure aborts the remaining chunks; chunks
// already committed stay committed. The returned error names the failing
// chunk (1-based).
func UpsertInChunks(ctx context.Context, total, size int, fn UpsertFunc) (*UpsertSummary, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}

	summary := &UpsertSummary{}
	totalChunks := (total + size - 1) / size

	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		chunk := start/size + 1

		inserted, updated, err := fn(ctx, chunk, start, end)
		if err != nil {
			return summary, fmt.Errorf("bulk upsert failed at chunk %d/%d: %w", chunk, totalChunks, err)
		}

		result := ChunkResult{
			Chunk:     chunk,
			Records:   end - start,
			Inserted:  inserted,
			Updated:   updated,
			Processed: inserted + updated,
		}
		summary.Chunks = append(summary.Chunks, result)
		summary.TotalInserted += inserted
		summary.TotalUpdated += updated
		summary.TotalProcessed += result.Processed
	}

	return summary, nil
}
