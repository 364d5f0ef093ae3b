package bulk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertInChunksSplitsCeiling(t *testing.T) {
	var calls [][2]int
	fn := func(ctx context.Context, chunk, start, end int) (int, int, error) {
		calls = append(calls, [2]int{start, end})
		return end - start, 0, nil
	}

	summary, err := UpsertInChunks(context.Background(), 2500, 1000, fn)
	require.NoError(t, err)
	require.Equal(t, [][2]int{{0, 1000}, {1000, 2000}, {2000, 2500}}, calls)
	require.Len(t, summary.Chunks, 3)
	require.Equal(t, 2500, summary.TotalInserted)
	require.Equal(t, 2500, summary.TotalProcessed)
	require.Equal(t, 500, summary.Chunks[2].Records)
}

func TestUpsertInChunksSequentialOrder(t *testing.T) {
	var order []int
	fn := func(ctx context.Context, chunk, start, end int) (int, int, error) {
		order = append(order, chunk)
		return 0, end - start, nil
	}

	summary, err := UpsertInChunks(context.Background(), 30, 10, fn)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, order)
	require.Equal(t, 30, summary.TotalUpdated)
}

func TestUpsertInChunksFailureNamesChunkAndKeepsCommitted(t *testing.T) {
	boom := errors.New("connection reset")
	fn := func(ctx context.Context, chunk, start, end int) (int, int, error) {
		if chunk == 2 {
			return 0, 0, boom
		}
		return end - start, 0, nil
	}

	summary, err := UpsertInChunks(context.Background(), 2500, 1000, fn)
	require.Error(t, err)
	require.EqualError(t, err, "bulk upsert failed at chunk 2/3: connection reset")
	require.ErrorIs(t, err, boom)

	// the first chunk stays counted
	require.Len(t, summary.Chunks, 1)
	require.Equal(t, 1000, summary.TotalInserted)
}

func TestUpsertInChunksEmptyInput(t *testing.T) {
	fn := func(ctx context.Context, chunk, start, end int) (int, int, error) {
		t.Fatal("fn must not be called for an empty payload")
		return 0, 0, nil
	}

	summary, err := UpsertInChunks(context.Background(), 0, 1000, fn)
	require.NoError(t, err)
	require.Empty(t, summary.Chunks)
}
