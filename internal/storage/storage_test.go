package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pairRouter/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	sink := NewJsonlStorage(path)

	require.NoError(t, sink.PutEventBatch(context.Background(), []model.Event{
		{Seq: 1, Timestamp: 10, Address: "0x01", EventName: model.EventSync, Decoded: model.SyncEventData{Reserve0: "1", Reserve1: "2"}},
	}))
	require.NoError(t, sink.PutEventBatch(context.Background(), nil))
	require.NoError(t, sink.PutEventBatch(context.Background(), []model.Event{
		{Seq: 2, Timestamp: 11, Address: "0x01", EventName: model.EventSwap, Decoded: model.SwapEventData{Amount0In: "5"}},
	}))

	records, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, uint64(2), records[1].Seq)

	var swap model.SwapEventData
	require.NoError(t, json.Unmarshal(records[1].Decoded, &swap))
	require.Equal(t, "5", swap.Amount0In)
}

func TestJsonlStorageReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink := NewJsonlStorage(path)
	require.NoError(t, sink.PutEventBatch(context.Background(), []model.Event{{Seq: 1, EventName: model.EventSync}}))

	require.NoError(t, sink.Reset())
	records, err := ReadEvents(path)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.json")
	file := NewSnapshotFile(path)

	_, ok, err := file.Load()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, file.Save(Snapshot{
		Timestamp: 42,
		Pools:     []model.PoolSnapshot{{Address: "0x01", Reserve0: "100", Reserve1: "200", Stable: true}},
	}))
	snap, ok, err := file.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), snap.Timestamp)
	require.Equal(t, "200", snap.Pools[0].Reserve1)
	require.NotEmpty(t, snap.UpdatedAt)
}
