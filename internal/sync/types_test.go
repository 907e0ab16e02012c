package sync

import "testing"

func TestGroupByTypePreservesOrderWithinType(t *testing.T) {
	// Given a mixed batch with interleaved types
	batch := []Change{
		{EntityType: "transaction", LocalID: "t1"},
		{EntityType: "account", LocalID: "a1"},
		{EntityType: "transaction", LocalID: "t2"},
		{EntityType: "book", LocalID: "b1"},
		{EntityType: "transaction", LocalID: "t3"},
	}

	// When the batch is grouped
	grouped := GroupByType(batch)

	// Then each bucket keeps the client's submission order
	if len(grouped) != 3 {
		t.Fatalf("got %d buckets, want 3", len(grouped))
	}
	txs := grouped["transaction"]
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if txs[i].LocalID != want {
			t.Errorf("transaction[%d].LocalID = %q, want %q", i, txs[i].LocalID, want)
		}
	}
}

func TestGroupByTypeEmptyBatch(t *testing.T) {
	grouped := GroupByType(nil)
	if len(grouped) != 0 {
		t.Errorf("got %d buckets for empty batch, want 0", len(grouped))
	}
}
