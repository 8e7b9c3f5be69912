package fusion

import (
	"context"
	"testing"
	"time"

	"github.com/unklstewy/nexplane/pkg/coordinates"
	"github.com/unklstewy/nexplane/pkg/target"
)

func testObserver() coordinates.Observer {
	return coordinates.Observer{Location: coordinates.Geographic{Latitude: 38.879084, Longitude: -77.036531, Altitude: 18}}
}

func TestQueryReturnsAppliedReport(t *testing.T) {
	reports := make(chan target.Report, 1)
	queries := make(chan QueryRequest, 1)
	task := New(Config{Reports: reports, Queries: queries, Observer: testObserver(), SilenceTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	now := time.Now()
	reports <- target.Report{
		ID:        "A1",
		Position:  coordinates.Geographic{Latitude: 39.0, Longitude: -77.0, Altitude: 3000},
		Timestamp: now,
	}

	reply := make(chan QueryResponse, 1)
	deadline := time.After(time.Second)
	for {
		queries <- QueryRequest{ID: "A1", Reply: reply}
		select {
		case resp := <-reply:
			if resp.Found {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for fused target to appear")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQueryMissingTargetNotFound(t *testing.T) {
	reports := make(chan target.Report, 1)
	queries := make(chan QueryRequest, 1)
	task := New(Config{Reports: reports, Queries: queries, Observer: testObserver(), SilenceTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	reply := make(chan QueryResponse, 1)
	queries <- QueryRequest{ID: "nonexistent", Reply: reply}
	resp := <-reply
	if resp.Found {
		t.Fatal("expected not found for unknown target id")
	}
}

func TestSnapshotReflectsAppliedReports(t *testing.T) {
	reports := make(chan target.Report, 2)
	queries := make(chan QueryRequest, 1)
	snapshots := make(chan SnapshotRequest, 1)
	task := New(Config{Reports: reports, Queries: queries, Snapshots: snapshots, Observer: testObserver(), SilenceTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	now := time.Now()
	reports <- target.Report{ID: "A1", Position: coordinates.Geographic{Latitude: 39.0, Longitude: -77.0, Altitude: 3000}, Timestamp: now}
	reports <- target.Report{ID: "A2", Position: coordinates.Geographic{Latitude: 38.5, Longitude: -76.5, Altitude: 5000}, Timestamp: now}

	reply := make(chan []*target.Target, 1)
	deadline := time.After(time.Second)
	for {
		snapshots <- SnapshotRequest{Reply: reply}
		select {
		case all := <-reply:
			if len(all) == 2 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for both targets to appear in snapshot")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEvictStaleRemovesOldTargets(t *testing.T) {
	reports := make(chan target.Report, 1)
	snapshots := make(chan SnapshotRequest, 1)
	task := New(Config{Reports: reports, Snapshots: snapshots, Observer: testObserver(), SilenceTimeout: 10 * time.Millisecond, EvictInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	reports <- target.Report{ID: "A1", Position: coordinates.Geographic{Latitude: 39.0, Longitude: -77.0, Altitude: 3000}, Timestamp: time.Now()}

	reply := make(chan []*target.Target, 1)
	deadline := time.After(2 * time.Second)
	for {
		snapshots <- SnapshotRequest{Reply: reply}
		select {
		case all := <-reply:
			if len(all) == 0 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for stale target eviction")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
