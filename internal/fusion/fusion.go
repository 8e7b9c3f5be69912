// Package fusion implements the fusion task: the sole owner of
// the target map, reachable only through its report and query channels.
// It is the single point where ingest reports from every configured
// source (ADS-B, satellite ephemeris) are applied, and the single point
// the controller and console query for a target's current estimate.
package fusion

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unklstewy/nexplane/pkg/coordinates"
	"github.com/unklstewy/nexplane/pkg/target"
)

// DefaultEvictInterval is how often the task sweeps for stale targets.
const DefaultEvictInterval = 10 * time.Second

// QueryRequest asks the fusion task for the current Target by ID. Reply
// receives exactly one QueryResponse.
type QueryRequest struct {
	ID    string
	Reply chan<- QueryResponse
}

// QueryResponse is the fusion task's answer to a QueryRequest.
type QueryResponse struct {
	Target *target.Target
	Found  bool
}

// SnapshotRequest asks for a copy of every currently stored target, for
// console/display consumption.
type SnapshotRequest struct {
	Reply chan<- []*target.Target
}

// Task is the fusion task: it owns a target.Map and processes exactly one
// of its three inbound channels per loop iteration, so the map is never
// touched by more than one goroutine.
type Task struct {
	reports       <-chan target.Report
	queries       <-chan QueryRequest
	snapshots     <-chan SnapshotRequest
	observer      coordinates.Observer
	evictInterval time.Duration
	log           *logrus.Entry

	m *target.Map
}

// Config configures a fusion Task.
type Config struct {
	Reports        <-chan target.Report
	Queries        <-chan QueryRequest
	Snapshots      <-chan SnapshotRequest
	Observer       coordinates.Observer
	SilenceTimeout time.Duration
	EvictInterval  time.Duration
	Log            *logrus.Entry
}

// New builds a fusion Task from cfg.
func New(cfg Config) *Task {
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	evictInterval := cfg.EvictInterval
	if evictInterval <= 0 {
		evictInterval = DefaultEvictInterval
	}
	return &Task{
		reports:       cfg.Reports,
		queries:       cfg.Queries,
		snapshots:     cfg.Snapshots,
		observer:      cfg.Observer,
		evictInterval: evictInterval,
		log:           log.WithField("component", "fusion"),
		m:             target.NewMap(cfg.SilenceTimeout),
	}
}

// Run processes reports, queries, and snapshot requests until ctx is
// cancelled.
func (t *Task) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case r, ok := <-t.reports:
			if !ok {
				t.reports = nil
				continue
			}
			if !t.m.Apply(r, t.observer) {
				t.log.WithField("target_id", r.ID).Debug("dropped report")
			}

		case q := <-t.queries:
			tg := t.m.Get(q.ID)
			q.Reply <- QueryResponse{Target: tg, Found: tg != nil}

		case s := <-t.snapshots:
			s.Reply <- t.m.All()

		case now := <-ticker.C:
			t.m.EvictStale(now)
		}
	}
}
