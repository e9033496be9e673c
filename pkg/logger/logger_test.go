package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestLogCollector_DeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		Service:        "stockcharts",
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "logs",
		Publisher:      pub,
	})

	fields := map[string]interface{}{"symbol": "AAPL"}
	c.AddLog("error", "fetch failed", fields, "x.go:1")
	c.AddLog("error", "fetch failed", fields, "x.go:1")
	c.AddLog("error", "fetch failed", map[string]interface{}{"symbol": "MSFT"}, "x.go:1")
	if c.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", c.Pending())
	}
	c.Close()

	got := pub.entries()
	if len(got) != 2 {
		t.Fatalf("published %d entries, want 2", len(got))
	}
	if pub.topic != "logs" {
		t.Fatalf("topic = %q", pub.topic)
	}
	total := 0
	for _, e := range got {
		total += e.Count
		if e.Service != "stockcharts" {
			t.Fatalf("service = %q", e.Service)
		}
	}
	if total != 3 {
		t.Fatalf("total count = %d, want 3", total)
	}
}

func TestLogCollector_ThresholdFlush(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	c.AddLog("error", "a", nil, "")
	c.AddLog("error", "b", nil, "")
	if c.Pending() != 0 {
		t.Fatalf("threshold should have flushed, pending = %d", c.Pending())
	}
	c.Close()
	if n := len(pub.entries()); n != 2 {
		t.Fatalf("published %d entries", n)
	}
}

func TestLogger_ErrorReachesCollector(t *testing.T) {
	pub := &capturePublisher{}
	l, err := New(&Config{Level: "debug", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Publisher: pub})
	l.With(String("component", "test")).Error("boom", Error(errors.New("x")), Float64("price", 1.5))
	l.Info("not collected")
	l.RemoveCollector()

	got := pub.entries()
	if len(got) != 1 || got[0].Message != "boom" {
		t.Fatalf("collected %+v", got)
	}
	if got[0].Fields["price"] != 1.5 {
		t.Fatalf("fields = %v", got[0].Fields)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stderr"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
