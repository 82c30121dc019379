package index

import (
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
)

func TestNewStatusIndex(t *testing.T) {
	index := NewStatusIndex([]string{"a.example", "b.example"})
	if index == nil {
		t.Fatal("NewStatusIndex() returned nil")
	}
	if got := index.All(); len(got) != 0 {
		t.Errorf("NewStatusIndex() should start with no outcomes, got %v", len(got))
	}
	if at, n := index.LastCycle(); !at.IsZero() || n != 0 {
		t.Errorf("LastCycle() = %v, %d, want zero", at, n)
	}
}

func TestRecordKeepsConfigurationOrder(t *testing.T) {
	index := NewStatusIndex([]string{"a.example", "b.example", "c.example"})

	index.Record(domain.Outcome{Host: "c.example", Final: domain.StateValid})
	index.Record(domain.Outcome{Host: "a.example", Final: domain.StateIssued})
	index.Record(domain.Outcome{Host: "z.example", Final: domain.StateNotApplicable})

	all := index.All()
	want := []string{"a.example", "c.example", "z.example"}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d outcomes, want %d", len(all), len(want))
	}
	for i, host := range want {
		if all[i].Host != host {
			t.Errorf("All()[%d].Host = %q, want %q", i, all[i].Host, host)
		}
	}
}

func TestRecordOverwrites(t *testing.T) {
	index := NewStatusIndex([]string{"a.example"})

	index.Record(domain.Outcome{Host: "a.example", Final: domain.StateActionFailed})
	index.Record(domain.Outcome{Host: "a.example", Final: domain.StateIssued})

	o, ok := index.Get("a.example")
	if !ok {
		t.Fatal("Get() did not find a.example")
	}
	if o.Final != domain.StateIssued {
		t.Errorf("Get().Final = %v, want %v", o.Final, domain.StateIssued)
	}
	if index.Count() != 1 {
		t.Errorf("Count() = %d, want 1", index.Count())
	}
}

func TestCompleteCycle(t *testing.T) {
	index := NewStatusIndex(nil)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	index.CompleteCycle(at)
	index.CompleteCycle(at.Add(24 * time.Hour))

	last, n := index.LastCycle()
	if n != 2 {
		t.Errorf("LastCycle() count = %d, want 2", n)
	}
	if !last.Equal(at.Add(24 * time.Hour)) {
		t.Errorf("LastCycle() = %v, want %v", last, at.Add(24*time.Hour))
	}
}

func TestConcurrentAccess(t *testing.T) {
	index := NewStatusIndex([]string{"a.example"})

	var wg sync.WaitGroup

	// Concurrent reads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = index.All()
			_, _ = index.LastCycle()
		}()
	}

	// Concurrent writes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			index.Record(domain.Outcome{Host: "a.example", Final: domain.StateValid})
			index.CompleteCycle(time.Now())
		}()
	}

	wg.Wait()

	if _, n := index.LastCycle(); n != 100 {
		t.Errorf("LastCycle() count = %d, want 100", n)
	}
	if index.Count() != 1 {
		t.Errorf("Count() = %d, want 1", index.Count())
	}
}
