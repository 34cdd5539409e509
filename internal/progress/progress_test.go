package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestTrackerTick(t *testing.T) {
	var buf bytes.Buffer
	tr := newTracker(&buf, "Loading", 10)
	for range 3 {
		tr.Tick()
	}
	if got := tr.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	tr.FinishSuccess()
}

func TestTrackerTickConcurrent(t *testing.T) {
	var buf bytes.Buffer
	tr := newTracker(&buf, "Loading", 100)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Tick()
		}()
	}
	wg.Wait()
	if got := tr.Count(); got != 100 {
		t.Errorf("Count() = %d, want 100", got)
	}
}

func TestSpinnerCountsWithoutTotal(t *testing.T) {
	var buf bytes.Buffer
	sp := newSpinner(&buf, "Synthesizing")
	sp.Tick()
	sp.Tick()
	if got := sp.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	sp.FinishSuccess()
}

func TestTrackerFinishError(t *testing.T) {
	var buf bytes.Buffer
	tr := newTracker(&buf, "Loading", 1)
	tr.FinishError(errors.New("boom"))
	if !strings.Contains(buf.String(), "Loading error: boom") {
		t.Errorf("missing error message in %q", buf.String())
	}
}
