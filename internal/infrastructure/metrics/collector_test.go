package metrics

import (
	"sync"
	"testing"
)

func TestCollector_RecordAndSnapshot(t *testing.T) {
	c := NewCollector()

	c.RecordRequest(OpCheckTerm)
	c.RecordRequest(OpCheckTerm)
	c.RecordRequest(OpFilterItems)
	c.RecordDenial(OpCheckTerm)
	c.RecordError(OpApplyDelta)
	c.RecordDuration(OpCheckTerm, 0.002)
	c.RecordDuration(OpCheckTerm, 0.003)

	m := c.GetOperationMetrics()

	if m.RequestCounts[OpCheckTerm] != 2 {
		t.Errorf("RequestCounts[check_term] = %d, want 2", m.RequestCounts[OpCheckTerm])
	}
	if m.RequestCounts[OpFilterItems] != 1 {
		t.Errorf("RequestCounts[filter_items] = %d, want 1", m.RequestCounts[OpFilterItems])
	}
	if m.DenialCounts[OpCheckTerm] != 1 {
		t.Errorf("DenialCounts[check_term] = %d, want 1", m.DenialCounts[OpCheckTerm])
	}
	if m.ErrorCounts[OpApplyDelta] != 1 {
		t.Errorf("ErrorCounts[apply_delta] = %d, want 1", m.ErrorCounts[OpApplyDelta])
	}
	if got := m.TotalDurationSeconds[OpCheckTerm]; got < 0.0049 || got > 0.0051 {
		t.Errorf("TotalDurationSeconds[check_term] = %f, want 0.005", got)
	}
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordRequest(OpCheckItem)
				c.RecordDuration(OpCheckItem, 0.001)
			}
		}()
	}
	wg.Wait()

	m := c.GetOperationMetrics()
	if m.RequestCounts[OpCheckItem] != 1000 {
		t.Errorf("RequestCounts[check_item] = %d, want 1000", m.RequestCounts[OpCheckItem])
	}
}
