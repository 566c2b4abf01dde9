package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestShardedStats_Initialization(t *testing.T) {
	s := newShardedStats()
	for i, shard := range s.shards {
		if shard == nil {
			t.Errorf("shard %d is nil", i)
		}
		if shard.bucket == nil {
			t.Errorf("shard %d bucket is nil", i)
		}
	}
}

func TestShardedStats_Distribution(t *testing.T) {
	s := newShardedStats()
	totalRequests := 10000

	for i := 0; i < totalRequests; i++ {
		s.record(time.Millisecond, false, "", 200)
	}

	emptyShards := 0
	var totalRecorded int64
	for _, shard := range s.shards {
		shard.mu.Lock()
		count := shard.bucket.successes + shard.bucket.failures
		shard.mu.Unlock()

		totalRecorded += count
		if count == 0 {
			emptyShards++
		}
	}

	if totalRecorded != int64(totalRequests) {
		t.Errorf("expected %d total requests recorded, got %d", totalRequests, totalRecorded)
	}
	// Round-robin placement fills every shard.
	if emptyShards > 0 {
		t.Errorf("%d shards were empty", emptyShards)
	}
}

func TestShardedStats_Aggregation(t *testing.T) {
	s := newShardedStats()

	s.shards[0].mu.Lock()
	s.shards[0].bucket.record(10*time.Millisecond, false, "", 200)
	s.shards[0].mu.Unlock()

	s.shards[1].mu.Lock()
	s.shards[1].bucket.record(20*time.Millisecond, true, "HTTP 500", 500)
	s.shards[1].mu.Unlock()

	b := s.merge()

	if got := b.successes + b.failures; got != 2 {
		t.Errorf("expected total 2, got %d", got)
	}
	if b.successes != 1 {
		t.Errorf("expected successes 1, got %d", b.successes)
	}
	if b.failures != 1 {
		t.Errorf("expected failures 1, got %d", b.failures)
	}
	if b.minLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %v", b.minLatency)
	}
	if b.maxLatency != 20*time.Millisecond {
		t.Errorf("expected max 20ms, got %v", b.maxLatency)
	}
	if b.statusCodes[500] != 1 || b.statusCodes[200] != 1 {
		t.Errorf("status codes = %v", b.statusCodes)
	}
	if b.errorsByType["HTTP 500"] != 1 {
		t.Errorf("errors = %v", b.errorsByType)
	}
	if b.hist.TotalCount() != 2 {
		t.Errorf("histogram count = %d, want 2", b.hist.TotalCount())
	}
}

func TestShardedStats_ConcurrentAccess(t *testing.T) {
	s := newShardedStats()
	var wg sync.WaitGroup
	workers := 50
	requestsPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < requestsPerWorker; j++ {
				s.record(time.Millisecond, false, "", 200)
			}
		}()
	}

	done := make(chan bool)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				s.merge()
				time.Sleep(time.Millisecond)
			}
		}
	}()

	wg.Wait()
	close(done)

	b := s.merge()
	expectedTotal := int64(workers * requestsPerWorker)
	if got := b.successes + b.failures; got != expectedTotal {
		t.Errorf("expected total %d, got %d", expectedTotal, got)
	}
}
