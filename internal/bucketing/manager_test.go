package bucketing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hfl-auth/internal/config"
)

func testManager() *Manager {
	return NewManager(&config.Config{
		Bucketing: config.BucketingConfig{PhoneBuckets: 64},
	})
}

func TestPhoneBucketIsStable(t *testing.T) {
	m := testManager()

	first := m.PhoneBucket("+998901234567")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, m.PhoneBucket("+998901234567"))
	}
}

func TestPhoneBucketInRange(t *testing.T) {
	m := testManager()

	for i := 0; i < 1000; i++ {
		bucket := m.PhoneBucket(fmt.Sprintf("+9989012%05d", i))
		assert.GreaterOrEqual(t, bucket, 0)
		assert.Less(t, bucket, 64)
	}
}

func TestPhoneBucketSpreads(t *testing.T) {
	m := testManager()

	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		seen[m.PhoneBucket(fmt.Sprintf("+9989012%05d", i))] = true
	}
	// 1000 phones over 64 buckets should touch most of them.
	assert.Greater(t, len(seen), 32)
}

func TestPhoneBucketConcurrentUse(t *testing.T) {
	m := testManager()
	want := m.PhoneBucket("+998901234567")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := m.PhoneBucket("+998901234567"); got != want {
					t.Errorf("bucket changed under concurrency: got %d want %d", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestTimeBucketAlignsToWindow(t *testing.T) {
	m := testManager()

	at := time.Date(2026, 3, 14, 12, 34, 56, 0, time.UTC)
	bucket := m.TimeBucket(at, time.Minute)

	assert.Equal(t, int64(0), bucket%60)
	assert.Equal(t, bucket, m.TimeBucket(at.Add(3*time.Second), time.Minute))
	assert.NotEqual(t, bucket, m.TimeBucket(at.Add(time.Minute), time.Minute))
}
