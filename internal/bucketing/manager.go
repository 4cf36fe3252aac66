package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"hfl-auth/internal/config"
)

// Manager assigns stable partition buckets to phone numbers so that wide
// rows in the durable store spread across the cluster, and time buckets for
// rate-limit windows.
type Manager struct {
	phoneBuckets int
	hasherPool   sync.Pool
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		phoneBuckets: cfg.Bucketing.PhoneBuckets,
	}

	// Pool of hash functions to avoid per-call allocation
	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return m
}

// PhoneBucket returns a consistent bucket in [0, phoneBuckets) for a phone.
func (m *Manager) PhoneBucket(phone string) int {
	return int(m.hash(phone) % uint64(m.phoneBuckets))
}

// TimeBucket aligns the given instant to the start of its window, for
// rate-limit counter keys.
func (m *Manager) TimeBucket(at time.Time, window time.Duration) int64 {
	w := int64(window.Seconds())
	if w <= 0 {
		w = 1
	}
	return at.Unix() / w * w
}

func (m *Manager) PhoneBuckets() int {
	return m.phoneBuckets
}

func (m *Manager) hash(key string) uint64 {
	hasher := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
