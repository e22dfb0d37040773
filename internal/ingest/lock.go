package ingest

import (
	"hash/fnv"
	"sync"
)

// keyedMutex is a fixed arena of mutexes indexed by key hash. It
// serializes read-modify-write sections per fingerprint or asset key
// without a global lock; unrelated ingestions proceed in parallel.
type keyedMutex struct {
	shards [128]sync.Mutex
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &k.shards[h.Sum32()%uint32(len(k.shards))]
	mu.Lock()
	return mu
}
