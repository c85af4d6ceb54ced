package finance

import (
	"fmt"
	"sync"
)

// keyedMutex hands out one mutex per key. Entries are never freed; the key
// space is bounded by the number of pharmacies and periods.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func pharmacyKey(id PharmacyID) string {
	return fmt.Sprintf("pharmacy:%d", id)
}

func metricsKey(pharmacyID PharmacyID, periodID PeriodID, basis Basis) string {
	return fmt.Sprintf("metrics:%d:%d:%s", pharmacyID, periodID, basis)
}
