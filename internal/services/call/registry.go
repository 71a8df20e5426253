package call

import (
	"context"
	"sync"
	"time"

	"github.com/heera-08/voice-ai/pkg/logger"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// Registry is the single source of truth for in-flight calls, keyed by the
// provider-assigned CallUUID. Webhook handlers run concurrently, so all
// access goes through the lock.
type Registry struct {
	mutex   sync.RWMutex
	records map[string]*CallRecord
}

// NewRegistry creates an empty call registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*CallRecord),
	}
}

// Put inserts or overwrites the record for its CallUUID. Providers may
// redeliver the answer webhook; the overwrite is deliberate, not an error.
func (r *Registry) Put(record *CallRecord) {
	r.mutex.Lock()
	r.records[record.CallUUID] = record
	r.mutex.Unlock()
}

// Get returns a copy of the record for the given CallUUID, if present.
func (r *Registry) Get(callUUID string) (CallRecord, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	record, ok := r.records[callUUID]
	if !ok {
		return CallRecord{}, false
	}
	return *record, true
}

// Remove deletes the record if present and reports whether one existed.
// Removing an absent key is a no-op: hangup webhooks can be redelivered or
// arrive for calls this process never saw answered.
func (r *Registry) Remove(callUUID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	_, existed := r.records[callUUID]
	delete(r.records, callUUID)
	return existed
}

// Count returns the number of active calls.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.records)
}

// ListIDs returns the CallUUIDs of all active calls.
func (r *Registry) ListIDs() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns copies of all active records for status reporting.
func (r *Registry) Snapshot() []CallRecord {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([]CallRecord, 0, len(r.records))
	for _, record := range r.records {
		var cp CallRecord
		if err := copier.Copy(&cp, record); err != nil {
			cp = *record
		}
		out = append(out, cp)
	}
	return out
}

// StartReaper runs a background janitor that evicts records older than ttl.
// A record normally leaves the registry on the hangup webhook; when that
// webhook is lost (provider outage, network partition) the record would
// otherwise live forever. onReap, if non-nil, is called for each eviction
// after the record has been removed.
func (r *Registry) StartReaper(ctx context.Context, ttl time.Duration, onReap func(CallRecord)) {
	if ttl <= 0 {
		return
	}

	interval := ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, record := range r.expire(ttl) {
					logger.Base().Warn("Evicting orphaned call record, hangup webhook never arrived",
						zap.String("call_uuid", record.CallUUID),
						zap.Time("answered_at", record.AnsweredAt))
					if onReap != nil {
						onReap(record)
					}
				}
			}
		}
	}()
}

func (r *Registry) expire(ttl time.Duration) []CallRecord {
	cutoff := time.Now().Add(-ttl)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	var expired []CallRecord
	for id, record := range r.records {
		if record.AnsweredAt.Before(cutoff) {
			expired = append(expired, *record)
			delete(r.records, id)
		}
	}
	return expired
}
