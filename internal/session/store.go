// Package session keeps analysed documents in memory for the length of a
// conversation. Sessions expire after a period without access; nothing is
// persisted, so a restart forgets every session.
package session

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/feichai0017/policy-decoder/internal/models"
	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/ttlcache"
)

const (
	DefaultTimeout = 30 * time.Minute
	defaultTag     = "policy"
)

// Store is an in-memory session store with sliding expiry. All methods are
// safe for concurrent use and none of them block on I/O.
type Store struct {
	cache   *ttlcache.Cache[string, models.SessionPayload]
	timeout time.Duration
	logger  logger.Logger
}

// NewStore creates a store whose sessions expire after timeout without
// access. A non-positive timeout selects DefaultTimeout.
func NewStore(timeout time.Duration, log logger.Logger) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Store{
		timeout: timeout,
		logger:  log.Named("session"),
	}
	s.cache = ttlcache.New(timeout, ttlcache.WithOnEvict(s.evicted))
	return s
}

// Timeout returns the inactivity window.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// Put stores payload under a fresh id and returns the id.
func (s *Store) Put(payload models.SessionPayload) string {
	tag := string(payload.Category)
	if tag == "" {
		tag = defaultTag
	}

	for {
		id := newID(tag)
		if s.cache.Add(id, payload) {
			s.logger.Info("Session created",
				logger.String("sessionId", id),
				logger.Int("textBytes", len(payload.Document.Text)),
			)
			return id
		}
		if s.cache.Closed() {
			s.logger.Warn("Session store is closed", logger.String("sessionId", id))
			return id
		}
	}
}

// Get returns the session and restarts its expiry window. A miss (unknown
// or expired id) is not an error.
func (s *Store) Get(id string) (models.SessionRecord, bool) {
	item, ok := s.cache.Get(id)
	if !ok {
		return models.SessionRecord{}, false
	}
	return models.SessionRecord{
		ID:             id,
		Payload:        item.Value,
		CreatedAt:      item.CreatedAt,
		LastAccessedAt: item.LastAccessedAt,
	}, true
}

// Touch restarts the expiry window without reading the session.
func (s *Store) Touch(id string) bool {
	return s.cache.Touch(id)
}

// Delete ends a session. Deleting an unknown id reports false.
func (s *Store) Delete(id string) bool {
	return s.cache.Delete(id)
}

// IDs lists the live session ids in creation order.
func (s *Store) IDs() []string {
	entries := s.sortedEntries()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Key
	}
	return ids
}

func (s *Store) Len() int {
	return s.cache.Len()
}

// Stats describes the live sessions without refreshing any of them.
func (s *Store) Stats() models.SessionStats {
	now := time.Now()
	entries := s.sortedEntries()

	stats := models.SessionStats{
		Count:    len(entries),
		Timeout:  s.timeout,
		Sessions: make([]models.SessionIdle, len(entries)),
	}
	for i, e := range entries {
		stats.Sessions[i] = models.SessionIdle{
			ID:             e.Key,
			CreatedAt:      e.Item.CreatedAt,
			LastAccessedAt: e.Item.LastAccessedAt,
			Idle:           now.Sub(e.Item.LastAccessedAt),
		}
	}
	return stats
}

// Close drops every session and stops every timer.
func (s *Store) Close() {
	n := s.cache.Len()
	s.cache.Close()
	s.logger.Info("Session store closed", logger.Int("dropped", n))
}

func (s *Store) sortedEntries() []ttlcache.Entry[string, models.SessionPayload] {
	entries := s.cache.Entries()
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Item.CreatedAt.Equal(entries[j].Item.CreatedAt) {
			return entries[i].Item.CreatedAt.Before(entries[j].Item.CreatedAt)
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

func (s *Store) evicted(id string, _ models.SessionPayload, reason ttlcache.EvictionReason) {
	if reason == ttlcache.ReasonClosed {
		return
	}
	s.logger.Info("Session purged",
		logger.String("sessionId", id),
		logger.String("reason", reason.String()),
	)
}

func newID(tag string) string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return tag + "-" + u.String()
}
