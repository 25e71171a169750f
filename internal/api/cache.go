package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"apptbot/internal/slots"
)

// The slot cache is advisory only: commit paths never consult it, and every
// commit invalidates the affected date. A short TTL bounds staleness for
// calendar changes made outside this service.

func slotCacheKey(serviceID, date string) string {
	return fmt.Sprintf("slots:%s:%s", serviceID, date)
}

func (s *Server) readSlotCache(ctx context.Context, serviceID, date string) ([]slots.Slot, bool) {
	if s.rdb == nil || s.cacheTTL <= 0 || serviceID == "" || date == "" {
		return nil, false
	}
	val, err := s.rdb.Get(ctx, slotCacheKey(serviceID, date)).Result()
	if err != nil {
		return nil, false
	}
	var out []slots.Slot
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s *Server) writeSlotCache(ctx context.Context, serviceID, date string, available []slots.Slot) {
	if s.rdb == nil || s.cacheTTL <= 0 || serviceID == "" || date == "" {
		return
	}
	data, err := json.Marshal(available)
	if err != nil {
		return
	}
	_ = s.rdb.Set(ctx, slotCacheKey(serviceID, date), data, s.cacheTTL).Err()
}

func (s *Server) invalidateSlotCache(ctx context.Context, start time.Time) {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return
	}
	date := start.Format("2006-01-02")
	keys := make([]string, 0, len(s.catalog.List()))
	for _, svc := range s.catalog.List() {
		keys = append(keys, slotCacheKey(svc.ID, date))
	}
	_ = s.rdb.Del(ctx, keys...).Err()
}
