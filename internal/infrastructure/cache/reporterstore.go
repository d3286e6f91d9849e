package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	reporterSeenPrefix = "hypervisor:reporter:"
	reporterSeenTTL    = 7 * 24 * time.Hour
)

// ReporterStore tracks the last check-in time of each virt-who reporter
// per owner. Entries age out after a week of silence.
type ReporterStore struct {
	client *redis.Client
}

// NewReporterStore creates a new ReporterStore instance
func NewReporterStore(client *redis.Client) *ReporterStore {
	return &ReporterStore{client: client}
}

// Touch records that the reporter checked in at the given time
func (s *ReporterStore) Touch(ctx context.Context, ownerKey, reporterID string, at time.Time) error {
	key := reporterSeenPrefix + ownerKey + ":" + reporterID
	if err := s.client.Set(ctx, key, at.UTC().Format(time.RFC3339), reporterSeenTTL).Err(); err != nil {
		return fmt.Errorf("failed to record reporter check-in: %w", err)
	}
	return nil
}

// LastSeen returns the reporter's last recorded check-in time, and whether
// one was found.
func (s *ReporterStore) LastSeen(ctx context.Context, ownerKey, reporterID string) (time.Time, bool, error) {
	key := reporterSeenPrefix + ownerKey + ":" + reporterID
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get reporter check-in: %w", err)
	}
	at, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid reporter check-in timestamp: %w", err)
	}
	return at, true, nil
}
