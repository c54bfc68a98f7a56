package cache

import (
	"encoding/json"
	"time"

	"github.com/calermo/seo-manager/internal/catalog"
)

// Namespace keys partition snapshots: one global copy of the whole catalog
// plus one copy per channel. The version suffix invalidates old payloads
// when the record shape changes.
const NamespaceAll = "all_videos_cache_v5"

const channelNamespacePrefix = "channel_videos_"

func NamespaceChannel(channelID string) string {
	return channelNamespacePrefix + channelID
}

// Snapshot is a point-in-time copy of a collection plus its fetch timestamp.
// Records are unique by ID and ordered by created_at descending.
type Snapshot struct {
	Videos    []catalog.VideoSeo `json:"videos"`
	FetchedAt time.Time          `json:"fetched_at"`
}

func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Fresh reports whether the snapshot is still inside its time-to-live.
// The boundary is strict: age == ttl is stale.
func (s Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.FetchedAt) < ttl
}

// IndexOf returns the position of the record with the given id, or -1.
func (s Snapshot) IndexOf(id string) int {
	for i := range s.Videos {
		if s.Videos[i].ID == id {
			return i
		}
	}
	return -1
}
