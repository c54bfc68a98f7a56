package service

import (
	"context"
	"fmt"

	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/store"
)

// DashboardStats is the landing-page summary.
type DashboardStats struct {
	TotalVideos   int `json:"total_videos"`
	SeoDone       int `json:"seo_done"`
	SeoPending    int `json:"seo_pending"`
	TotalChannels int `json:"total_channels"`
}

// DashboardStats recounts against the store, never a cache copy, so the
// numbers hold even when every snapshot is stale.
func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	total, err := s.store.Count(ctx, TableVideoSeo, nil)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count videos: %w", err)
	}
	done, err := s.store.Count(ctx, TableVideoSeo,
		[]store.Filter{store.Eq("is_seo_done", true)})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count seo done: %w", err)
	}
	channels, err := s.store.Count(ctx, TableChannels, nil)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count channels: %w", err)
	}
	return DashboardStats{
		TotalVideos:   total,
		SeoDone:       done,
		SeoPending:    total - done,
		TotalChannels: channels,
	}, nil
}

const defaultRecentLimit = 5

// RecentVideos returns the most recently touched records, newest first.
func (s *Service) RecentVideos(ctx context.Context, limit int) ([]catalog.VideoSeo, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.store.Select(ctx, store.Query{
		Table: TableVideoSeo,
		Order: &store.Order{Column: "updated_at", Descending: true},
		Range: &store.Range{From: 0, To: limit - 1},
	})
	if err != nil {
		return nil, fmt.Errorf("recent videos: %w", err)
	}
	var videos []catalog.VideoSeo
	if err := store.DecodeRows(rows, &videos); err != nil {
		return nil, fmt.Errorf("decode recent videos: %w", err)
	}
	return videos, nil
}
