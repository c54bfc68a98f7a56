package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calermo/seo-manager/internal/actions"
	"github.com/calermo/seo-manager/internal/bus"
	"github.com/calermo/seo-manager/internal/cache"
	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/fetch"
	"github.com/calermo/seo-manager/internal/store"
	"github.com/calermo/seo-manager/pkg/log"
)

// LoadVideos returns the full catalog, serving the cached snapshot when it
// is still fresh and refreshing through the batch fetcher otherwise.
// hardRefresh deliberately bypasses the freshness rule (user-initiated
// reload). Concurrent refreshes of the same namespace collapse into one.
func (s *Service) LoadVideos(ctx context.Context, hardRefresh bool, onProgress fetch.ProgressFunc) (cache.Snapshot, error) {
	return s.loadNamespace(ctx, cache.NamespaceAll, nil, hardRefresh, onProgress)
}

// LoadChannelVideos returns one channel's records, with the same cache
// rules under the channel's own namespace and TTL class.
func (s *Service) LoadChannelVideos(ctx context.Context, channelID string, hardRefresh bool, onProgress fetch.ProgressFunc) (cache.Snapshot, error) {
	filters := []store.Filter{store.Eq("channel_id", channelID)}
	return s.loadNamespace(ctx, cache.NamespaceChannel(channelID), filters, hardRefresh, onProgress)
}

func (s *Service) loadNamespace(ctx context.Context, namespace string, filters []store.Filter, hardRefresh bool, onProgress fetch.ProgressFunc) (cache.Snapshot, error) {
	if !hardRefresh {
		if snap, ok := s.cache.Get(ctx, namespace); ok && s.cache.Fresh(namespace, snap) {
			log.Debug("Serving %s from cache (%d records)", namespace, len(snap.Videos))
			return snap, nil
		}
	}

	result, err, _ := s.loadGroup.Do(namespace, func() (any, error) {
		snap, err := s.fetcher.FetchAll(ctx, filters, videoListColumns, onProgress)
		if err != nil {
			return cache.Snapshot{}, err
		}
		// A fetch that outlived its caller is not applied anywhere.
		if ctx.Err() != nil {
			return cache.Snapshot{}, ctx.Err()
		}
		s.cache.Put(ctx, namespace, snap)
		// 100% only after the snapshot is stored.
		if onProgress != nil {
			onProgress(fetch.Progress{Loaded: len(snap.Videos), Total: len(snap.Videos), Percent: 100})
		}
		log.Info("Loaded %d records into %s", len(snap.Videos), namespace)
		return snap, nil
	})
	if err != nil {
		return cache.Snapshot{}, err
	}
	return result.(cache.Snapshot), nil
}

// GetVideo fetches a single record straight from the store (detail views
// always show server truth).
func (s *Service) GetVideo(ctx context.Context, id string) (catalog.VideoSeo, error) {
	rows, err := s.store.Select(ctx, store.Query{
		Table:   TableVideoSeo,
		Filters: []store.Filter{store.Eq("id", id)},
	})
	if err != nil {
		return catalog.VideoSeo{}, fmt.Errorf("get video %s: %w", id, err)
	}
	if len(rows) == 0 {
		return catalog.VideoSeo{}, NewError(ErrNotFound, fmt.Sprintf("video %s not found", id))
	}
	var video catalog.VideoSeo
	if err := store.DecodeRow(rows[0], &video); err != nil {
		return catalog.VideoSeo{}, fmt.Errorf("decode video %s: %w", id, err)
	}
	return video, nil
}

// ToggleSeoDone flips a record's status optimistically and queues the store
// write. When flipping to done the working identity is stamped as
// worked_by. Rapid re-toggles are intentionally not coalesced: each one
// flips from the then-current local value and runs as its own queued write.
func (s *Service) ToggleSeoDone(ctx context.Context, video catalog.VideoSeo) error {
	member, err := s.authorizeWrite(ctx)
	if err != nil {
		return err
	}

	s.mutator.Track(video)
	current := video
	if state, ok := s.mutator.State(video.ID); ok {
		current = state.Value
	}
	desired := !current.IsSeoDone

	patch := store.Row{"is_seo_done": desired}
	if desired && member.Name != "" {
		patch["worked_by"] = member.Name
	}

	message := "SEO marked as not done"
	if desired {
		message = "SEO marked as done"
	}

	s.mutator.Apply(video.ID,
		func(c catalog.VideoSeo) catalog.VideoSeo {
			c.IsSeoDone = desired
			if desired && member.Name != "" {
				c.WorkedBy = member.Name
			}
			return c
		},
		func(ctx context.Context) (catalog.VideoSeo, error) {
			return s.updateVideo(ctx, video.ID, patch)
		},
		actions.PendingAction{
			SuccessMessage: message,
			ErrorMessage:   "Failed to update SEO status",
		},
	)
	return nil
}

// AssignVideos assigns a batch of records to a team member as one queued
// background write; every confirmed row is reconciled and broadcast.
func (s *Service) AssignVideos(ctx context.Context, videoIDs []string, memberName string) error {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return err
	}
	if len(videoIDs) == 0 {
		return fmt.Errorf("no videos selected")
	}
	return s.enqueueBulkUpdate(videoIDs,
		store.Row{"assigned_to": memberName},
		fmt.Sprintf("Assigned %d video(s) to %s", len(videoIDs), memberName),
		"Failed to assign videos")
}

// UnassignVideos clears the assignment on a batch of records.
func (s *Service) UnassignVideos(ctx context.Context, videoIDs []string) error {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return err
	}
	if len(videoIDs) == 0 {
		return fmt.Errorf("no videos selected")
	}
	return s.enqueueBulkUpdate(videoIDs,
		store.Row{"assigned_to": nil},
		fmt.Sprintf("Unassigned %d video(s)", len(videoIDs)),
		"Failed to unassign videos")
}

func (s *Service) enqueueBulkUpdate(videoIDs []string, patch store.Row, successMessage, errorMessage string) error {
	s.queue.Enqueue(actions.PendingAction{
		Op: func(ctx context.Context) (any, error) {
			rows, err := s.store.Update(ctx, TableVideoSeo,
				[]store.Filter{store.In("id", videoIDs)}, patch, videoListColumns)
			if err != nil {
				return nil, err
			}
			var updated []catalog.VideoSeo
			if err := store.DecodeRows(rows, &updated); err != nil {
				return nil, err
			}
			return updated, nil
		},
		OnSuccess: func(result any) {
			updated, _ := result.([]catalog.VideoSeo)
			for _, video := range updated {
				s.reconciler.Reconcile(context.Background(), video)
				s.broadcast.Publish(bus.TopicVideoUpdated, video)
			}
		},
		SuccessMessage: successMessage,
		ErrorMessage:   errorMessage,
	})
	return nil
}

func (s *Service) updateVideo(ctx context.Context, id string, patch store.Row) (catalog.VideoSeo, error) {
	rows, err := s.store.Update(ctx, TableVideoSeo,
		[]store.Filter{store.Eq("id", id)}, patch, nil)
	if err != nil {
		return catalog.VideoSeo{}, err
	}
	if len(rows) == 0 {
		return catalog.VideoSeo{}, NewError(ErrNotFound, fmt.Sprintf("video %s not found", id))
	}
	var video catalog.VideoSeo
	if err := store.DecodeRow(rows[0], &video); err != nil {
		return catalog.VideoSeo{}, err
	}
	return video, nil
}

type CreateVideoInput struct {
	ChannelID   string
	VideoID     string
	Title       string
	PublishedAt *time.Time
}

// CreateVideo inserts a record plus its v0 SEO version and a default task.
// The affected namespaces are invalidated: new records only ever enter a
// cache copy through a full fetch.
func (s *Service) CreateVideo(ctx context.Context, input CreateVideoInput) (catalog.VideoSeo, error) {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return catalog.VideoSeo{}, err
	}
	if input.VideoID == "" || input.Title == "" {
		return catalog.VideoSeo{}, NewError(ErrValidation, "video id and title are required")
	}

	// Duplicate check first so no partial rows are written.
	existing, err := s.store.Select(ctx, store.Query{
		Table:   TableVideoSeo,
		Columns: []string{"id"},
		Filters: []store.Filter{store.Eq("video_id", input.VideoID)},
	})
	if err != nil {
		return catalog.VideoSeo{}, fmt.Errorf("check duplicate video: %w", err)
	}
	if len(existing) > 0 {
		return catalog.VideoSeo{}, NewError(ErrDuplicate,
			fmt.Sprintf("duplicate video id %s", input.VideoID))
	}

	row := store.Row{
		"id":          uuid.NewString(),
		"channel_id":  input.ChannelID,
		"video_id":    input.VideoID,
		"old_title":   input.Title,
		"is_seo_done": false,
		"created_at":  s.clock().UTC(),
	}
	if input.PublishedAt != nil {
		row["published_at"] = input.PublishedAt.UTC()
	}

	inserted, err := s.store.Insert(ctx, TableVideoSeo, row, nil)
	if err != nil {
		return catalog.VideoSeo{}, fmt.Errorf("insert video: %w", err)
	}
	var video catalog.VideoSeo
	if err := store.DecodeRow(inserted, &video); err != nil {
		return catalog.VideoSeo{}, fmt.Errorf("decode inserted video: %w", err)
	}

	// v0 SEO version and the default task ride along; their failures do not
	// undo the video row, they are logged and surfaced by the caller.
	if _, err := s.store.Insert(ctx, TableSeoVersions, store.Row{
		"id":             uuid.NewString(),
		"video_id":       video.ID,
		"title":          input.Title,
		"version_number": 0,
		"is_active":      true,
	}, nil); err != nil {
		log.Error("Creating v0 SEO version for %s failed: %v", video.ID, err)
	}
	if _, err := s.store.Insert(ctx, TableTasks, store.Row{
		"id":       uuid.NewString(),
		"video_id": video.ID,
		"status":   string(catalog.TaskPending),
	}, nil); err != nil {
		log.Error("Creating default task for %s failed: %v", video.ID, err)
	}

	s.cache.Invalidate(ctx, cache.NamespaceAll)
	s.cache.Invalidate(ctx, cache.NamespaceChannel(video.ChannelID))
	return video, nil
}

// DeleteVideo removes a record and drops every namespace that could hold
// it; reconciliation can patch records but never remove them.
func (s *Service) DeleteVideo(ctx context.Context, id string) error {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return err
	}
	video, err := s.GetVideo(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, TableVideoSeo, []store.Filter{store.Eq("id", id)}); err != nil {
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	s.cache.Invalidate(ctx, cache.NamespaceAll)
	s.cache.Invalidate(ctx, cache.NamespaceChannel(video.ChannelID))
	return nil
}
