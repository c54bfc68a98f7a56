package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/calermo/seo-manager/internal/actions"
	"github.com/calermo/seo-manager/internal/bus"
	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/store"
	"github.com/calermo/seo-manager/pkg/log"
)

// SeoFieldsInput carries the editable SEO fields. Nil pointers leave the
// current value untouched.
type SeoFieldsInput struct {
	TitleV1     *string
	TitleV2     *string
	TitleV3     *string
	Description *string
	Tags        []string
}

func (in SeoFieldsInput) patch() store.Row {
	patch := store.Row{}
	if in.TitleV1 != nil {
		patch["title_v1"] = *in.TitleV1
	}
	if in.TitleV2 != nil {
		patch["title_v2"] = *in.TitleV2
	}
	if in.TitleV3 != nil {
		patch["title_v3"] = *in.TitleV3
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.Tags != nil {
		patch["tags"] = in.Tags
	}
	return patch
}

// UpdateSeoFields edits a record's SEO fields optimistically: the local copy
// changes at once, the store write runs through the background queue, and a
// failure rolls the copy back.
func (s *Service) UpdateSeoFields(ctx context.Context, video catalog.VideoSeo, input SeoFieldsInput) error {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return err
	}
	patch := input.patch()
	if len(patch) == 0 {
		return fmt.Errorf("no SEO fields to update")
	}

	s.mutator.Track(video)
	s.mutator.Apply(video.ID,
		func(c catalog.VideoSeo) catalog.VideoSeo {
			if input.TitleV1 != nil {
				c.TitleV1 = *input.TitleV1
			}
			if input.TitleV2 != nil {
				c.TitleV2 = *input.TitleV2
			}
			if input.TitleV3 != nil {
				c.TitleV3 = *input.TitleV3
			}
			if input.Description != nil {
				c.Description = *input.Description
			}
			if input.Tags != nil {
				c.Tags = append([]string(nil), input.Tags...)
			}
			return c
		},
		func(ctx context.Context) (catalog.VideoSeo, error) {
			return s.updateVideo(ctx, video.ID, patch)
		},
		actions.PendingAction{
			SuccessMessage: "SEO fields updated",
			ErrorMessage:   "Failed to update SEO fields",
		},
	)
	return nil
}

// ListSeoVersions returns a record's version history, newest first.
func (s *Service) ListSeoVersions(ctx context.Context, videoID string) ([]catalog.SeoVersion, error) {
	rows, err := s.store.Select(ctx, store.Query{
		Table:   TableSeoVersions,
		Filters: []store.Filter{store.Eq("video_id", videoID)},
		Order:   &store.Order{Column: "version_number", Descending: true},
	})
	if err != nil {
		return nil, fmt.Errorf("list SEO versions for %s: %w", videoID, err)
	}
	var versions []catalog.SeoVersion
	if err := store.DecodeRows(rows, &versions); err != nil {
		return nil, fmt.Errorf("decode SEO versions: %w", err)
	}
	return versions, nil
}

// SaveSeoVersion snapshots a record's current SEO fields as the next
// version number, without activating it.
func (s *Service) SaveSeoVersion(ctx context.Context, video catalog.VideoSeo) (catalog.SeoVersion, error) {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return catalog.SeoVersion{}, err
	}

	versions, err := s.ListSeoVersions(ctx, video.ID)
	if err != nil {
		return catalog.SeoVersion{}, err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[0].VersionNumber + 1
	}

	row, err := s.store.Insert(ctx, TableSeoVersions, store.Row{
		"id":             uuid.NewString(),
		"video_id":       video.ID,
		"title":          video.TitleV1,
		"description":    video.Description,
		"tags":           video.Tags,
		"version_number": next,
		"is_active":      false,
		"created_at":     s.clock().UTC(),
	}, nil)
	if err != nil {
		return catalog.SeoVersion{}, fmt.Errorf("save SEO version: %w", err)
	}
	var version catalog.SeoVersion
	if err := store.DecodeRow(row, &version); err != nil {
		return catalog.SeoVersion{}, fmt.Errorf("decode SEO version: %w", err)
	}
	return version, nil
}

// ActivateSeoVersion makes one version the live one: its siblings are
// deactivated, the version's fields are copied onto the record, and every
// cached copy of the record is patched.
func (s *Service) ActivateSeoVersion(ctx context.Context, videoID, versionID string) error {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return err
	}

	rows, err := s.store.Select(ctx, store.Query{
		Table:   TableSeoVersions,
		Filters: []store.Filter{store.Eq("id", versionID)},
	})
	if err != nil {
		return fmt.Errorf("load SEO version %s: %w", versionID, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("SEO version %s not found", versionID)
	}
	var version catalog.SeoVersion
	if err := store.DecodeRow(rows[0], &version); err != nil {
		return fmt.Errorf("decode SEO version: %w", err)
	}
	if version.VideoID != videoID {
		return fmt.Errorf("SEO version %s does not belong to video %s", versionID, videoID)
	}

	s.queue.Enqueue(actions.PendingAction{
		Op: func(ctx context.Context) (any, error) {
			// Deactivate first so there is never more than one active row.
			if _, err := s.store.Update(ctx, TableSeoVersions,
				[]store.Filter{store.Eq("video_id", videoID)},
				store.Row{"is_active": false}, nil); err != nil {
				return nil, err
			}
			if _, err := s.store.Update(ctx, TableSeoVersions,
				[]store.Filter{store.Eq("id", versionID)},
				store.Row{"is_active": true}, nil); err != nil {
				return nil, err
			}
			return s.updateVideo(ctx, videoID, store.Row{
				"title_v1":    version.Title,
				"description": version.Description,
				"tags":        version.Tags,
			})
		},
		OnSuccess: func(result any) {
			video, ok := result.(catalog.VideoSeo)
			if !ok {
				return
			}
			patched := s.reconciler.Reconcile(context.Background(), video)
			log.Debug("Version activation patched %d cache copies for %s", patched, video.ID)
			s.broadcast.Publish(bus.TopicVideoUpdated, video)
		},
		SuccessMessage: fmt.Sprintf("Version %d activated", version.VersionNumber),
		ErrorMessage:   "Failed to activate version",
	})
	return nil
}
