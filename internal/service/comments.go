package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/store"
)

// ListComments returns a record's comment thread, oldest first.
func (s *Service) ListComments(ctx context.Context, videoID string) ([]catalog.Comment, error) {
	rows, err := s.store.Select(ctx, store.Query{
		Table:   TableComments,
		Filters: []store.Filter{store.Eq("video_id", videoID)},
		Order:   &store.Order{Column: "created_at"},
	})
	if err != nil {
		return nil, fmt.Errorf("list comments for %s: %w", videoID, err)
	}
	var comments []catalog.Comment
	if err := store.DecodeRows(rows, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

// AddComment appends to a record's thread, authored by the working identity.
func (s *Service) AddComment(ctx context.Context, videoID, body string) (catalog.Comment, error) {
	member, err := s.authorizeWrite(ctx)
	if err != nil {
		return catalog.Comment{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return catalog.Comment{}, fmt.Errorf("comment body is empty")
	}

	row, err := s.store.Insert(ctx, TableComments, store.Row{
		"id":         uuid.NewString(),
		"video_id":   videoID,
		"author":     member.Name,
		"body":       body,
		"created_at": s.clock().UTC(),
	}, nil)
	if err != nil {
		return catalog.Comment{}, fmt.Errorf("add comment: %w", err)
	}
	var comment catalog.Comment
	if err := store.DecodeRow(row, &comment); err != nil {
		return catalog.Comment{}, fmt.Errorf("decode comment: %w", err)
	}
	return comment, nil
}
