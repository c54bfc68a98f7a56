package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/calermo/seo-manager/internal/cache"
	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/store"
)

// ListChannels returns every channel, sorted by display name.
func (s *Service) ListChannels(ctx context.Context) ([]catalog.Channel, error) {
	rows, err := s.store.Select(ctx, store.Query{
		Table: TableChannels,
		Order: &store.Order{Column: "channel_name"},
	})
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	var channels []catalog.Channel
	if err := store.DecodeRows(rows, &channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	return channels, nil
}

// UpdateChannelName renames a channel. Channel management is admin-only,
// one step above the usual write gate.
func (s *Service) UpdateChannelName(ctx context.Context, channelID, name string) (catalog.Channel, error) {
	member, err := s.authorizeWrite(ctx)
	if err != nil {
		return catalog.Channel{}, err
	}
	if member.Role != catalog.RoleAdmin {
		return catalog.Channel{}, NewError(ErrForbidden,
			fmt.Sprintf("role %s cannot rename channels", member.Role)).
			WithContext("member", member.Name)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Channel{}, NewError(ErrValidation, "channel name is required")
	}

	rows, err := s.store.Update(ctx, TableChannels,
		[]store.Filter{store.Eq("id", channelID)},
		store.Row{"channel_name": name}, nil)
	if err != nil {
		return catalog.Channel{}, fmt.Errorf("rename channel %s: %w", channelID, err)
	}
	if len(rows) == 0 {
		return catalog.Channel{}, NewError(ErrNotFound,
			fmt.Sprintf("channel %s not found", channelID))
	}
	var channel catalog.Channel
	if err := store.DecodeRow(rows[0], &channel); err != nil {
		return catalog.Channel{}, fmt.Errorf("decode channel %s: %w", channelID, err)
	}

	// Cached snapshots join the channel name; drop the copies holding it.
	s.cache.Invalidate(ctx, cache.NamespaceAll)
	s.cache.Invalidate(ctx, cache.NamespaceChannel(channel.ID))
	return channel, nil
}
