package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calermo/seo-manager/pkg/log"
)

// State key for the persisted detail-view navigation window.
const stateKeyVideoQueue = "video_queue"

// navigationWindowRadius is how many neighbors on each side of the current
// record the window keeps for instant prev/next moves.
const navigationWindowRadius = 10

type navigationQueue struct {
	VideoIDs []string `json:"video_ids"`
	Position int      `json:"position"`
}

// SetNavigationContext records the ordered list the user navigated from and
// their position in it. Only the window around the position is kept.
func (s *Service) SetNavigationContext(ctx context.Context, videoIDs []string, position int) error {
	if position < 0 || position >= len(videoIDs) {
		return fmt.Errorf("position %d out of range for %d videos", position, len(videoIDs))
	}

	from := position - navigationWindowRadius
	if from < 0 {
		from = 0
	}
	to := position + navigationWindowRadius + 1
	if to > len(videoIDs) {
		to = len(videoIDs)
	}

	queue := navigationQueue{
		VideoIDs: append([]string(nil), videoIDs[from:to]...),
		Position: position - from,
	}
	value, err := json.Marshal(queue)
	if err != nil {
		return err
	}
	if err := s.state.PutState(ctx, stateKeyVideoQueue, value); err != nil {
		return fmt.Errorf("persist navigation context: %w", err)
	}
	log.Debug("Navigation window set: %d videos, position %d", len(queue.VideoIDs), queue.Position)
	return nil
}

// Neighbors returns the previous and next record IDs around the current
// navigation position; empty strings mean the edge of the window.
func (s *Service) Neighbors(ctx context.Context) (prev, next string, err error) {
	queue, ok, err := s.navigationState(ctx)
	if err != nil || !ok {
		return "", "", err
	}
	if queue.Position > 0 {
		prev = queue.VideoIDs[queue.Position-1]
	}
	if queue.Position < len(queue.VideoIDs)-1 {
		next = queue.VideoIDs[queue.Position+1]
	}
	return prev, next, nil
}

// Advance moves the navigation position onto the given record if it is in
// the window, returning false when it is not (the window is then stale and
// the caller should set a fresh context).
func (s *Service) Advance(ctx context.Context, videoID string) (bool, error) {
	queue, ok, err := s.navigationState(ctx)
	if err != nil || !ok {
		return false, err
	}
	for i, id := range queue.VideoIDs {
		if id == videoID {
			queue.Position = i
			value, err := json.Marshal(queue)
			if err != nil {
				return false, err
			}
			return true, s.state.PutState(ctx, stateKeyVideoQueue, value)
		}
	}
	return false, nil
}

func (s *Service) navigationState(ctx context.Context) (navigationQueue, bool, error) {
	value, ok, err := s.state.GetState(ctx, stateKeyVideoQueue)
	if err != nil {
		return navigationQueue{}, false, fmt.Errorf("read navigation context: %w", err)
	}
	if !ok {
		return navigationQueue{}, false, nil
	}
	var queue navigationQueue
	if err := json.Unmarshal(value, &queue); err != nil {
		// Stale or corrupt window, treat as absent.
		_ = s.state.DeleteState(ctx, stateKeyVideoQueue)
		return navigationQueue{}, false, nil
	}
	if queue.Position < 0 || queue.Position >= len(queue.VideoIDs) {
		return navigationQueue{}, false, nil
	}
	return queue, true, nil
}
