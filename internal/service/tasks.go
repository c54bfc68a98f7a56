package service

import (
	"context"
	"fmt"

	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/store"
)

// ListTasks returns the tasks attached to a record, oldest first.
func (s *Service) ListTasks(ctx context.Context, videoID string) ([]catalog.Task, error) {
	rows, err := s.store.Select(ctx, store.Query{
		Table:   TableTasks,
		Filters: []store.Filter{store.Eq("video_id", videoID)},
		Order:   &store.Order{Column: "created_at"},
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks for %s: %w", videoID, err)
	}
	var tasks []catalog.Task
	if err := store.DecodeRows(rows, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskStatus moves a task through its lifecycle.
func (s *Service) UpdateTaskStatus(ctx context.Context, taskID string, status catalog.TaskStatus) (catalog.Task, error) {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return catalog.Task{}, err
	}
	switch status {
	case catalog.TaskPending, catalog.TaskInProgress, catalog.TaskCompleted:
	default:
		return catalog.Task{}, fmt.Errorf("unknown task status %q", status)
	}

	rows, err := s.store.Update(ctx, TableTasks,
		[]store.Filter{store.Eq("id", taskID)},
		store.Row{"status": string(status)}, nil)
	if err != nil {
		return catalog.Task{}, fmt.Errorf("update task %s: %w", taskID, err)
	}
	if len(rows) == 0 {
		return catalog.Task{}, fmt.Errorf("task %s not found", taskID)
	}
	var task catalog.Task
	if err := store.DecodeRow(rows[0], &task); err != nil {
		return catalog.Task{}, fmt.Errorf("decode task: %w", err)
	}
	return task, nil
}

// AssignTask hands a task to a team member; empty memberName unassigns.
func (s *Service) AssignTask(ctx context.Context, taskID, memberName string) (catalog.Task, error) {
	if _, err := s.authorizeWrite(ctx); err != nil {
		return catalog.Task{}, err
	}

	patch := store.Row{"assigned_to": memberName}
	if memberName == "" {
		patch["assigned_to"] = nil
	}
	rows, err := s.store.Update(ctx, TableTasks,
		[]store.Filter{store.Eq("id", taskID)}, patch, nil)
	if err != nil {
		return catalog.Task{}, fmt.Errorf("assign task %s: %w", taskID, err)
	}
	if len(rows) == 0 {
		return catalog.Task{}, fmt.Errorf("task %s not found", taskID)
	}
	var task catalog.Task
	if err := store.DecodeRow(rows[0], &task); err != nil {
		return catalog.Task{}, fmt.Errorf("decode task: %w", err)
	}
	return task, nil
}

// GetAssignableUsers lists members that tasks and records can be assigned
// to. Viewers browse, so they are excluded here.
func (s *Service) GetAssignableUsers(ctx context.Context) ([]catalog.TeamMember, error) {
	members, err := s.ListTeamMembers(ctx)
	if err != nil {
		return nil, err
	}
	assignable := make([]catalog.TeamMember, 0, len(members))
	for _, member := range members {
		if member.Role.CanWrite() {
			assignable = append(assignable, member)
		}
	}
	return assignable, nil
}
