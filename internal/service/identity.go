package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calermo/seo-manager/internal/bus"
	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/store"
)

// State key for the persisted "working as" identity.
const stateKeyTeamMember = "selected_team_member"

// WorkingIdentity returns the currently selected team member, ok=false when
// none has been picked yet.
func (s *Service) WorkingIdentity(ctx context.Context) (catalog.TeamMember, bool) {
	value, ok, err := s.state.GetState(ctx, stateKeyTeamMember)
	if err != nil || !ok {
		return catalog.TeamMember{}, false
	}
	var member catalog.TeamMember
	if err := json.Unmarshal(value, &member); err != nil {
		// Corrupt state reads as unselected.
		return catalog.TeamMember{}, false
	}
	return member, true
}

// SetWorkingIdentity persists the selection and broadcasts the change.
func (s *Service) SetWorkingIdentity(ctx context.Context, member catalog.TeamMember) error {
	if member.Name == "" {
		return fmt.Errorf("team member name is required")
	}
	value, err := json.Marshal(member)
	if err != nil {
		return err
	}
	if err := s.state.PutState(ctx, stateKeyTeamMember, value); err != nil {
		return fmt.Errorf("persist working identity: %w", err)
	}
	s.broadcast.Publish(bus.TopicTeamMemberUpdated, member)
	return nil
}

// ClearWorkingIdentity drops the selection, e.g. on sign-out.
func (s *Service) ClearWorkingIdentity(ctx context.Context) error {
	return s.state.DeleteState(ctx, stateKeyTeamMember)
}

// ListTeamMembers returns the active members, sorted by name.
func (s *Service) ListTeamMembers(ctx context.Context) ([]catalog.TeamMember, error) {
	rows, err := s.store.Select(ctx, store.Query{
		Table:   TableTeamMembers,
		Filters: []store.Filter{store.Eq("is_active", true)},
		Order:   &store.Order{Column: "name"},
	})
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	var members []catalog.TeamMember
	if err := store.DecodeRows(rows, &members); err != nil {
		return nil, fmt.Errorf("decode team members: %w", err)
	}
	return members, nil
}

// authorizeWrite gates every mutation: a working identity must be selected
// and viewers never write. Checked before anything touches the store so a
// denial leaves no partial mutation.
func (s *Service) authorizeWrite(ctx context.Context) (catalog.TeamMember, error) {
	member, ok := s.WorkingIdentity(ctx)
	if !ok {
		return catalog.TeamMember{}, NewError(ErrUnauthorized, "no working identity selected")
	}
	if !member.Role.CanWrite() {
		return catalog.TeamMember{}, NewError(ErrForbidden,
			fmt.Sprintf("role %s cannot modify records", member.Role)).
			WithContext("member", member.Name)
	}
	return member, nil
}
