package fest

import (
	"context"
	"slices"
	"strings"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// CreateTeam registers a new open team for a team event with actor as its
// leader and only member.
func (s *Service) CreateTeam(ctx context.Context, actor *models.User, eventID int64, name string) (models.Team, error) {
	if err := s.policy.Gate(actor, ActCreateTeam); err != nil {
		return models.Team{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Team{}, invariant("Team name is required")
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActCreateTeam, Target{EventID: ev.ID}); err != nil {
			return err
		}
		if err := lockRegistrant(ctx, tx, actor.ID); err != nil {
			return err
		}
		if err := checkEligible(ctx, tx, *actor, ev); err != nil {
			return err
		}
		if ev.Type.Individual() {
			return invariant("Event is individual")
		}
		if err := checkSingleEntry(ctx, tx, ev, actor.ID); err != nil {
			return err
		}
		if ev.Full() {
			return invariant("Event is full")
		}
		taken, err := tx.TeamNameTaken(ctx, ev.ID, name)
		if err != nil {
			return err
		}
		if taken {
			return invariant("Team name already exists")
		}

		id, err := tx.CreateTeam(ctx, models.Team{EventID: ev.ID, Name: name, LeaderID: &actor.ID})
		if err != nil {
			return err
		}
		if err := tx.AddMember(ctx, id, actor.ID, ev.MaxTeamSize); err != nil {
			return err
		}
		if team, err = loadTeam(ctx, tx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActCreateTeam, "team=%d event=%d name=%q", id, ev.ID, name)
	})
	return team, err
}

// JoinTeam adds actor to an open team.
func (s *Service) JoinTeam(ctx context.Context, actor *models.User, teamID int64) (models.TeamMember, error) {
	if err := s.policy.Gate(actor, ActJoinTeam); err != nil {
		return models.TeamMember{}, err
	}

	err := s.inTx(ctx, func(tx *store.Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if _, err := teamTransition(team, TeamAddMember); err != nil {
			return err
		}
		ev, err := loadEvent(ctx, tx, team.EventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActJoinTeam, Target{EventID: ev.ID, Team: &team}); err != nil {
			return err
		}
		if err := lockRegistrant(ctx, tx, actor.ID); err != nil {
			return err
		}
		if err := checkEligible(ctx, tx, *actor, ev); err != nil {
			return err
		}
		if err := s.admitMember(ctx, tx, ev, team, *actor); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActJoinTeam, "team=%d user=%d", team.ID, actor.ID)
	})
	if err != nil {
		return models.TeamMember{}, err
	}
	return models.TeamMember{TeamID: teamID, UserID: actor.ID}, nil
}

// admitMember runs the membership invariants shared by JoinTeam and
// OrganizerAddTeamMember and inserts the row.
func (s *Service) admitMember(ctx context.Context, tx *store.Tx, ev models.Event, team models.Team, u models.User) error {
	if ev.Type.Individual() {
		return invariant("Event is individual")
	}
	if err := checkSingleEntry(ctx, tx, ev, u.ID); err != nil {
		return err
	}
	member, err := tx.IsMember(ctx, team.ID, u.ID)
	if err != nil {
		return err
	}
	if member {
		return invariant("Already a member of team")
	}
	if team.MemberCount >= ev.MaxTeamSize {
		return invariant("Team is full")
	}
	if ev.EnforceCollegeHomogeneity {
		anchor, err := collegeAnchor(ctx, tx, team)
		if err != nil {
			return err
		}
		if anchor != nil && !sameCollege(anchor.CollegeID, u.CollegeID) {
			return invariant("Team members should belong to same college")
		}
	}
	// The capacity guard in AddMember settles races the check above lost.
	return tx.AddMember(ctx, team.ID, u.ID, ev.MaxTeamSize)
}

// checkSingleEntry refuses a second registration on single-entry events.
func checkSingleEntry(ctx context.Context, tx *store.Tx, ev models.Event, userID int64) error {
	if !ev.Type.SingleEntry() {
		return nil
	}
	n, err := tx.EntriesInEvent(ctx, ev.ID, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		return invariant("Already registered")
	}
	return nil
}

// collegeAnchor returns the user whose college new members must match: the
// leader while still a member, otherwise the first member. Nil for an empty
// team, whatever leader it still records.
func collegeAnchor(ctx context.Context, tx *store.Tx, team models.Team) (*models.User, error) {
	if team.MemberCount == 0 {
		return nil, nil
	}
	ids, err := tx.MemberIDs(ctx, team.ID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	anchorID := ids[0]
	if team.LeaderID != nil && slices.Contains(ids, *team.LeaderID) {
		anchorID = *team.LeaderID
	}
	u, err := tx.GetUser(ctx, anchorID)
	if err != nil {
		return nil, translate(err, "Leader")
	}
	return &u, nil
}

func sameCollege(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// LeaveTeam removes actor from an open team. A leaving leader stays
// recorded as the team's leader.
func (s *Service) LeaveTeam(ctx context.Context, actor *models.User, teamID int64) (models.TeamMember, error) {
	if err := s.policy.Gate(actor, ActLeaveTeam); err != nil {
		return models.TeamMember{}, err
	}

	err := s.inTx(ctx, func(tx *store.Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActLeaveTeam, Target{EventID: team.EventID, Team: &team}); err != nil {
			return err
		}
		member, err := tx.IsMember(ctx, team.ID, actor.ID)
		if err != nil {
			return err
		}
		if !member {
			return invariant("Not a member of team")
		}
		if _, err := teamTransition(team, TeamRemoveMember); err != nil {
			return err
		}
		if _, err := tx.RemoveMember(ctx, team.ID, actor.ID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActLeaveTeam, "team=%d user=%d", team.ID, actor.ID)
	})
	if err != nil {
		return models.TeamMember{}, err
	}
	return models.TeamMember{TeamID: teamID, UserID: actor.ID}, nil
}

// ConfirmTeam freezes the team's membership. Only its leader may do this.
func (s *Service) ConfirmTeam(ctx context.Context, actor *models.User, teamID int64) (models.Team, error) {
	if err := s.policy.Gate(actor, ActConfirmTeam); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if team, err = loadTeam(ctx, tx, teamID); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActConfirmTeam, Target{EventID: team.EventID, Team: &team}); err != nil {
			return err
		}
		ev, err := loadEvent(ctx, tx, team.EventID)
		if err != nil {
			return err
		}
		if ev.Type.Individual() {
			return invariant("Event is individual")
		}
		if _, err := teamTransition(team, TeamConfirm); err != nil {
			return err
		}
		if ev.Full() {
			return invariant("Event is full")
		}
		if ev.Paid() {
			return invariant("Event is paid")
		}
		if team.MemberCount < ev.MinTeamSize {
			return invariant("Team is not full need at least %d members", ev.MinTeamSize)
		}
		if err := confirm(ctx, tx, team); err != nil {
			return err
		}
		if team, err = loadTeam(ctx, tx, teamID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActConfirmTeam, "team=%d event=%d", team.ID, ev.ID)
	})
	return team, err
}

// confirm claims one of the event's team slots and flips the team. Both
// statements are guarded, so a lost race surfaces as ConflictOnWrite.
func confirm(ctx context.Context, tx *store.Tx, team models.Team) error {
	if err := tx.ClaimConfirmSlot(ctx, team.EventID); err != nil {
		return err
	}
	return tx.ConfirmTeam(ctx, team.ID)
}

// DeleteTeam removes an open team. Only its leader may do this.
func (s *Service) DeleteTeam(ctx context.Context, actor *models.User, teamID int64) (models.Team, error) {
	if err := s.policy.Gate(actor, ActDeleteTeam); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if team, err = loadTeam(ctx, tx, teamID); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActDeleteTeam, Target{EventID: team.EventID, Team: &team}); err != nil {
			return err
		}
		if _, err := teamTransition(team, TeamDelete); err != nil {
			return err
		}
		if err := tx.DeleteTeam(ctx, team.ID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActDeleteTeam, "team=%d event=%d", team.ID, team.EventID)
	})
	return team, err
}

// RemoveTeamMember lets the leader of an open team drop one of its members.
func (s *Service) RemoveTeamMember(ctx context.Context, actor *models.User, teamID, userID int64) (models.TeamMember, error) {
	if err := s.policy.Gate(actor, ActRemoveTeamMember); err != nil {
		return models.TeamMember{}, err
	}

	err := s.inTx(ctx, func(tx *store.Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActRemoveTeamMember, Target{EventID: team.EventID, Team: &team}); err != nil {
			return err
		}
		if _, err := teamTransition(team, TeamRemoveMember); err != nil {
			return err
		}
		removed, err := tx.RemoveMember(ctx, team.ID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return invariant("User does not belong to this team")
		}
		return s.audit(ctx, tx, actor, ActRemoveTeamMember, "team=%d user=%d", team.ID, userID)
	})
	if err != nil {
		return models.TeamMember{}, err
	}
	return models.TeamMember{TeamID: teamID, UserID: userID}, nil
}

// MyTeams lists the teams actor belongs to.
func (s *Service) MyTeams(ctx context.Context, actor *models.User) ([]models.Team, error) {
	if err := s.policy.Gate(actor, ActViewSelf); err != nil {
		return nil, err
	}
	var teams []models.Team
	err := s.view(ctx, func(tx *store.Tx) error {
		var err error
		teams, err = tx.TeamsOfUser(ctx, actor.ID)
		return err
	})
	return teams, err
}
