package fest

import (
	"context"
	"strings"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// Organizer variants apply the same team invariants on behalf of a
// participant. The caller must organize the team's event.

// OrganizerCreateTeam creates an empty, leaderless open team. The first
// member added becomes its leader.
func (s *Service) OrganizerCreateTeam(ctx context.Context, actor *models.User, eventID int64, name string) (models.Team, error) {
	if err := s.policy.Gate(actor, ActOrganizerCreateTeam); err != nil {
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
		if err := s.policy.Authorize(ctx, tx, actor, ActOrganizerCreateTeam, Target{EventID: ev.ID}); err != nil {
			return err
		}
		if ev.Type.Individual() {
			return invariant("Event is individual")
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
		id, err := tx.CreateTeam(ctx, models.Team{EventID: ev.ID, Name: name})
		if err != nil {
			return err
		}
		if team, err = loadTeam(ctx, tx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActOrganizerCreateTeam, "team=%d event=%d name=%q", id, ev.ID, name)
	})
	return team, err
}

func (s *Service) OrganizerAddTeamMember(ctx context.Context, actor *models.User, teamID, userID int64) (models.TeamMember, error) {
	if err := s.policy.Gate(actor, ActOrganizerAddMember); err != nil {
		return models.TeamMember{}, err
	}

	err := s.inTx(ctx, func(tx *store.Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActOrganizerAddMember, Target{EventID: team.EventID, Team: &team}); err != nil {
			return err
		}
		if _, err := teamTransition(team, TeamAddMember); err != nil {
			return err
		}
		ev, err := loadEvent(ctx, tx, team.EventID)
		if err != nil {
			return err
		}
		participant, err := loadParticipant(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := lockRegistrant(ctx, tx, participant.ID); err != nil {
			return err
		}
		if err := checkEligible(ctx, tx, participant, ev); err != nil {
			return err
		}
		if err := s.admitMember(ctx, tx, ev, team, participant); err != nil {
			return err
		}
		if team.MemberCount == 0 {
			if err := tx.SetLeader(ctx, team.ID, participant.ID); err != nil {
				return err
			}
		}
		return s.audit(ctx, tx, actor, ActOrganizerAddMember, "team=%d user=%d", team.ID, participant.ID)
	})
	if err != nil {
		return models.TeamMember{}, err
	}
	return models.TeamMember{TeamID: teamID, UserID: userID}, nil
}

// OrganizerDeleteTeam removes a team in any state and frees its slot if
// it was confirmed.
func (s *Service) OrganizerDeleteTeam(ctx context.Context, actor *models.User, teamID int64) (models.Team, error) {
	if err := s.policy.Gate(actor, ActOrganizerDeleteTeam); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if team, err = loadTeam(ctx, tx, teamID); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActOrganizerDeleteTeam, Target{EventID: team.EventID, Team: &team}); err != nil {
			return err
		}
		if _, err := teamTransition(team, TeamOrganizerDelete); err != nil {
			return err
		}
		if team.Confirmed {
			if err := tx.ReleaseConfirmSlot(ctx, team.EventID); err != nil {
				return err
			}
		}
		if err := tx.DeleteTeam(ctx, team.ID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActOrganizerDeleteTeam, "team=%d event=%d", team.ID, team.EventID)
	})
	return team, err
}

func (s *Service) OrganizerDeleteTeamMember(ctx context.Context, actor *models.User, teamID, userID int64) (models.TeamMember, error) {
	if err := s.policy.Gate(actor, ActOrganizerDeleteMember); err != nil {
		return models.TeamMember{}, err
	}

	err := s.inTx(ctx, func(tx *store.Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActOrganizerDeleteMember, Target{EventID: team.EventID, Team: &team}); err != nil {
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
			return notFound("Team member not found")
		}
		return s.audit(ctx, tx, actor, ActOrganizerDeleteMember, "team=%d user=%d", team.ID, userID)
	})
	if err != nil {
		return models.TeamMember{}, err
	}
	return models.TeamMember{TeamID: teamID, UserID: userID}, nil
}

// OrganizerConfirmTeam confirms a team for its participants. Leadership
// and payment are not checked; size and the team quota are.
func (s *Service) OrganizerConfirmTeam(ctx context.Context, actor *models.User, teamID int64) (models.Team, error) {
	if err := s.policy.Gate(actor, ActOrganizerConfirmTeam); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if team, err = loadTeam(ctx, tx, teamID); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActOrganizerConfirmTeam, Target{EventID: team.EventID, Team: &team}); err != nil {
			return err
		}
		if _, err := teamTransition(team, TeamConfirm); err != nil {
			return err
		}
		ev, err := loadEvent(ctx, tx, team.EventID)
		if err != nil {
			return err
		}
		if ev.Full() {
			return invariant("Event is full")
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
		return s.audit(ctx, tx, actor, ActOrganizerConfirmTeam, "team=%d event=%d", team.ID, ev.ID)
	})
	return team, err
}

// OrganizerRegisterSolo registers a participant for an individual event.
// The registration is confirmed immediately.
func (s *Service) OrganizerRegisterSolo(ctx context.Context, actor *models.User, eventID, userID int64) (models.Team, error) {
	if err := s.policy.Gate(actor, ActOrganizerRegisterSolo); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActOrganizerRegisterSolo, Target{EventID: ev.ID}); err != nil {
			return err
		}
		participant, err := loadParticipant(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := lockRegistrant(ctx, tx, participant.ID); err != nil {
			return err
		}
		if err := checkEligible(ctx, tx, participant, ev); err != nil {
			return err
		}
		if team, err = registerSolo(ctx, tx, ev, participant, true); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActOrganizerRegisterSolo, "team=%d event=%d user=%d", team.ID, ev.ID, participant.ID)
	})
	return team, err
}
