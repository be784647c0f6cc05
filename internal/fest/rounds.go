package fest

import (
	"context"
	"time"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/notify"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// RoundStatus is published on the round's status topic.
type RoundStatus struct {
	EventID      int64 `json:"event_id"`
	RoundNo      int   `json:"round_no"`
	Completed    bool  `json:"completed"`
	SelectStatus bool  `json:"select_status"`
}

// CreateRound appends the next round to the event. Numbering starts at 1
// and never has gaps.
func (s *Service) CreateRound(ctx context.Context, actor *models.User, eventID int64, date time.Time) (models.Round, error) {
	if err := s.policy.Gate(actor, ActCreateRound); err != nil {
		return models.Round{}, err
	}

	var round models.Round
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActCreateRound, Target{EventID: ev.ID}); err != nil {
			return err
		}
		highest, err := tx.MaxRoundNo(ctx, ev.ID)
		if err != nil {
			return err
		}
		round = models.Round{EventID: ev.ID, RoundNo: highest + 1, Date: date.UTC()}
		if err := tx.CreateRound(ctx, round); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActCreateRound, "event=%d round=%d", ev.ID, round.RoundNo)
	})
	return round, err
}

// DeleteRound removes the highest round of the event.
func (s *Service) DeleteRound(ctx context.Context, actor *models.User, eventID int64) (models.Round, error) {
	if err := s.policy.Gate(actor, ActDeleteRound); err != nil {
		return models.Round{}, err
	}

	var round models.Round
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActDeleteRound, Target{EventID: ev.ID}); err != nil {
			return err
		}
		highest, err := tx.MaxRoundNo(ctx, ev.ID)
		if err != nil {
			return err
		}
		if highest == 0 {
			return notFound("No rounds found")
		}
		if round, err = loadRound(ctx, tx, ev.ID, highest); err != nil {
			return err
		}
		if round.Completed {
			return invariant("Round completed")
		}
		// Teams may sit one past the last round; deleting must keep that true.
		teamMax, err := tx.MaxTeamRound(ctx, ev.ID)
		if err != nil {
			return err
		}
		if teamMax > highest {
			return invariant("A team is already in round %d", teamMax)
		}
		if err := tx.DeleteRound(ctx, ev.ID, highest); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActDeleteRound, "event=%d round=%d", ev.ID, highest)
	})
	return round, err
}

// CompleteRound closes a round for good. Repeating it is harmless.
func (s *Service) CompleteRound(ctx context.Context, actor *models.User, eventID int64, roundNo int) (models.Round, error) {
	if err := s.policy.Gate(actor, ActCompleteRound); err != nil {
		return models.Round{}, err
	}

	var round models.Round
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if round, err = loadRound(ctx, tx, eventID, roundNo); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActCompleteRound, Target{EventID: eventID, RoundNo: roundNo}); err != nil {
			return err
		}
		if _, err := roundTransition(round, RoundComplete); err != nil {
			return err
		}
		if round.Completed {
			return nil
		}
		if err := tx.SetRoundCompleted(ctx, eventID, roundNo); err != nil {
			return err
		}
		round.Completed = true
		return s.audit(ctx, tx, actor, ActCompleteRound, "event=%d round=%d", eventID, roundNo)
	})
	if err != nil {
		return models.Round{}, err
	}
	s.publish(ctx, notify.StatusTopic(eventID, roundNo), statusOf(round))
	return round, nil
}

// ChangeSelectStatus flips whether the round is open for selection.
func (s *Service) ChangeSelectStatus(ctx context.Context, actor *models.User, eventID int64, roundNo int) (models.Round, error) {
	if err := s.policy.Gate(actor, ActChangeSelectStatus); err != nil {
		return models.Round{}, err
	}

	var round models.Round
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if round, err = loadRound(ctx, tx, eventID, roundNo); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActChangeSelectStatus, Target{EventID: eventID, RoundNo: roundNo}); err != nil {
			return err
		}
		if _, err := roundTransition(round, RoundToggleSelect); err != nil {
			return err
		}
		round.SelectStatus = !round.SelectStatus
		if err := tx.SetSelectStatus(ctx, eventID, roundNo, round.SelectStatus); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActChangeSelectStatus, "event=%d round=%d select=%t", eventID, roundNo, round.SelectStatus)
	})
	if err != nil {
		return models.Round{}, err
	}
	s.publish(ctx, notify.StatusTopic(eventID, roundNo), statusOf(round))
	return round, nil
}

func statusOf(r models.Round) RoundStatus {
	return RoundStatus{
		EventID:      r.EventID,
		RoundNo:      r.RoundNo,
		Completed:    r.Completed,
		SelectStatus: r.SelectStatus,
	}
}

// PromoteToNextRound moves a team between roundNo and roundNo+1. Selecting
// a team in roundNo advances it; deselecting a team in roundNo+1 brings it
// back. Every other combination returns the team unchanged.
func (s *Service) PromoteToNextRound(ctx context.Context, actor *models.User, teamID int64, roundNo int, selected bool) (models.Team, error) {
	if err := s.policy.Gate(actor, ActPromote); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if team, err = loadTeam(ctx, tx, teamID); err != nil {
			return err
		}
		round, err := loadRound(ctx, tx, team.EventID, roundNo)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActPromote, Target{EventID: team.EventID, RoundNo: roundNo, Team: &team}); err != nil {
			return err
		}
		if _, err := roundTransition(round, RoundPromote); err != nil {
			return err
		}
		total, err := tx.CountRounds(ctx, team.EventID)
		if err != nil {
			return err
		}
		if roundNo < 1 || roundNo >= total {
			return invariant("Round %d has no next round", roundNo)
		}
		if _, err := teamTransition(team, TeamPromote); err != nil {
			return err
		}

		next := team.RoundNo
		switch {
		case selected && team.RoundNo == roundNo:
			next = roundNo + 1
		case !selected && team.RoundNo == roundNo+1:
			next = roundNo
		}
		if next == team.RoundNo {
			return nil
		}
		moved, err := tx.MoveTeamRound(ctx, team.ID, team.RoundNo, next)
		if err != nil {
			return err
		}
		if !moved {
			return &Error{Kind: KindConflictOnWrite, Message: "Concurrent update, try again"}
		}
		team.RoundNo = next
		return s.audit(ctx, tx, actor, ActPromote, "team=%d round=%d selected=%t", team.ID, roundNo, selected)
	})
	if err != nil {
		return models.Team{}, err
	}
	s.publish(ctx, notify.TeamTopic(team.EventID, roundNo), team)
	return team, nil
}

// TeamsByRound lists the confirmed teams currently in the round.
func (s *Service) TeamsByRound(ctx context.Context, actor *models.User, eventID int64, roundNo int) ([]models.Team, error) {
	if err := s.policy.Gate(actor, ActViewRoundTeams); err != nil {
		return nil, err
	}
	var teams []models.Team
	err := s.view(ctx, func(tx *store.Tx) error {
		if _, err := loadRound(ctx, tx, eventID, roundNo); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActViewRoundTeams, Target{EventID: eventID, RoundNo: roundNo}); err != nil {
			return err
		}
		var err error
		teams, err = tx.TeamsInRound(ctx, eventID, roundNo)
		return err
	})
	return teams, err
}

// Rounds lists the rounds of an event.
func (s *Service) Rounds(ctx context.Context, actor *models.User, eventID int64) ([]models.Round, error) {
	if err := s.policy.Gate(actor, ActViewSelf); err != nil {
		return nil, err
	}
	var rounds []models.Round
	err := s.view(ctx, func(tx *store.Tx) error {
		if _, err := loadEvent(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		rounds, err = tx.ListRounds(ctx, eventID)
		return err
	})
	return rounds, err
}

// AddJudge assigns a user to judge one round and gives them the JUDGE role.
func (s *Service) AddJudge(ctx context.Context, actor *models.User, eventID int64, roundNo int, userID int64) (models.Judge, error) {
	if err := s.policy.Gate(actor, ActAddJudge); err != nil {
		return models.Judge{}, err
	}

	judge := models.Judge{UserID: userID, EventID: eventID, RoundNo: roundNo}
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if _, err := loadRound(ctx, tx, eventID, roundNo); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActAddJudge, Target{EventID: eventID, RoundNo: roundNo}); err != nil {
			return err
		}
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return translate(err, "User")
		}
		switch u.Role {
		case models.RoleUser, models.RoleParticipant, models.RoleJudge:
		default:
			return invariant("User with role %s cannot judge", u.Role)
		}
		already, err := tx.IsJudge(ctx, eventID, roundNo, userID)
		if err != nil {
			return err
		}
		if already {
			return invariant("User is already a judge of this round")
		}
		if err := tx.AddJudge(ctx, judge); err != nil {
			return err
		}
		if err := tx.SetUserRole(ctx, userID, models.RoleJudge); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActAddJudge, "event=%d round=%d user=%d", eventID, roundNo, userID)
	})
	return judge, err
}

// RemoveJudge drops a judge assignment. A user left without assignments
// goes back to PARTICIPANT.
func (s *Service) RemoveJudge(ctx context.Context, actor *models.User, eventID int64, roundNo int, userID int64) (models.Judge, error) {
	if err := s.policy.Gate(actor, ActRemoveJudge); err != nil {
		return models.Judge{}, err
	}

	judge := models.Judge{UserID: userID, EventID: eventID, RoundNo: roundNo}
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if _, err := loadRound(ctx, tx, eventID, roundNo); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActRemoveJudge, Target{EventID: eventID, RoundNo: roundNo}); err != nil {
			return err
		}
		if err := tx.RemoveJudge(ctx, judge); err != nil {
			return translate(err, "Judge")
		}
		left, err := tx.JudgeAssignments(ctx, userID)
		if err != nil {
			return err
		}
		if left == 0 {
			if err := tx.SetUserRole(ctx, userID, models.RoleParticipant); err != nil {
				return err
			}
		}
		return s.audit(ctx, tx, actor, ActRemoveJudge, "event=%d round=%d user=%d", eventID, roundNo, userID)
	})
	return judge, err
}
