package fest

import (
	"context"
	"errors"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

const (
	CorePoints    = 50
	DefaultPoints = 30
)

func pointsFor(c models.EventCategory) int {
	if c == models.CategoryCore {
		return CorePoints
	}
	return DefaultPoints
}

// levelFor returns the event's reward level, creating it on first use.
func levelFor(ctx context.Context, tx *store.Tx, ev models.Event) (models.Level, error) {
	l, err := tx.LevelForEvent(ctx, ev.ID)
	if errors.Is(err, store.ErrNotFound) {
		return tx.CreateLevel(ctx, ev.ID, pointsFor(ev.Category))
	}
	return l, err
}

// OrganizerMarkAttendance sets a confirmed team's attendance. Marking it
// present grants the event's level to every member unless any member
// already holds it; marking it absent revokes the level from all members.
func (s *Service) OrganizerMarkAttendance(ctx context.Context, actor *models.User, teamID int64, attended bool) (models.Team, error) {
	if err := s.policy.Gate(actor, ActMarkAttendance); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if team, err = loadTeam(ctx, tx, teamID); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActMarkAttendance, Target{EventID: team.EventID, Team: &team}); err != nil {
			return err
		}
		if _, err := teamTransition(team, TeamMarkAttendance); err != nil {
			return err
		}
		ev, err := loadEvent(ctx, tx, team.EventID)
		if err != nil {
			return err
		}
		members, err := tx.MemberIDs(ctx, team.ID)
		if err != nil {
			return err
		}
		if err := tx.SetAttended(ctx, team.ID, attended); err != nil {
			return err
		}
		if attended {
			if err := grantTeam(ctx, tx, ev, members); err != nil {
				return err
			}
		} else if err := revoke(ctx, tx, ev, members); err != nil {
			return err
		}
		team.Attended = attended
		return s.audit(ctx, tx, actor, ActMarkAttendance, "team=%d attended=%t", team.ID, attended)
	})
	return team, err
}

// grantTeam issues the level to all members only when none of them holds it.
func grantTeam(ctx context.Context, tx *store.Tx, ev models.Event, members []int64) error {
	level, err := levelFor(ctx, tx, ev)
	if err != nil {
		return err
	}
	held, err := tx.CountXP(ctx, level.ID, members)
	if err != nil || held > 0 {
		return err
	}
	return tx.GrantXP(ctx, level.ID, members)
}

func revoke(ctx context.Context, tx *store.Tx, ev models.Event, members []int64) error {
	level, err := tx.LevelForEvent(ctx, ev.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = tx.RevokeXP(ctx, level.ID, members)
	return err
}

// OrganizerMarkAttendanceSolo sets attendance on the participant's confirmed
// entries in the event and grants or revokes the level for that user alone.
// It returns the number of teams updated.
func (s *Service) OrganizerMarkAttendanceSolo(ctx context.Context, actor *models.User, eventID, userID int64, attended bool) (int64, error) {
	if err := s.policy.Gate(actor, ActMarkAttendanceSolo); err != nil {
		return 0, err
	}

	var updated int64
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActMarkAttendanceSolo, Target{EventID: ev.ID}); err != nil {
			return err
		}
		if _, err := loadParticipant(ctx, tx, userID); err != nil {
			return err
		}
		if updated, err = tx.SetAttendedForUser(ctx, ev.ID, userID, attended); err != nil {
			return err
		}
		if updated == 0 {
			return notFound("No team found")
		}
		if !attended {
			if err := revoke(ctx, tx, ev, []int64{userID}); err != nil {
				return err
			}
		} else {
			level, err := levelFor(ctx, tx, ev)
			if err != nil {
				return err
			}
			held, err := tx.CountXP(ctx, level.ID, []int64{userID})
			if err != nil {
				return err
			}
			if held == 0 {
				if err := tx.GrantXP(ctx, level.ID, []int64{userID}); err != nil {
					return err
				}
			}
		}
		return s.audit(ctx, tx, actor, ActMarkAttendanceSolo, "event=%d user=%d attended=%t", ev.ID, userID, attended)
	})
	return updated, err
}

// UserXP returns the total reward points of actor.
func (s *Service) UserXP(ctx context.Context, actor *models.User) (int, error) {
	if err := s.policy.Gate(actor, ActViewSelf); err != nil {
		return 0, err
	}
	var total int
	err := s.view(ctx, func(tx *store.Tx) error {
		var err error
		total, err = tx.UserXP(ctx, actor.ID)
		return err
	})
	return total, err
}

// Leaderboard ranks users by reward points.
func (s *Service) Leaderboard(ctx context.Context, actor *models.User, limit uint64) ([]models.LeaderboardEntry, error) {
	if err := s.policy.Gate(actor, ActViewSelf); err != nil {
		return nil, err
	}
	limit = limitOr(limit, 100)
	entries := []models.LeaderboardEntry{}
	err := s.view(ctx, func(tx *store.Tx) error {
		out, err := tx.Leaderboard(ctx, limit)
		if err != nil {
			return err
		}
		entries = append(entries, out...)
		return nil
	})
	return entries, err
}
