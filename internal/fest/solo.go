package fest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// RegisterSoloEvent registers actor for an individual event as a
// single-member team. Free events confirm at once; paid ones wait for the
// payment service.
func (s *Service) RegisterSoloEvent(ctx context.Context, actor *models.User, eventID int64) (models.Team, error) {
	if err := s.policy.Gate(actor, ActRegisterSolo); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActRegisterSolo, Target{EventID: ev.ID}); err != nil {
			return err
		}
		if err := lockRegistrant(ctx, tx, actor.ID); err != nil {
			return err
		}
		if err := checkEligible(ctx, tx, *actor, ev); err != nil {
			return err
		}
		if team, err = registerSolo(ctx, tx, ev, *actor, !ev.Paid()); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActRegisterSolo, "team=%d event=%d", team.ID, ev.ID)
	})
	return team, err
}

// registerSolo creates the single-member team of u for ev.
func registerSolo(ctx context.Context, tx *store.Tx, ev models.Event, u models.User, confirmed bool) (models.Team, error) {
	if !ev.Type.Individual() {
		return models.Team{}, invariant("Event is not individual")
	}
	entries, err := tx.EntriesInEvent(ctx, ev.ID, u.ID)
	if err != nil {
		return models.Team{}, err
	}
	if entries > 0 && ev.Type.SingleEntry() {
		return models.Team{}, invariant("Already registered")
	}
	if ev.Full() {
		return models.Team{}, invariant("Event is full")
	}
	if confirmed {
		if err := tx.ClaimConfirmSlot(ctx, ev.ID); err != nil {
			return models.Team{}, err
		}
	}

	name, err := soloTeamName(ctx, tx, ev.ID, u.ID, entries+1)
	if err != nil {
		return models.Team{}, err
	}
	id, err := tx.CreateTeam(ctx, models.Team{
		EventID:   ev.ID,
		Name:      name,
		LeaderID:  &u.ID,
		Confirmed: confirmed,
	})
	if err != nil {
		return models.Team{}, err
	}
	if err := tx.AddMember(ctx, id, u.ID, 1); err != nil {
		return models.Team{}, err
	}
	return loadTeam(ctx, tx, id)
}

// soloTeamName names the n-th entry of a user "{uid}" or "{uid}-{n}",
// moving past suffixes left behind by deleted entries.
func soloTeamName(ctx context.Context, tx *store.Tx, eventID, userID int64, n int) (string, error) {
	for ; ; n++ {
		name := strconv.FormatInt(userID, 10)
		if n > 1 {
			name = fmt.Sprintf("%d-%d", userID, n)
		}
		taken, err := tx.TeamNameTaken(ctx, eventID, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
}
