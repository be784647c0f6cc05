package fest

import (
	"context"
	"fmt"
	"strings"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/notify"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// CreateCriteria adds a judging axis to a round. An empty name becomes
// "Criteria N" and an empty type becomes NUMBER.
func (s *Service) CreateCriteria(ctx context.Context, actor *models.User, eventID int64, roundNo int, name string, typ models.CriteriaType) (models.Criteria, error) {
	if err := s.policy.Gate(actor, ActCreateCriteria); err != nil {
		return models.Criteria{}, err
	}
	if typ == "" {
		typ = models.CriteriaNumber
	}
	if !typ.Valid() {
		return models.Criteria{}, invariant("Invalid criteria type %q", typ)
	}

	c := models.Criteria{EventID: eventID, RoundNo: roundNo, Name: strings.TrimSpace(name), Type: typ}
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if _, err := loadRound(ctx, tx, eventID, roundNo); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActCreateCriteria, Target{EventID: eventID, RoundNo: roundNo}); err != nil {
			return err
		}
		if c.Name == "" {
			n, err := tx.CountCriteria(ctx, eventID, roundNo)
			if err != nil {
				return err
			}
			c.Name = fmt.Sprintf("Criteria %d", n+1)
		}
		var err error
		if c.ID, err = tx.CreateCriteria(ctx, c); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActCreateCriteria, "event=%d round=%d criteria=%d", eventID, roundNo, c.ID)
	})
	if err != nil {
		return models.Criteria{}, err
	}
	return c, nil
}

// DeleteCriteria removes a criteria of the given round.
func (s *Service) DeleteCriteria(ctx context.Context, actor *models.User, eventID int64, roundNo int, criteriaID int64) (models.Criteria, error) {
	if err := s.policy.Gate(actor, ActDeleteCriteria); err != nil {
		return models.Criteria{}, err
	}

	var c models.Criteria
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if _, err := loadRound(ctx, tx, eventID, roundNo); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActDeleteCriteria, Target{EventID: eventID, RoundNo: roundNo}); err != nil {
			return err
		}
		var err error
		c, err = tx.GetCriteria(ctx, criteriaID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if err != nil || c.EventID != eventID || c.RoundNo != roundNo {
			return notFound("No Criteria with id %d", criteriaID)
		}
		if err := tx.DeleteCriteria(ctx, c.ID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActDeleteCriteria, "event=%d round=%d criteria=%d", eventID, roundNo, c.ID)
	})
	return c, err
}

// Criteria lists the judging axes of a round.
func (s *Service) Criteria(ctx context.Context, actor *models.User, eventID int64, roundNo int) ([]models.Criteria, error) {
	if err := s.policy.Gate(actor, ActViewCriteria); err != nil {
		return nil, err
	}
	out := []models.Criteria{}
	err := s.view(ctx, func(tx *store.Tx) error {
		if _, err := loadRound(ctx, tx, eventID, roundNo); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActViewCriteria, Target{EventID: eventID, RoundNo: roundNo}); err != nil {
			return err
		}
		list, err := tx.ListCriteria(ctx, eventID, roundNo)
		if err != nil {
			return err
		}
		out = append(out, list...)
		return nil
	})
	return out, err
}

// finalRound returns the number of the event's last round.
func finalRound(ctx context.Context, tx *store.Tx, eventID int64) (int, error) {
	n, err := tx.MaxRoundNo(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, invariant("Event has no rounds")
	}
	return n, nil
}

// CreateWinner awards a placing to a confirmed team that reached the final
// round. Each placing goes to one team and each team holds one placing.
func (s *Service) CreateWinner(ctx context.Context, actor *models.User, eventID, teamID int64, typ models.WinnerType) (models.Winner, error) {
	if err := s.policy.Gate(actor, ActCreateWinner); err != nil {
		return models.Winner{}, err
	}
	if !typ.Valid() {
		return models.Winner{}, invariant("Invalid winner type %q", typ)
	}

	w := models.Winner{EventID: eventID, TeamID: teamID, Type: typ}
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		final, err := finalRound(ctx, tx, ev.ID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActCreateWinner, Target{EventID: ev.ID, RoundNo: final}); err != nil {
			return err
		}
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		switch {
		case team.EventID != ev.ID:
			return invariant("Team does not belong to this event")
		case !team.Confirmed:
			return invariant("Team is not confirmed")
		case team.RoundNo != final:
			return invariant("Team is not in the final round")
		}
		taken, err := tx.PlacingTaken(ctx, ev.ID, team.ID, typ)
		if err != nil {
			return err
		}
		if taken {
			return invariant("Winner already exists")
		}
		if w.ID, err = tx.CreateWinner(ctx, w); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActCreateWinner, "event=%d team=%d type=%s", ev.ID, team.ID, typ)
	})
	if err != nil {
		return models.Winner{}, err
	}
	s.publish(ctx, notify.WinnerTopic(eventID), w)
	return w, nil
}

// DeleteWinner withdraws a placing.
func (s *Service) DeleteWinner(ctx context.Context, actor *models.User, winnerID int64) (models.Winner, error) {
	if err := s.policy.Gate(actor, ActDeleteWinner); err != nil {
		return models.Winner{}, err
	}

	var w models.Winner
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if w, err = tx.GetWinner(ctx, winnerID); err != nil {
			return translate(err, "Winner")
		}
		final, err := finalRound(ctx, tx, w.EventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActDeleteWinner, Target{EventID: w.EventID, RoundNo: final}); err != nil {
			return err
		}
		if err := tx.DeleteWinner(ctx, w.ID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActDeleteWinner, "event=%d team=%d type=%s", w.EventID, w.TeamID, w.Type)
	})
	if err != nil {
		return models.Winner{}, err
	}
	s.publish(ctx, notify.WinnerTopic(w.EventID), w)
	return w, nil
}

// WinnersByEvent lists the placings of one event.
func (s *Service) WinnersByEvent(ctx context.Context, actor *models.User, eventID int64) ([]models.Winner, error) {
	if err := s.policy.Gate(actor, ActViewWinners); err != nil {
		return nil, err
	}
	out := []models.Winner{}
	err := s.view(ctx, func(tx *store.Tx) error {
		if _, err := loadEvent(ctx, tx, eventID); err != nil {
			return err
		}
		list, err := tx.WinnersByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		out = append(out, list...)
		return nil
	})
	return out, err
}

// AllWinners lists every placing of the fest.
func (s *Service) AllWinners(ctx context.Context, actor *models.User) ([]models.Winner, error) {
	if err := s.policy.Gate(actor, ActViewWinners); err != nil {
		return nil, err
	}
	out := []models.Winner{}
	err := s.view(ctx, func(tx *store.Tx) error {
		list, err := tx.AllWinners(ctx)
		if err != nil {
			return err
		}
		out = append(out, list...)
		return nil
	})
	return out, err
}
