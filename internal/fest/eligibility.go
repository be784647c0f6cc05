package fest

import (
	"context"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// RegistrationReader is the read model the eligibility rule needs.
type RegistrationReader interface {
	CoreEventsOf(ctx context.Context, userID int64) (int, error)
}

// CanRegister decides whether a user may take part in one more event of the
// given category. Only CORE events are limited: a user from an OTHER college
// who already holds a CORE registration is refused.
func CanRegister(ctx context.Context, r RegistrationReader, userID int64, collegeType models.CollegeType, category models.EventCategory) (bool, error) {
	if category != models.CategoryCore {
		return true, nil
	}
	n, err := r.CoreEventsOf(ctx, userID)
	if err != nil {
		return false, err
	}
	if n > 0 && collegeType == models.CollegeOther {
		return false, nil
	}
	return true, nil
}

// checkEligible applies CanRegister to a registering user. Engineering
// college users are exempt and never consult the evaluator.
func checkEligible(ctx context.Context, r RegistrationReader, u models.User, ev models.Event) error {
	if u.CollegeType == models.CollegeEngineering {
		return nil
	}
	ok, err := CanRegister(ctx, r, u.ID, u.CollegeType, ev.Category)
	if err != nil {
		return translate(err, "Registration")
	}
	if !ok {
		return invariant("Not eligible to register")
	}
	return nil
}

// lockRegistrant serializes one user's registrations. It must run before
// the eligibility and single-entry checks of the transaction.
func lockRegistrant(ctx context.Context, tx *store.Tx, userID int64) error {
	if err := tx.LockUser(ctx, userID); err != nil {
		return translate(err, "User")
	}
	return nil
}

// Eligible reports whether the actor may register for the event.
func (s *Service) Eligible(ctx context.Context, actor *models.User, eventID int64) (bool, error) {
	if err := s.policy.Gate(actor, ActViewSelf); err != nil {
		return false, err
	}
	var ok bool
	err := s.view(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if actor.CollegeType == models.CollegeEngineering {
			ok = true
			return nil
		}
		ok, err = CanRegister(ctx, tx, actor.ID, actor.CollegeType, ev.Category)
		return err
	})
	return ok, err
}
