// Package fest is the registration and progression rule engine: eligibility,
// team membership, rounds, attendance rewards and the authorization policy
// that guards them.
//
// Every operation takes the acting user (nil when the request carried no
// identity) and returns either the affected entity or an *Error whose Kind
// is stable for clients.
package fest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/notify"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

type Service struct {
	store     *store.Store
	policy    Policy
	publisher notify.Publisher
	logger    *slog.Logger
}

type Option func(*Service)

func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		policy: NewPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = notify.LogPublisher{Logger: s.logger}
	}
	return s
}

// inTx runs fn in one store transaction and folds store errors into kinds.
func (s *Service) inTx(ctx context.Context, fn func(*store.Tx) error) error {
	return translate(s.store.InTx(ctx, fn), "Record")
}

func (s *Service) view(ctx context.Context, fn func(*store.Tx) error) error {
	return translate(s.store.View(ctx, fn), "Record")
}

// publish announces a change. Failures are logged and never reach the caller.
func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "notify failed", "topic", topic, "err", err)
	}
}

func (s *Service) audit(ctx context.Context, tx *store.Tx, actor *models.User, action Action, format string, args ...any) error {
	var actorID *int64
	if actor != nil {
		actorID = &actor.ID
	}
	details := fmt.Sprintf(format, args...)
	if err := tx.LogAction(ctx, actorID, string(action), details); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "audit", "action", action, "actor", actorID, "details", details)
	return nil
}

func loadEvent(ctx context.Context, tx *store.Tx, id int64) (models.Event, error) {
	ev, err := tx.GetEvent(ctx, id)
	return ev, translate(err, "Event")
}

func loadTeam(ctx context.Context, tx *store.Tx, id int64) (models.Team, error) {
	t, err := tx.GetTeam(ctx, id)
	return t, translate(err, "Team")
}

func loadRound(ctx context.Context, tx *store.Tx, eventID int64, roundNo int) (models.Round, error) {
	r, err := tx.GetRound(ctx, eventID, roundNo)
	return r, translate(err, "Round")
}

// loadParticipant returns a user that can be registered by an organizer.
func loadParticipant(ctx context.Context, tx *store.Tx, id int64) (models.User, error) {
	u, err := tx.GetUser(ctx, id)
	if err != nil || u.Role == models.RoleUser || u.Role == models.RoleJudge {
		if err != nil && !isNotFound(err) {
			return models.User{}, translate(err, "User")
		}
		return models.User{}, notFound("No participant with id %d", id)
	}
	return u, nil
}

func isNotFound(err error) bool {
	return KindOf(translate(err, "")) == KindNotFound
}
