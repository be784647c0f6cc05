package fest

import (
	"context"
	"net/mail"
	"strings"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// SignUp is a new account. Password hashing is the caller's job.
type SignUp struct {
	Name      string
	Email     string
	PassHash  string
	CollegeID *int64
}

// Register creates a USER account.
func (s *Service) Register(ctx context.Context, in SignUp) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return models.User{}, invariant("Name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return models.User{}, invariant("Invalid email")
	}

	var u models.User
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if _, _, err := tx.GetUserByEmail(ctx, in.Email); err == nil {
			return invariant("Email already registered")
		} else if !isNotFound(err) {
			return err
		}
		id, err := tx.CreateUser(ctx, models.User{
			Name:      in.Name,
			Email:     in.Email,
			Role:      models.RoleUser,
			CollegeID: in.CollegeID,
		}, in.PassHash)
		if err != nil {
			return err
		}
		if u, err = tx.GetUser(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, &u, "register", "user=%d", id)
	})
	return u, err
}

// Credentials returns the account and password hash for email.
func (s *Service) Credentials(ctx context.Context, email string) (models.User, string, error) {
	var (
		u    models.User
		hash string
	)
	err := s.view(ctx, func(tx *store.Tx) error {
		var err error
		u, hash, err = tx.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		return translate(err, "User")
	})
	return u, hash, err
}

// RecordLogin writes the audit row for a successful sign-in.
func (s *Service) RecordLogin(ctx context.Context, u *models.User) error {
	return s.inTx(ctx, func(tx *store.Tx) error {
		return s.audit(ctx, tx, u, "login", "user=%d", u.ID)
	})
}

// Identify resolves the user behind an authenticated request.
func (s *Service) Identify(ctx context.Context, userID int64) (models.User, error) {
	var u models.User
	err := s.view(ctx, func(tx *store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, userID)
		return translate(err, "User")
	})
	return u, err
}

// Events lists published events, or all of them for an admin.
func (s *Service) Events(ctx context.Context, actor *models.User) ([]models.Event, error) {
	all := actor != nil && actor.Role == models.RoleAdmin
	var events []models.Event
	err := s.view(ctx, func(tx *store.Tx) error {
		var err error
		events, err = tx.ListEvents(ctx, all)
		return err
	})
	return events, err
}
