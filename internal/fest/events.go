package fest

import (
	"context"
	"errors"
	"strings"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// EventInput is the body of CreateEvent. Zero values take defaults: type
// INDIVIDUAL, category TECHNICAL, team size 1..1, unlimited teams.
type EventInput struct {
	Name                      string               `json:"name"`
	Description               string               `json:"description"`
	Venue                     string               `json:"venue"`
	Category                  models.EventCategory `json:"category"`
	Type                      models.EventType     `json:"event_type"`
	MinTeamSize               int                  `json:"min_team_size"`
	MaxTeamSize               int                  `json:"max_team_size"`
	MaxTeams                  int                  `json:"max_teams"`
	Fees                      int                  `json:"fees"`
	EnforceCollegeHomogeneity *bool                `json:"enforce_college_homogeneity"`
}

func (in EventInput) event(branchID int64) models.Event {
	ev := models.Event{
		Name:                      strings.TrimSpace(in.Name),
		Description:               in.Description,
		Venue:                     in.Venue,
		Category:                  in.Category,
		Type:                      in.Type,
		MinTeamSize:               in.MinTeamSize,
		MaxTeamSize:               in.MaxTeamSize,
		MaxTeams:                  in.MaxTeams,
		Fees:                      in.Fees,
		BranchID:                  branchID,
		EnforceCollegeHomogeneity: true,
	}
	if ev.Category == "" {
		ev.Category = models.CategoryTechnical
	}
	if ev.Type == "" {
		ev.Type = models.EventIndividual
	}
	if ev.MinTeamSize == 0 {
		ev.MinTeamSize = 1
	}
	if ev.MaxTeamSize == 0 {
		ev.MaxTeamSize = ev.MinTeamSize
	}
	if in.EnforceCollegeHomogeneity != nil {
		ev.EnforceCollegeHomogeneity = *in.EnforceCollegeHomogeneity
	}
	return ev
}

func validateEvent(ev models.Event) error {
	switch {
	case ev.Name == "":
		return invariant("Event name is required")
	case !ev.Category.Valid():
		return invariant("Invalid event category %q", ev.Category)
	case !ev.Type.Valid():
		return invariant("Invalid event type %q", ev.Type)
	case ev.MinTeamSize < 1 || ev.MaxTeamSize < ev.MinTeamSize:
		return invariant("Invalid team size %d..%d", ev.MinTeamSize, ev.MaxTeamSize)
	case ev.Type.Individual() && ev.MaxTeamSize != 1:
		return invariant("Individual events have teams of one")
	case ev.MaxTeams < 0:
		return invariant("Max teams cannot be negative")
	case ev.MaxTeams > 0 && ev.MaxTeams < ev.ConfirmedTeams:
		return invariant("Event already has %d confirmed teams", ev.ConfirmedTeams)
	case ev.Fees < 0:
		return invariant("Fees cannot be negative")
	}
	return nil
}

// CreateEvent adds an unpublished event under the actor's branch.
func (s *Service) CreateEvent(ctx context.Context, actor *models.User, in EventInput) (models.Event, error) {
	if err := s.policy.Gate(actor, ActCreateEvent); err != nil {
		return models.Event{}, err
	}

	var ev models.Event
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if err := s.policy.Authorize(ctx, tx, actor, ActCreateEvent, Target{}); err != nil {
			return err
		}
		branchID, err := tx.BranchOf(ctx, actor.ID)
		if err != nil {
			return translate(err, "Branch")
		}
		ev = in.event(branchID)
		if err := validateEvent(ev); err != nil {
			return err
		}
		if ev.ID, err = tx.CreateEvent(ctx, ev); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActCreateEvent, "event=%d branch=%d name=%q", ev.ID, branchID, ev.Name)
	})
	return ev, err
}

// UpdateEvent changes the fields set in patch.
func (s *Service) UpdateEvent(ctx context.Context, actor *models.User, eventID int64, patch store.EventPatch) (models.Event, error) {
	if err := s.policy.Gate(actor, ActUpdateEvent); err != nil {
		return models.Event{}, err
	}

	var ev models.Event
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if ev, err = loadEvent(ctx, tx, eventID); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActUpdateEvent, Target{EventID: ev.ID, BranchID: ev.BranchID}); err != nil {
			return err
		}
		next := applyPatch(ev, patch)
		if err := validateEvent(next); err != nil {
			return err
		}
		if err := checkAgainstTeams(ctx, tx, ev, next); err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, ev.ID, patch); err != nil {
			return err
		}
		if ev, err = loadEvent(ctx, tx, eventID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActUpdateEvent, "event=%d", ev.ID)
	})
	return ev, err
}

// checkAgainstTeams refuses changes the event's existing teams would violate.
func checkAgainstTeams(ctx context.Context, tx *store.Tx, cur, next models.Event) error {
	if next.Type == cur.Type && next.MaxTeamSize >= cur.MaxTeamSize {
		return nil
	}
	teams, largest, err := tx.TeamStats(ctx, cur.ID)
	if err != nil {
		return err
	}
	if teams == 0 {
		return nil
	}
	if next.Type != cur.Type {
		return invariant("Event type cannot change once teams exist")
	}
	if next.MaxTeamSize < largest {
		return invariant("A team already has %d members", largest)
	}
	return nil
}

func applyPatch(ev models.Event, p store.EventPatch) models.Event {
	if p.Name != nil {
		ev.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		ev.Description = *p.Description
	}
	if p.Venue != nil {
		ev.Venue = *p.Venue
	}
	if p.Category != nil {
		ev.Category = *p.Category
	}
	if p.Type != nil {
		ev.Type = *p.Type
	}
	if p.MinTeamSize != nil {
		ev.MinTeamSize = *p.MinTeamSize
	}
	if p.MaxTeamSize != nil {
		ev.MaxTeamSize = *p.MaxTeamSize
	}
	if p.MaxTeams != nil {
		ev.MaxTeams = *p.MaxTeams
	}
	if p.Fees != nil {
		ev.Fees = *p.Fees
	}
	if p.EnforceCollegeHomogeneity != nil {
		ev.EnforceCollegeHomogeneity = *p.EnforceCollegeHomogeneity
	}
	return ev
}

// DeleteEvent removes an unpublished event and everything under it.
func (s *Service) DeleteEvent(ctx context.Context, actor *models.User, eventID int64) (models.Event, error) {
	if err := s.policy.Gate(actor, ActDeleteEvent); err != nil {
		return models.Event{}, err
	}

	var ev models.Event
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if ev, err = loadEvent(ctx, tx, eventID); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActDeleteEvent, Target{EventID: ev.ID, BranchID: ev.BranchID}); err != nil {
			return err
		}
		if ev.Published {
			return invariant("Event is published")
		}
		if err := tx.DeleteEvent(ctx, ev.ID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActDeleteEvent, "event=%d name=%q", ev.ID, ev.Name)
	})
	return ev, err
}

func (s *Service) PublishEvent(ctx context.Context, actor *models.User, eventID int64, published bool) (models.Event, error) {
	if err := s.policy.Gate(actor, ActPublishEvent); err != nil {
		return models.Event{}, err
	}

	var ev models.Event
	err := s.inTx(ctx, func(tx *store.Tx) error {
		var err error
		if ev, err = loadEvent(ctx, tx, eventID); err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActPublishEvent, Target{EventID: ev.ID}); err != nil {
			return err
		}
		if err := tx.SetEventPublished(ctx, ev.ID, published); err != nil {
			return err
		}
		ev.Published = published
		return s.audit(ctx, tx, actor, ActPublishEvent, "event=%d published=%t", ev.ID, published)
	})
	return ev, err
}

// Event returns one event. Unpublished events are visible to the people
// who may edit them.
func (s *Service) Event(ctx context.Context, actor *models.User, eventID int64) (models.Event, error) {
	var ev models.Event
	err := s.view(ctx, func(tx *store.Tx) error {
		var err error
		if ev, err = loadEvent(ctx, tx, eventID); err != nil {
			return err
		}
		if ev.Published {
			return nil
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActUpdateEvent, Target{EventID: ev.ID, BranchID: ev.BranchID}); err != nil {
			return notFound("Event not found")
		}
		return nil
	})
	return ev, err
}

// AddOrganizer makes a user an organizer of an event of the actor's branch.
// Participants are promoted to the ORGANIZER role.
func (s *Service) AddOrganizer(ctx context.Context, actor *models.User, eventID, userID int64) (models.Organizer, error) {
	if err := s.policy.Gate(actor, ActAddOrganizer); err != nil {
		return models.Organizer{}, err
	}

	org := models.Organizer{UserID: userID, EventID: eventID}
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActAddOrganizer, Target{EventID: ev.ID, BranchID: ev.BranchID}); err != nil {
			return err
		}
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return translate(err, "User")
		}
		already, err := tx.IsOrganizer(ctx, ev.ID, u.ID)
		if err != nil {
			return err
		}
		if already {
			return invariant("User is already an organizer of this event")
		}
		if err := tx.AddOrganizer(ctx, ev.ID, u.ID); err != nil {
			return err
		}
		if u.Role == models.RoleParticipant || u.Role == models.RoleUser {
			if err := tx.SetUserRole(ctx, u.ID, models.RoleOrganizer); err != nil {
				return err
			}
		}
		return s.audit(ctx, tx, actor, ActAddOrganizer, "event=%d user=%d", ev.ID, u.ID)
	})
	return org, err
}

// RemoveOrganizer drops an organizer. Someone who organizes nothing else
// goes back to PARTICIPANT.
func (s *Service) RemoveOrganizer(ctx context.Context, actor *models.User, eventID, userID int64) (models.Organizer, error) {
	if err := s.policy.Gate(actor, ActRemoveOrganizer); err != nil {
		return models.Organizer{}, err
	}

	org := models.Organizer{UserID: userID, EventID: eventID}
	err := s.inTx(ctx, func(tx *store.Tx) error {
		ev, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, ActRemoveOrganizer, Target{EventID: ev.ID, BranchID: ev.BranchID}); err != nil {
			return err
		}
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return translate(err, "User")
		}
		if err := tx.RemoveOrganizer(ctx, ev.ID, u.ID); err != nil {
			return translate(err, "Organizer")
		}
		left, err := tx.OrganizedEvents(ctx, u.ID)
		if err != nil {
			return err
		}
		if left == 0 && u.Role == models.RoleOrganizer {
			if err := tx.SetUserRole(ctx, u.ID, models.RoleParticipant); err != nil {
				return err
			}
		}
		return s.audit(ctx, tx, actor, ActRemoveOrganizer, "event=%d user=%d", ev.ID, u.ID)
	})
	return org, err
}

// AddBranchRep puts a user in charge of a branch.
func (s *Service) AddBranchRep(ctx context.Context, actor *models.User, branchID, userID int64) (models.BranchRep, error) {
	if err := s.policy.Gate(actor, ActAddBranchRep); err != nil {
		return models.BranchRep{}, err
	}

	rep := models.BranchRep{UserID: userID, BranchID: branchID}
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if err := s.policy.Authorize(ctx, tx, actor, ActAddBranchRep, Target{BranchID: branchID}); err != nil {
			return err
		}
		ok, err := tx.BranchExists(ctx, branchID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("No branch with id %d", branchID)
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return translate(err, "User")
		}
		_, err = tx.BranchOf(ctx, userID)
		switch {
		case err == nil:
			return invariant("User already represents a branch")
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		if err := tx.AddBranchRep(ctx, userID, branchID); err != nil {
			return err
		}
		if err := tx.SetUserRole(ctx, userID, models.RoleBranchRep); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActAddBranchRep, "branch=%d user=%d", branchID, userID)
	})
	return rep, err
}

// RemoveBranchRep takes a branch away from a user. Their role falls back to
// PARTICIPANT if they have paid for the fest, otherwise USER.
func (s *Service) RemoveBranchRep(ctx context.Context, actor *models.User, branchID, userID int64) (models.BranchRep, error) {
	if err := s.policy.Gate(actor, ActRemoveBranchRep); err != nil {
		return models.BranchRep{}, err
	}

	rep := models.BranchRep{UserID: userID, BranchID: branchID}
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if err := s.policy.Authorize(ctx, tx, actor, ActRemoveBranchRep, Target{BranchID: branchID}); err != nil {
			return err
		}
		ok, err := tx.BranchExists(ctx, branchID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("No branch with id %d", branchID)
		}
		current, err := tx.BranchOf(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("No branch under user")
			}
			return err
		}
		if current != branchID {
			return forbidden("User represents another branch")
		}
		role := models.RoleUser
		paid, err := tx.HasSettledPayment(ctx, userID)
		if err != nil {
			return err
		}
		if paid {
			role = models.RoleParticipant
		}
		if err := tx.RemoveBranchRep(ctx, userID); err != nil {
			return err
		}
		if err := tx.SetUserRole(ctx, userID, role); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActRemoveBranchRep, "branch=%d user=%d role=%s", branchID, userID, role)
	})
	return rep, err
}

// SetRole assigns any role to a user.
func (s *Service) SetRole(ctx context.Context, actor *models.User, userID int64, role models.Role) (models.User, error) {
	if err := s.policy.Gate(actor, ActSetRole); err != nil {
		return models.User{}, err
	}
	if !role.Valid() {
		return models.User{}, invariant("Invalid role %q", role)
	}

	var u models.User
	err := s.inTx(ctx, func(tx *store.Tx) error {
		if err := tx.SetUserRole(ctx, userID, role); err != nil {
			return translate(err, "User")
		}
		var err error
		if u, err = tx.GetUser(ctx, userID); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActSetRole, "user=%d role=%s", userID, role)
	})
	return u, err
}

func (s *Service) Users(ctx context.Context, actor *models.User, limit uint64) ([]models.User, error) {
	if err := s.policy.Gate(actor, ActViewAudit); err != nil {
		return nil, err
	}
	var users []models.User
	err := s.view(ctx, func(tx *store.Tx) error {
		var err error
		users, err = tx.ListUsers(ctx, limitOr(limit, 200))
		return err
	})
	return users, err
}

func (s *Service) AuditLogs(ctx context.Context, actor *models.User, limit uint64) ([]models.AuditEntry, error) {
	if err := s.policy.Gate(actor, ActViewAudit); err != nil {
		return nil, err
	}
	var logs []models.AuditEntry
	err := s.view(ctx, func(tx *store.Tx) error {
		var err error
		logs, err = tx.AuditLogs(ctx, limitOr(limit, 200))
		return err
	})
	return logs, err
}

func limitOr(limit, ceiling uint64) uint64 {
	if limit == 0 || limit > ceiling {
		return ceiling
	}
	return limit
}
