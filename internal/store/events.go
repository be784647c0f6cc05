package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

var eventColumns = []string{
	"id", "name", "description", "venue", "category", "event_type",
	"min_team_size", "max_team_size", "max_teams", "fees", "published",
	"branch_id", "enforce_college_homogeneity", "confirmed_teams",
}

func scanEvent(r rowScanner) (models.Event, error) {
	var e models.Event
	err := r.Scan(&e.ID, &e.Name, &e.Description, &e.Venue, &e.Category, &e.Type,
		&e.MinTeamSize, &e.MaxTeamSize, &e.MaxTeams, &e.Fees, &e.Published,
		&e.BranchID, &e.EnforceCollegeHomogeneity, &e.ConfirmedTeams)
	return e, err
}

func (t *Tx) GetEvent(ctx context.Context, id int64) (models.Event, error) {
	e, err := scanEvent(t.row(ctx, t.sb.Select(eventColumns...).From("events").Where(sq.Eq{"id": id})))
	if err != nil {
		return models.Event{}, notFound(err, "event")
	}
	return e, nil
}

func (t *Tx) CreateEvent(ctx context.Context, e models.Event) (int64, error) {
	id, err := t.insertID(ctx, t.sb.Insert("events").
		Columns("name", "description", "venue", "category", "event_type",
			"min_team_size", "max_team_size", "max_teams", "fees", "published",
			"branch_id", "enforce_college_homogeneity").
		Values(e.Name, e.Description, e.Venue, e.Category, e.Type,
			e.MinTeamSize, e.MaxTeamSize, e.MaxTeams, e.Fees, e.Published,
			e.BranchID, e.EnforceCollegeHomogeneity))
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// ListEvents returns events ordered by id; unpublished ones only when all is set.
func (t *Tx) ListEvents(ctx context.Context, all bool) ([]models.Event, error) {
	q := t.sb.Select(eventColumns...).From("events").OrderBy("id ASC")
	if !all {
		q = q.Where(sq.Eq{"published": true})
	}
	rows, err := t.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EventPatch lists the columns an update may change; nil fields are left alone.
type EventPatch struct {
	Name                      *string
	Description               *string
	Venue                     *string
	Category                  *models.EventCategory
	Type                      *models.EventType
	MinTeamSize               *int
	MaxTeamSize               *int
	MaxTeams                  *int
	Fees                      *int
	EnforceCollegeHomogeneity *bool
}

func (p EventPatch) setMap() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Venue != nil {
		m["venue"] = *p.Venue
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.Type != nil {
		m["event_type"] = *p.Type
	}
	if p.MinTeamSize != nil {
		m["min_team_size"] = *p.MinTeamSize
	}
	if p.MaxTeamSize != nil {
		m["max_team_size"] = *p.MaxTeamSize
	}
	if p.MaxTeams != nil {
		m["max_teams"] = *p.MaxTeams
	}
	if p.Fees != nil {
		m["fees"] = *p.Fees
	}
	if p.EnforceCollegeHomogeneity != nil {
		m["enforce_college_homogeneity"] = *p.EnforceCollegeHomogeneity
	}
	return m
}

func (t *Tx) UpdateEvent(ctx context.Context, id int64, patch EventPatch) error {
	set := patch.setMap()
	if len(set) == 0 {
		return nil
	}
	if _, err := t.exec(ctx, t.sb.Update("events").SetMap(set).Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (t *Tx) SetEventPublished(ctx context.Context, id int64, published bool) error {
	_, err := t.exec(ctx, t.sb.Update("events").Set("published", published).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update event published: %w", err)
	}
	return nil
}

// DeleteEvent removes the event together with its teams, rounds and levels.
func (t *Tx) DeleteEvent(ctx context.Context, id int64) error {
	teamIDs := t.sb.Select("id").From("teams").Where(sq.Eq{"event_id": id})
	levelIDs := t.sb.Select("id").From("levels").Where(sq.Eq{"event_id": id})
	steps := []sq.Sqlizer{
		t.sb.Delete("team_members").Where(sq.Expr("team_id IN (?)", teamIDs)),
		t.sb.Delete("teams").Where(sq.Eq{"event_id": id}),
		t.sb.Delete("judges").Where(sq.Eq{"event_id": id}),
		t.sb.Delete("rounds").Where(sq.Eq{"event_id": id}),
		t.sb.Delete("xps").Where(sq.Expr("level_id IN (?)", levelIDs)),
		t.sb.Delete("levels").Where(sq.Eq{"event_id": id}),
		t.sb.Delete("organizers").Where(sq.Eq{"event_id": id}),
		t.sb.Delete("events").Where(sq.Eq{"id": id}),
	}
	for _, q := range steps {
		if _, err := t.exec(ctx, q); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
	}
	return nil
}

// ClaimConfirmSlot bumps the event's confirmed-team counter unless the
// quota is already exhausted, in which case it returns ErrConflict.
func (t *Tx) ClaimConfirmSlot(ctx context.Context, eventID int64) error {
	res, err := t.exec(ctx, t.sb.Update("events").
		Set("confirmed_teams", sq.Expr("confirmed_teams + 1")).
		Where(sq.Eq{"id": eventID}).
		Where(sq.Or{sq.Eq{"max_teams": 0}, sq.Expr("confirmed_teams < max_teams")}))
	if err != nil {
		return fmt.Errorf("claim confirm slot: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %d has no free team slot: %w", eventID, ErrConflict)
	}
	return nil
}

func (t *Tx) ReleaseConfirmSlot(ctx context.Context, eventID int64) error {
	_, err := t.exec(ctx, t.sb.Update("events").
		Set("confirmed_teams", sq.Expr("confirmed_teams - 1")).
		Where(sq.Eq{"id": eventID}).
		Where(sq.Gt{"confirmed_teams": 0}))
	if err != nil {
		return fmt.Errorf("release confirm slot: %w", err)
	}
	return nil
}

func (t *Tx) IsOrganizer(ctx context.Context, eventID, userID int64) (bool, error) {
	return t.exists(ctx, t.sb.Select("COUNT(*)").From("organizers").
		Where(sq.Eq{"event_id": eventID, "user_id": userID}))
}

func (t *Tx) AddOrganizer(ctx context.Context, eventID, userID int64) error {
	_, err := t.exec(ctx, t.sb.Insert("organizers").Columns("user_id", "event_id").Values(userID, eventID))
	if err != nil {
		return fmt.Errorf("insert organizer: %w", err)
	}
	return nil
}

func (t *Tx) RemoveOrganizer(ctx context.Context, eventID, userID int64) error {
	res, err := t.exec(ctx, t.sb.Delete("organizers").Where(sq.Eq{"event_id": eventID, "user_id": userID}))
	if err != nil {
		return fmt.Errorf("delete organizer: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("organizer: %w", ErrNotFound)
	}
	return nil
}

// OrganizedEvents counts the events the user organizes.
func (t *Tx) OrganizedEvents(ctx context.Context, userID int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COUNT(*)").From("organizers").Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return 0, fmt.Errorf("count organized events: %w", err)
	}
	return n, nil
}

// CoreEventsOf counts distinct CORE events in which the user holds a team membership.
func (t *Tx) CoreEventsOf(ctx context.Context, userID int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COUNT(DISTINCT e.id)").
		From("events e").
		Join("teams t ON t.event_id = e.id").
		Join("team_members tm ON tm.team_id = t.id").
		Where(sq.Eq{"tm.user_id": userID, "e.category": models.CategoryCore}))
	if err != nil {
		return 0, fmt.Errorf("count core registrations: %w", err)
	}
	return n, nil
}
