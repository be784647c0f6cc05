package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

/* ===================== CRITERIA ===================== */

var criteriaColumns = []string{"id", "event_id", "round_no", "name", "type"}

func scanCriteria(r rowScanner) (models.Criteria, error) {
	var c models.Criteria
	err := r.Scan(&c.ID, &c.EventID, &c.RoundNo, &c.Name, &c.Type)
	return c, err
}

func (t *Tx) GetCriteria(ctx context.Context, id int64) (models.Criteria, error) {
	c, err := scanCriteria(t.row(ctx, t.sb.Select(criteriaColumns...).From("criteria").Where(sq.Eq{"id": id})))
	if err != nil {
		return models.Criteria{}, notFound(err, "criteria")
	}
	return c, nil
}

func (t *Tx) ListCriteria(ctx context.Context, eventID int64, roundNo int) ([]models.Criteria, error) {
	rows, err := t.query(ctx, t.sb.Select(criteriaColumns...).From("criteria").
		Where(sq.Eq{"event_id": eventID, "round_no": roundNo}).
		OrderBy("id ASC"))
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	defer rows.Close()

	var out []models.Criteria
	for rows.Next() {
		c, err := scanCriteria(rows)
		if err != nil {
			return nil, fmt.Errorf("scan criteria: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *Tx) CountCriteria(ctx context.Context, eventID int64, roundNo int) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COUNT(*)").From("criteria").
		Where(sq.Eq{"event_id": eventID, "round_no": roundNo}))
	if err != nil {
		return 0, fmt.Errorf("count criteria: %w", err)
	}
	return n, nil
}

func (t *Tx) CreateCriteria(ctx context.Context, c models.Criteria) (int64, error) {
	id, err := t.insertID(ctx, t.sb.Insert("criteria").
		Columns("event_id", "round_no", "name", "type").
		Values(c.EventID, c.RoundNo, c.Name, c.Type))
	if err != nil {
		return 0, fmt.Errorf("insert criteria: %w", err)
	}
	return id, nil
}

func (t *Tx) DeleteCriteria(ctx context.Context, id int64) error {
	if _, err := t.exec(ctx, t.sb.Delete("criteria").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("delete criteria: %w", err)
	}
	return nil
}

/* ===================== WINNERS ===================== */

var winnerColumns = []string{"id", "event_id", "team_id", "type"}

func (t *Tx) scanWinners(ctx context.Context, q sq.SelectBuilder) ([]models.Winner, error) {
	rows, err := t.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	defer rows.Close()

	var out []models.Winner
	for rows.Next() {
		var w models.Winner
		if err := rows.Scan(&w.ID, &w.EventID, &w.TeamID, &w.Type); err != nil {
			return nil, fmt.Errorf("scan winner: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (t *Tx) GetWinner(ctx context.Context, id int64) (models.Winner, error) {
	var w models.Winner
	err := t.row(ctx, t.sb.Select(winnerColumns...).From("winners").Where(sq.Eq{"id": id})).
		Scan(&w.ID, &w.EventID, &w.TeamID, &w.Type)
	if err != nil {
		return models.Winner{}, notFound(err, "winner")
	}
	return w, nil
}

// CreateWinner records a placing. A second team for the same placing, or a
// second placing for the same team, yields ErrConflict.
func (t *Tx) CreateWinner(ctx context.Context, w models.Winner) (int64, error) {
	id, err := t.insertID(ctx, t.sb.Insert("winners").
		Columns("event_id", "team_id", "type").
		Values(w.EventID, w.TeamID, w.Type))
	if err != nil {
		return 0, fmt.Errorf("insert winner: %w", err)
	}
	return id, nil
}

func (t *Tx) DeleteWinner(ctx context.Context, id int64) error {
	if _, err := t.exec(ctx, t.sb.Delete("winners").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("delete winner: %w", err)
	}
	return nil
}

// PlacingTaken reports whether the event already awards the placing or the
// team already holds one.
func (t *Tx) PlacingTaken(ctx context.Context, eventID, teamID int64, typ models.WinnerType) (bool, error) {
	return t.exists(ctx, t.sb.Select("COUNT(*)").From("winners").
		Where(sq.Eq{"event_id": eventID}).
		Where(sq.Or{sq.Eq{"type": typ}, sq.Eq{"team_id": teamID}}))
}

func (t *Tx) WinnersByEvent(ctx context.Context, eventID int64) ([]models.Winner, error) {
	return t.scanWinners(ctx, t.sb.Select(winnerColumns...).From("winners").
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("id ASC"))
}

func (t *Tx) AllWinners(ctx context.Context) ([]models.Winner, error) {
	return t.scanWinners(ctx, t.sb.Select(winnerColumns...).From("winners").
		OrderBy("event_id ASC", "id ASC"))
}
