package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

func (t *Tx) LevelForEvent(ctx context.Context, eventID int64) (models.Level, error) {
	var l models.Level
	err := t.row(ctx, t.sb.Select("id", "event_id", "point").From("levels").
		Where(sq.Eq{"event_id": eventID})).
		Scan(&l.ID, &l.EventID, &l.Point)
	if err != nil {
		return models.Level{}, notFound(err, "level")
	}
	return l, nil
}

func (t *Tx) CreateLevel(ctx context.Context, eventID int64, point int) (models.Level, error) {
	id, err := t.insertID(ctx, t.sb.Insert("levels").Columns("event_id", "point").Values(eventID, point))
	if err != nil {
		return models.Level{}, fmt.Errorf("insert level: %w", err)
	}
	return models.Level{ID: id, EventID: eventID, Point: point}, nil
}

// CountXP counts grants of the level held by any of userIDs.
func (t *Tx) CountXP(ctx context.Context, levelID int64, userIDs []int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COUNT(*)").From("xps").
		Where(sq.Eq{"level_id": levelID, "user_id": userIDs}))
	if err != nil {
		return 0, fmt.Errorf("count xp: %w", err)
	}
	return n, nil
}

func (t *Tx) GrantXP(ctx context.Context, levelID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	q := t.sb.Insert("xps").Columns("user_id", "level_id")
	for _, id := range userIDs {
		q = q.Values(id, levelID)
	}
	if _, err := t.exec(ctx, q); err != nil {
		return fmt.Errorf("insert xp: %w", err)
	}
	return nil
}

func (t *Tx) RevokeXP(ctx context.Context, levelID int64, userIDs []int64) (int64, error) {
	res, err := t.exec(ctx, t.sb.Delete("xps").Where(sq.Eq{"level_id": levelID, "user_id": userIDs}))
	if err != nil {
		return 0, fmt.Errorf("delete xp: %w", err)
	}
	return affected(res)
}

// UserXP sums the points of every level granted to the user.
func (t *Tx) UserXP(ctx context.Context, userID int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COALESCE(SUM(l.point), 0)").
		From("xps x").
		Join("levels l ON l.id = x.level_id").
		Where(sq.Eq{"x.user_id": userID}))
	if err != nil {
		return 0, fmt.Errorf("sum xp: %w", err)
	}
	return n, nil
}

func (t *Tx) Leaderboard(ctx context.Context, limit uint64) ([]models.LeaderboardEntry, error) {
	rows, err := t.query(ctx, t.sb.Select("u.id", "u.name", "SUM(l.point) AS points").
		From("xps x").
		Join("levels l ON l.id = x.level_id").
		Join("users u ON u.id = x.user_id").
		GroupBy("u.id", "u.name").
		OrderBy("points DESC", "u.id ASC").
		Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Points); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
