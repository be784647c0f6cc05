package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

func (t *Tx) GetRound(ctx context.Context, eventID int64, roundNo int) (models.Round, error) {
	var r models.Round
	var dateMs int64
	err := t.row(ctx, t.sb.Select("event_id", "round_no", "date_ms", "completed", "select_status").
		From("rounds").
		Where(sq.Eq{"event_id": eventID, "round_no": roundNo})).
		Scan(&r.EventID, &r.RoundNo, &dateMs, &r.Completed, &r.SelectStatus)
	if err != nil {
		return models.Round{}, notFound(err, "round")
	}
	r.Date = fromMillis(dateMs)
	return r, nil
}

func (t *Tx) ListRounds(ctx context.Context, eventID int64) ([]models.Round, error) {
	rows, err := t.query(ctx, t.sb.Select("event_id", "round_no", "date_ms", "completed", "select_status").
		From("rounds").
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("round_no ASC"))
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []models.Round
	for rows.Next() {
		var r models.Round
		var dateMs int64
		if err := rows.Scan(&r.EventID, &r.RoundNo, &dateMs, &r.Completed, &r.SelectStatus); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.Date = fromMillis(dateMs)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MaxRoundNo returns the highest round number of the event, 0 if none.
func (t *Tx) MaxRoundNo(ctx context.Context, eventID int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COALESCE(MAX(round_no), 0)").From("rounds").
		Where(sq.Eq{"event_id": eventID}))
	if err != nil {
		return 0, fmt.Errorf("max round: %w", err)
	}
	return n, nil
}

func (t *Tx) CountRounds(ctx context.Context, eventID int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COUNT(*)").From("rounds").Where(sq.Eq{"event_id": eventID}))
	if err != nil {
		return 0, fmt.Errorf("count rounds: %w", err)
	}
	return n, nil
}

func (t *Tx) CreateRound(ctx context.Context, r models.Round) error {
	_, err := t.exec(ctx, t.sb.Insert("rounds").
		Columns("event_id", "round_no", "date_ms", "completed", "select_status").
		Values(r.EventID, r.RoundNo, toMillis(r.Date), false, false))
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

func (t *Tx) DeleteRound(ctx context.Context, eventID int64, roundNo int) error {
	if _, err := t.exec(ctx, t.sb.Delete("judges").Where(sq.Eq{"event_id": eventID, "round_no": roundNo})); err != nil {
		return fmt.Errorf("delete round judges: %w", err)
	}
	if _, err := t.exec(ctx, t.sb.Delete("rounds").Where(sq.Eq{"event_id": eventID, "round_no": roundNo})); err != nil {
		return fmt.Errorf("delete round: %w", err)
	}
	return nil
}

func (t *Tx) SetRoundCompleted(ctx context.Context, eventID int64, roundNo int) error {
	_, err := t.exec(ctx, t.sb.Update("rounds").Set("completed", true).
		Where(sq.Eq{"event_id": eventID, "round_no": roundNo}))
	if err != nil {
		return fmt.Errorf("complete round: %w", err)
	}
	return nil
}

func (t *Tx) SetSelectStatus(ctx context.Context, eventID int64, roundNo int, status bool) error {
	_, err := t.exec(ctx, t.sb.Update("rounds").Set("select_status", status).
		Where(sq.Eq{"event_id": eventID, "round_no": roundNo}))
	if err != nil {
		return fmt.Errorf("set select status: %w", err)
	}
	return nil
}

func (t *Tx) IsJudge(ctx context.Context, eventID int64, roundNo int, userID int64) (bool, error) {
	return t.exists(ctx, t.sb.Select("COUNT(*)").From("judges").
		Where(sq.Eq{"event_id": eventID, "round_no": roundNo, "user_id": userID}))
}

func (t *Tx) AddJudge(ctx context.Context, j models.Judge) error {
	_, err := t.exec(ctx, t.sb.Insert("judges").
		Columns("user_id", "event_id", "round_no").
		Values(j.UserID, j.EventID, j.RoundNo))
	if err != nil {
		return fmt.Errorf("insert judge: %w", err)
	}
	return nil
}

func (t *Tx) RemoveJudge(ctx context.Context, j models.Judge) error {
	res, err := t.exec(ctx, t.sb.Delete("judges").
		Where(sq.Eq{"user_id": j.UserID, "event_id": j.EventID, "round_no": j.RoundNo}))
	if err != nil {
		return fmt.Errorf("delete judge: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("judge: %w", ErrNotFound)
	}
	return nil
}

// JudgeAssignments counts the rounds the user judges across all events.
func (t *Tx) JudgeAssignments(ctx context.Context, userID int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COUNT(*)").From("judges").Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return 0, fmt.Errorf("count judge assignments: %w", err)
	}
	return n, nil
}
