package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

var teamColumns = []string{
	"t.id", "t.event_id", "t.name", "t.leader_id", "t.confirmed",
	"t.attended", "t.round_no", "t.member_count",
}

func scanTeam(r rowScanner) (models.Team, error) {
	var tm models.Team
	err := r.Scan(&tm.ID, &tm.EventID, &tm.Name, &tm.LeaderID, &tm.Confirmed,
		&tm.Attended, &tm.RoundNo, &tm.MemberCount)
	return tm, err
}

func (t *Tx) teamSelect() sq.SelectBuilder {
	return t.sb.Select(teamColumns...).From("teams t")
}

func (t *Tx) scanTeams(ctx context.Context, q sq.SelectBuilder) ([]models.Team, error) {
	rows, err := t.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var out []models.Team
	for rows.Next() {
		tm, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, tm)
	}
	return out, rows.Err()
}

func (t *Tx) GetTeam(ctx context.Context, id int64) (models.Team, error) {
	tm, err := scanTeam(t.row(ctx, t.teamSelect().Where(sq.Eq{"t.id": id})))
	if err != nil {
		return models.Team{}, notFound(err, "team")
	}
	return tm, nil
}

func (t *Tx) TeamNameTaken(ctx context.Context, eventID int64, name string) (bool, error) {
	return t.exists(ctx, t.sb.Select("COUNT(*)").From("teams").
		Where(sq.Eq{"event_id": eventID, "name": name}))
}

// CreateTeam inserts an empty team; members are added with AddMember.
func (t *Tx) CreateTeam(ctx context.Context, tm models.Team) (int64, error) {
	roundNo := tm.RoundNo
	if roundNo == 0 {
		roundNo = 1
	}
	id, err := t.insertID(ctx, t.sb.Insert("teams").
		Columns("event_id", "name", "leader_id", "confirmed", "attended", "round_no", "member_count").
		Values(tm.EventID, tm.Name, tm.LeaderID, tm.Confirmed, tm.Attended, roundNo, 0))
	if err != nil {
		return 0, fmt.Errorf("insert team: %w", err)
	}
	return id, nil
}

// AddMember inserts the membership row after bumping member_count, guarded
// by maxSize. A full team or a duplicate membership yields ErrConflict.
func (t *Tx) AddMember(ctx context.Context, teamID, userID int64, maxSize int) error {
	res, err := t.exec(ctx, t.sb.Update("teams").
		Set("member_count", sq.Expr("member_count + 1")).
		Where(sq.Eq{"id": teamID}).
		Where(sq.Lt{"member_count": maxSize}))
	if err != nil {
		return fmt.Errorf("bump member count: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("team %d is at capacity: %w", teamID, ErrConflict)
	}
	if _, err := t.exec(ctx, t.sb.Insert("team_members").Columns("user_id", "team_id").Values(userID, teamID)); err != nil {
		return fmt.Errorf("insert team member: %w", err)
	}
	return nil
}

// RemoveMember deletes the membership row and reports whether one existed.
func (t *Tx) RemoveMember(ctx context.Context, teamID, userID int64) (bool, error) {
	res, err := t.exec(ctx, t.sb.Delete("team_members").Where(sq.Eq{"team_id": teamID, "user_id": userID}))
	if err != nil {
		return false, fmt.Errorf("delete team member: %w", err)
	}
	n, err := affected(res)
	if err != nil || n == 0 {
		return false, err
	}
	_, err = t.exec(ctx, t.sb.Update("teams").
		Set("member_count", sq.Expr("member_count - 1")).
		Where(sq.Eq{"id": teamID}))
	if err != nil {
		return false, fmt.Errorf("drop member count: %w", err)
	}
	return true, nil
}

func (t *Tx) IsMember(ctx context.Context, teamID, userID int64) (bool, error) {
	return t.exists(ctx, t.sb.Select("COUNT(*)").From("team_members").
		Where(sq.Eq{"team_id": teamID, "user_id": userID}))
}

func (t *Tx) MemberIDs(ctx context.Context, teamID int64) ([]int64, error) {
	rows, err := t.query(ctx, t.sb.Select("user_id").From("team_members").
		Where(sq.Eq{"team_id": teamID}).OrderBy("user_id ASC"))
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EntriesInEvent counts the teams of the event the user belongs to.
func (t *Tx) EntriesInEvent(ctx context.Context, eventID, userID int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COUNT(*)").
		From("team_members tm").
		Join("teams t ON t.id = tm.team_id").
		Where(sq.Eq{"t.event_id": eventID, "tm.user_id": userID}))
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (t *Tx) SetLeader(ctx context.Context, teamID, userID int64) error {
	_, err := t.exec(ctx, t.sb.Update("teams").Set("leader_id", userID).Where(sq.Eq{"id": teamID}))
	if err != nil {
		return fmt.Errorf("set team leader: %w", err)
	}
	return nil
}

// ConfirmTeam flips an open team to confirmed; a team that is already
// confirmed yields ErrConflict.
func (t *Tx) ConfirmTeam(ctx context.Context, teamID int64) error {
	res, err := t.exec(ctx, t.sb.Update("teams").Set("confirmed", true).
		Where(sq.Eq{"id": teamID, "confirmed": false}))
	if err != nil {
		return fmt.Errorf("confirm team: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("team %d already confirmed: %w", teamID, ErrConflict)
	}
	return nil
}

func (t *Tx) DeleteTeam(ctx context.Context, teamID int64) error {
	if _, err := t.exec(ctx, t.sb.Delete("team_members").Where(sq.Eq{"team_id": teamID})); err != nil {
		return fmt.Errorf("delete team members: %w", err)
	}
	if _, err := t.exec(ctx, t.sb.Delete("teams").Where(sq.Eq{"id": teamID})); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

// MoveTeamRound sets round_no to `to` only if it is currently `from`.
func (t *Tx) MoveTeamRound(ctx context.Context, teamID int64, from, to int) (bool, error) {
	res, err := t.exec(ctx, t.sb.Update("teams").Set("round_no", to).
		Where(sq.Eq{"id": teamID, "round_no": from}))
	if err != nil {
		return false, fmt.Errorf("move team round: %w", err)
	}
	n, err := affected(res)
	return n > 0, err
}

func (t *Tx) SetAttended(ctx context.Context, teamID int64, attended bool) error {
	_, err := t.exec(ctx, t.sb.Update("teams").Set("attended", attended).Where(sq.Eq{"id": teamID}))
	if err != nil {
		return fmt.Errorf("set attended: %w", err)
	}
	return nil
}

// SetAttendedForUser marks every confirmed team of the event the user belongs to.
func (t *Tx) SetAttendedForUser(ctx context.Context, eventID, userID int64, attended bool) (int64, error) {
	memberOf := t.sb.Select("team_id").From("team_members").Where(sq.Eq{"user_id": userID})
	res, err := t.exec(ctx, t.sb.Update("teams").Set("attended", attended).
		Where(sq.Eq{"event_id": eventID, "confirmed": true}).
		Where(sq.Expr("id IN (?)", memberOf)))
	if err != nil {
		return 0, fmt.Errorf("set attended for user: %w", err)
	}
	return affected(res)
}

func (t *Tx) TeamsOfUser(ctx context.Context, userID int64) ([]models.Team, error) {
	return t.scanTeams(ctx, t.teamSelect().
		Join("team_members tm ON tm.team_id = t.id").
		Where(sq.Eq{"tm.user_id": userID}).
		OrderBy("t.id ASC"))
}

func (t *Tx) TeamsInRound(ctx context.Context, eventID int64, roundNo int) ([]models.Team, error) {
	return t.scanTeams(ctx, t.teamSelect().
		Where(sq.Eq{"t.event_id": eventID, "t.round_no": roundNo, "t.confirmed": true}).
		OrderBy("t.name ASC"))
}

// MaxTeamRound returns the highest round_no held by any team of the event.
func (t *Tx) MaxTeamRound(ctx context.Context, eventID int64) (int, error) {
	n, err := t.count(ctx, t.sb.Select("COALESCE(MAX(round_no), 0)").From("teams").
		Where(sq.Eq{"event_id": eventID}))
	if err != nil {
		return 0, fmt.Errorf("max team round: %w", err)
	}
	return n, nil
}

// TeamStats returns how many teams the event has and the size of its largest.
func (t *Tx) TeamStats(ctx context.Context, eventID int64) (teams, largest int, err error) {
	err = t.row(ctx, t.sb.Select("COUNT(*)", "COALESCE(MAX(member_count), 0)").From("teams").
		Where(sq.Eq{"event_id": eventID})).Scan(&teams, &largest)
	if err != nil {
		return 0, 0, fmt.Errorf("team stats: %w", err)
	}
	return teams, largest, nil
}
