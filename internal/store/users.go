package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

func (t *Tx) userSelect() sq.SelectBuilder {
	return t.sb.Select("u.id", "u.name", "u.email", "u.role", "u.college_id", "COALESCE(c.type, '')").
		From("users u").
		LeftJoin("colleges c ON c.id = u.college_id")
}

func scanUser(r rowScanner) (models.User, error) {
	var u models.User
	var collegeType string
	err := r.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CollegeID, &collegeType)
	u.CollegeType = models.CollegeType(collegeType)
	return u, err
}

func (t *Tx) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(t.row(ctx, t.userSelect().Where(sq.Eq{"u.id": id})))
	if err != nil {
		return models.User{}, notFound(err, "user")
	}
	return u, nil
}

// LockUser takes the row lock that serializes a user's registrations. On
// SQLite the database-wide write lock already does this.
func (t *Tx) LockUser(ctx context.Context, id int64) error {
	q := t.sb.Select("id").From("users").Where(sq.Eq{"id": id})
	if t.dialect == Postgres {
		q = q.Suffix("FOR UPDATE")
	}
	var got int64
	if err := t.row(ctx, q).Scan(&got); err != nil {
		return notFound(err, "user")
	}
	return nil
}

// GetUserByEmail returns the user and its password hash.
func (t *Tx) GetUserByEmail(ctx context.Context, email string) (models.User, string, error) {
	var u models.User
	var collegeType, hash string
	err := t.row(ctx, t.userSelect().Column("u.pass_hash").Where(sq.Eq{"u.email": email})).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CollegeID, &collegeType, &hash)
	if err != nil {
		return models.User{}, "", notFound(err, "user")
	}
	u.CollegeType = models.CollegeType(collegeType)
	return u, hash, nil
}

func (t *Tx) CreateUser(ctx context.Context, u models.User, passHash string) (int64, error) {
	role := u.Role
	if role == "" {
		role = models.RoleUser
	}
	id, err := t.insertID(ctx, t.sb.Insert("users").
		Columns("name", "email", "pass_hash", "role", "college_id").
		Values(u.Name, u.Email, passHash, role, u.CollegeID))
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (t *Tx) SetUserRole(ctx context.Context, id int64, role models.Role) error {
	res, err := t.exec(ctx, t.sb.Update("users").Set("role", role).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

func (t *Tx) ListUsers(ctx context.Context, limit uint64) ([]models.User, error) {
	rows, err := t.query(ctx, t.userSelect().OrderBy("u.id ASC").Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (t *Tx) CreateCollege(ctx context.Context, name string, typ models.CollegeType) (int64, error) {
	id, err := t.insertID(ctx, t.sb.Insert("colleges").Columns("name", "type").Values(name, typ))
	if err != nil {
		return 0, fmt.Errorf("insert college: %w", err)
	}
	return id, nil
}

func (t *Tx) CreateBranch(ctx context.Context, name string) (int64, error) {
	id, err := t.insertID(ctx, t.sb.Insert("branches").Columns("name").Values(name))
	if err != nil {
		return 0, fmt.Errorf("insert branch: %w", err)
	}
	return id, nil
}

func (t *Tx) BranchExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, t.sb.Select("COUNT(*)").From("branches").Where(sq.Eq{"id": id}))
}

// BranchOf returns the branch the user represents.
func (t *Tx) BranchOf(ctx context.Context, userID int64) (int64, error) {
	var branchID int64
	err := t.row(ctx, t.sb.Select("branch_id").From("branch_reps").Where(sq.Eq{"user_id": userID})).
		Scan(&branchID)
	if err != nil {
		return 0, notFound(err, "branch rep")
	}
	return branchID, nil
}

func (t *Tx) AddBranchRep(ctx context.Context, userID, branchID int64) error {
	_, err := t.exec(ctx, t.sb.Insert("branch_reps").Columns("user_id", "branch_id").Values(userID, branchID))
	if err != nil {
		return fmt.Errorf("insert branch rep: %w", err)
	}
	return nil
}

func (t *Tx) RemoveBranchRep(ctx context.Context, userID int64) error {
	_, err := t.exec(ctx, t.sb.Delete("branch_reps").Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return fmt.Errorf("delete branch rep: %w", err)
	}
	return nil
}

// Payment orders are written by the payment service; the core only reads them.

func (t *Tx) HasSettledPayment(ctx context.Context, userID int64) (bool, error) {
	return t.exists(ctx, t.sb.Select("COUNT(*)").From("payment_orders").
		Where(sq.Eq{"user_id": userID, "status": "SUCCESS"}))
}

func (t *Tx) RecordPaymentOrder(ctx context.Context, userID int64, status string) error {
	_, err := t.exec(ctx, t.sb.Insert("payment_orders").Columns("user_id", "status").Values(userID, status))
	if err != nil {
		return fmt.Errorf("insert payment order: %w", err)
	}
	return nil
}
