package fest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

type fixture struct {
	t           *testing.T
	ctx         context.Context
	store       *store.Store
	svc         *Service
	pub         *recordingPublisher
	engineering int64
	other       int64
	branch      int64
	seq         int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, store.SQLite, filepath.Join(t.TempDir(), "fest.db"), discardLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{t: t, ctx: ctx, store: st, pub: &recordingPublisher{}}
	f.svc = New(st, WithLogger(discardLogger()), WithPublisher(f.pub))
	f.seed(func(tx *store.Tx) error {
		var err error
		if f.engineering, err = tx.CreateCollege(ctx, "NMAM Institute of Technology", models.CollegeEngineering); err != nil {
			return err
		}
		if f.other, err = tx.CreateCollege(ctx, "St Aloysius", models.CollegeOther); err != nil {
			return err
		}
		f.branch, err = tx.CreateBranch(ctx, "CSE")
		return err
	})
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fixture) seed(fn func(*store.Tx) error) {
	f.t.Helper()
	if err := f.store.InTx(f.ctx, fn); err != nil {
		f.t.Fatalf("seed: %v", err)
	}
}

// user creates a user of the given role at college.
func (f *fixture) user(role models.Role, college int64) *models.User {
	f.t.Helper()
	f.seq++
	name := fmt.Sprintf("user%d", f.seq)
	var u models.User
	f.seed(func(tx *store.Tx) error {
		id, err := tx.CreateUser(f.ctx, models.User{
			Name:      name,
			Email:     name + "@example.com",
			Role:      role,
			CollegeID: &college,
		}, "")
		if err != nil {
			return err
		}
		u, err = tx.GetUser(f.ctx, id)
		return err
	})
	return &u
}

func (f *fixture) participant() *models.User {
	return f.user(models.RoleParticipant, f.engineering)
}

// reload re-reads u after a role change.
func (f *fixture) reload(u *models.User) *models.User {
	f.t.Helper()
	var fresh models.User
	f.seed(func(tx *store.Tx) error {
		var err error
		fresh, err = tx.GetUser(f.ctx, u.ID)
		return err
	})
	return &fresh
}

// event creates a published event. Zero sizes default to a team event of 1..4.
func (f *fixture) event(ev models.Event) models.Event {
	f.t.Helper()
	f.seq++
	if ev.Name == "" {
		ev.Name = fmt.Sprintf("event%d", f.seq)
	}
	if ev.Category == "" {
		ev.Category = models.CategoryTechnical
	}
	if ev.Type == "" {
		ev.Type = models.EventTeam
	}
	if ev.MinTeamSize == 0 {
		ev.MinTeamSize = 1
	}
	if ev.MaxTeamSize == 0 {
		ev.MaxTeamSize = 4
		if ev.Type.Individual() {
			ev.MaxTeamSize = 1
		}
	}
	if ev.BranchID == 0 {
		ev.BranchID = f.branch
	}
	ev.Published = true
	ev.EnforceCollegeHomogeneity = true
	f.seed(func(tx *store.Tx) error {
		id, err := tx.CreateEvent(f.ctx, ev)
		if err != nil {
			return err
		}
		ev, err = tx.GetEvent(f.ctx, id)
		return err
	})
	return ev
}

func (f *fixture) allowMixedColleges(eventID int64) {
	f.t.Helper()
	off := false
	f.seed(func(tx *store.Tx) error {
		return tx.UpdateEvent(f.ctx, eventID, store.EventPatch{EnforceCollegeHomogeneity: &off})
	})
}

func (f *fixture) organizer(eventID int64) *models.User {
	f.t.Helper()
	u := f.user(models.RoleOrganizer, f.engineering)
	f.seed(func(tx *store.Tx) error { return tx.AddOrganizer(f.ctx, eventID, u.ID) })
	return u
}

func (f *fixture) round(eventID int64) int {
	f.t.Helper()
	var no int
	f.seed(func(tx *store.Tx) error {
		highest, err := tx.MaxRoundNo(f.ctx, eventID)
		if err != nil {
			return err
		}
		no = highest + 1
		return tx.CreateRound(f.ctx, models.Round{EventID: eventID, RoundNo: no, Date: time.Now()})
	})
	return no
}

func (f *fixture) judge(eventID int64, roundNo int) *models.User {
	f.t.Helper()
	u := f.user(models.RoleJudge, f.engineering)
	f.seed(func(tx *store.Tx) error {
		return tx.AddJudge(f.ctx, models.Judge{UserID: u.ID, EventID: eventID, RoundNo: roundNo})
	})
	return u
}

func (f *fixture) team(id int64) models.Team {
	f.t.Helper()
	var tm models.Team
	f.seed(func(tx *store.Tx) error {
		var err error
		tm, err = tx.GetTeam(f.ctx, id)
		return err
	})
	return tm
}

func (f *fixture) eventByID(id int64) models.Event {
	f.t.Helper()
	var ev models.Event
	f.seed(func(tx *store.Tx) error {
		var err error
		ev, err = tx.GetEvent(f.ctx, id)
		return err
	})
	return ev
}

func (f *fixture) xp(userID int64) int {
	f.t.Helper()
	var total int
	f.seed(func(tx *store.Tx) error {
		var err error
		total, err = tx.UserXP(f.ctx, userID)
		return err
	})
	return total
}

// confirmedTeam builds a confirmed team led by leader with the given extra members.
func (f *fixture) confirmedTeam(ev models.Event, leader *models.User, members ...*models.User) models.Team {
	f.t.Helper()
	f.seq++
	tm, err := f.svc.CreateTeam(f.ctx, leader, ev.ID, fmt.Sprintf("team%d", f.seq))
	if err != nil {
		f.t.Fatalf("create team: %v", err)
	}
	for _, m := range members {
		if _, err := f.svc.JoinTeam(f.ctx, m, tm.ID); err != nil {
			f.t.Fatalf("join team: %v", err)
		}
	}
	tm, err = f.svc.ConfirmTeam(f.ctx, leader, tm.ID)
	if err != nil {
		f.t.Fatalf("confirm team: %v", err)
	}
	return tm
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want kind %s", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (err: %v)", got, kind, err)
	}
}

func wantMessage(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	wantKind(t, err, kind)
	var e *Error
	if !errors.As(err, &e) || e.Message != msg {
		t.Fatalf("message = %q, want %q", err.Error(), msg)
	}
}

type published struct {
	topic   string
	payload any
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, payload: payload})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sent))
	for _, s := range p.sent {
		out = append(out, s.topic)
	}
	return out
}
