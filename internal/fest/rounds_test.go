package fest

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/notify"
)

func TestRoundNumbersStayContiguous(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)

	ops := []string{"create", "create", "create", "delete", "create", "delete", "delete", "create"}
	for _, op := range ops {
		var err error
		if op == "create" {
			_, err = f.svc.CreateRound(f.ctx, org, ev.ID, time.Now())
		} else {
			_, err = f.svc.DeleteRound(f.ctx, org, ev.ID)
		}
		if err != nil {
			t.Fatalf("%s round: %v", op, err)
		}

		rounds, err := f.svc.Rounds(f.ctx, org, ev.ID)
		if err != nil {
			t.Fatalf("list rounds: %v", err)
		}
		for i, r := range rounds {
			if r.RoundNo != i+1 {
				t.Fatalf("after %s: round[%d] = %d, want %d", op, i, r.RoundNo, i+1)
			}
		}
	}
}

func TestDeleteRoundRules(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)

	_, err := f.svc.DeleteRound(f.ctx, org, ev.ID)
	wantMessage(t, err, KindNotFound, "No rounds found")

	f.round(ev.ID)
	f.round(ev.ID)
	judge := f.judge(ev.ID, 1)
	tm := f.confirmedTeam(ev, f.participant())
	if _, err := f.svc.PromoteToNextRound(f.ctx, judge, tm.ID, 1, true); err != nil {
		t.Fatalf("promote: %v", err)
	}

	// The team in round 2 stays valid while round 1 is the last one.
	if _, err := f.svc.DeleteRound(f.ctx, org, ev.ID); err != nil {
		t.Fatalf("delete round 2: %v", err)
	}
	_, err = f.svc.DeleteRound(f.ctx, org, ev.ID)
	wantMessage(t, err, KindInvariantViolation, "A team is already in round 2")

	stranger := f.organizer(f.event(models.Event{}).ID)
	_, err = f.svc.DeleteRound(f.ctx, stranger, ev.ID)
	wantKind(t, err, KindForbidden)
}

func TestDeleteCompletedRound(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)
	f.round(ev.ID)
	judge := f.judge(ev.ID, 1)
	if _, err := f.svc.CompleteRound(f.ctx, judge, ev.ID, 1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := f.svc.DeleteRound(f.ctx, org, ev.ID)
	wantMessage(t, err, KindInvariantViolation, "Round completed")
}

func TestCompleteRound(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	f.round(ev.ID)
	judge := f.judge(ev.ID, 1)

	other := f.event(models.Event{})
	f.round(other.ID)
	_, err := f.svc.CompleteRound(f.ctx, f.judge(other.ID, 1), ev.ID, 1)
	wantKind(t, err, KindForbidden)

	for i := 0; i < 2; i++ {
		r, err := f.svc.CompleteRound(f.ctx, judge, ev.ID, 1)
		if err != nil {
			t.Fatalf("complete #%d: %v", i+1, err)
		}
		if !r.Completed {
			t.Fatalf("complete #%d: round not completed", i+1)
		}
	}
	want := notify.StatusTopic(ev.ID, 1)
	if got := f.pub.topics(); len(got) != 2 || got[0] != want {
		t.Fatalf("topics = %v, want two of %q", got, want)
	}

	_, err = f.svc.ChangeSelectStatus(f.ctx, judge, ev.ID, 1)
	wantMessage(t, err, KindInvariantViolation, "Round completed")
}

func TestChangeSelectStatus(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	f.round(ev.ID)
	judge := f.judge(ev.ID, 1)

	r, err := f.svc.ChangeSelectStatus(f.ctx, judge, ev.ID, 1)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !r.SelectStatus {
		t.Fatal("select status = false after first toggle")
	}
	r, err = f.svc.ChangeSelectStatus(f.ctx, judge, ev.ID, 1)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if r.SelectStatus {
		t.Fatal("select status = true after second toggle")
	}
	if got := f.pub.topics(); !slices.Equal(got, []string{notify.StatusTopic(ev.ID, 1), notify.StatusTopic(ev.ID, 1)}) {
		t.Fatalf("topics = %v", got)
	}

	org := f.organizer(ev.ID)
	_, err = f.svc.ChangeSelectStatus(f.ctx, org, ev.ID, 1)
	wantKind(t, err, KindForbidden)
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	ev := f.event(models.Event{})
	f.round(ev.ID)
	judge := f.judge(ev.ID, 1)

	r, err := f.svc.CompleteRound(f.ctx, judge, ev.ID, 1)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !r.Completed {
		t.Fatal("round not completed")
	}
}

func TestPromoteToNextRound(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	f.round(ev.ID)
	f.round(ev.ID)
	judge := f.judge(ev.ID, 1)
	tm := f.confirmedTeam(ev, f.participant())

	steps := []struct {
		selected bool
		want     int
	}{
		{selected: true, want: 2},
		{selected: true, want: 2},
		{selected: false, want: 1},
		{selected: false, want: 1},
		{selected: true, want: 2},
	}
	for i, s := range steps {
		got, err := f.svc.PromoteToNextRound(f.ctx, judge, tm.ID, 1, s.selected)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got.RoundNo != s.want {
			t.Fatalf("step %d: round = %d, want %d", i, got.RoundNo, s.want)
		}
		if stored := f.team(tm.ID).RoundNo; stored != s.want {
			t.Fatalf("step %d: stored round = %d, want %d", i, stored, s.want)
		}
	}
	if got := f.pub.topics(); len(got) != len(steps) || got[0] != notify.TeamTopic(ev.ID, 1) {
		t.Fatalf("topics = %v", got)
	}

	teams, err := f.svc.TeamsByRound(f.ctx, judge, ev.ID, 2)
	if err != nil {
		t.Fatalf("teams by round: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != tm.ID {
		t.Fatalf("teams in round 2 = %+v", teams)
	}
}

func TestPromoteToNextRoundRejections(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	f.round(ev.ID)
	f.round(ev.ID)
	judge1 := f.judge(ev.ID, 1)
	judge2 := f.judge(ev.ID, 2)
	tm := f.confirmedTeam(ev, f.participant())

	_, err := f.svc.PromoteToNextRound(f.ctx, judge2, tm.ID, 1, true)
	wantKind(t, err, KindForbidden)

	_, err = f.svc.PromoteToNextRound(f.ctx, judge2, tm.ID, 2, true)
	wantKind(t, err, KindInvariantViolation)

	_, err = f.svc.PromoteToNextRound(f.ctx, judge1, tm.ID, 3, true)
	wantKind(t, err, KindNotFound)

	open, err := f.svc.CreateTeam(f.ctx, f.participant(), ev.ID, "Open")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	_, err = f.svc.PromoteToNextRound(f.ctx, judge1, open.ID, 1, true)
	wantMessage(t, err, KindInvariantViolation, "Team is not confirmed")

	if _, err := f.svc.CompleteRound(f.ctx, judge1, ev.ID, 1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err = f.svc.PromoteToNextRound(f.ctx, judge1, tm.ID, 1, true)
	wantMessage(t, err, KindInvariantViolation, "Round completed")
}

func TestJudgeManagement(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)
	f.round(ev.ID)
	u := f.participant()

	if _, err := f.svc.AddJudge(f.ctx, org, ev.ID, 1, u.ID); err != nil {
		t.Fatalf("add judge: %v", err)
	}
	judge := f.reload(u)
	if judge.Role != models.RoleJudge {
		t.Fatalf("role = %s, want %s", judge.Role, models.RoleJudge)
	}
	if _, err := f.svc.ChangeSelectStatus(f.ctx, judge, ev.ID, 1); err != nil {
		t.Fatalf("new judge toggles select: %v", err)
	}

	_, err := f.svc.AddJudge(f.ctx, org, ev.ID, 1, u.ID)
	wantKind(t, err, KindInvariantViolation)

	if _, err := f.svc.RemoveJudge(f.ctx, org, ev.ID, 1, u.ID); err != nil {
		t.Fatalf("remove judge: %v", err)
	}
	if got := f.reload(u).Role; got != models.RoleParticipant {
		t.Fatalf("role = %s, want %s", got, models.RoleParticipant)
	}
	_, err = f.svc.RemoveJudge(f.ctx, org, ev.ID, 1, u.ID)
	wantKind(t, err, KindNotFound)
}
