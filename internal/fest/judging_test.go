package fest

import (
	"fmt"
	"slices"
	"testing"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/notify"
)

func TestCriteriaLifecycle(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)
	f.round(ev.ID)
	f.round(ev.ID)
	judge := f.judge(ev.ID, 1)

	first, err := f.svc.CreateCriteria(f.ctx, org, ev.ID, 1, "  ", "")
	if err != nil {
		t.Fatalf("create default criteria: %v", err)
	}
	if first.Name != "Criteria 1" || first.Type != models.CriteriaNumber {
		t.Fatalf("criteria = %+v, want default name and NUMBER", first)
	}
	design, err := f.svc.CreateCriteria(f.ctx, judge, ev.ID, 1, "Design", models.CriteriaText)
	if err != nil {
		t.Fatalf("judge create criteria: %v", err)
	}

	_, err = f.svc.CreateCriteria(f.ctx, org, ev.ID, 1, "Speed", models.CriteriaType("COLOR"))
	wantKind(t, err, KindInvariantViolation)
	_, err = f.svc.CreateCriteria(f.ctx, org, ev.ID, 3, "", "")
	wantMessage(t, err, KindNotFound, "Round not found")
	_, err = f.svc.CreateCriteria(f.ctx, f.judge(ev.ID, 2), ev.ID, 1, "", "")
	wantKind(t, err, KindForbidden)
	_, err = f.svc.CreateCriteria(f.ctx, f.organizer(f.event(models.Event{}).ID), ev.ID, 1, "", "")
	wantKind(t, err, KindForbidden)
	_, err = f.svc.CreateCriteria(f.ctx, f.participant(), ev.ID, 1, "", "")
	wantKind(t, err, KindForbidden)

	_, err = f.svc.DeleteCriteria(f.ctx, org, ev.ID, 2, first.ID)
	wantMessage(t, err, KindNotFound, fmt.Sprintf("No Criteria with id %d", first.ID))
	if _, err := f.svc.DeleteCriteria(f.ctx, judge, ev.ID, 1, first.ID); err != nil {
		t.Fatalf("delete criteria: %v", err)
	}

	list, err := f.svc.Criteria(f.ctx, org, ev.ID, 1)
	if err != nil {
		t.Fatalf("list criteria: %v", err)
	}
	if len(list) != 1 || list[0].ID != design.ID {
		t.Fatalf("criteria = %+v, want only %q", list, design.Name)
	}

	next, err := f.svc.CreateCriteria(f.ctx, org, ev.ID, 1, "", "")
	if err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	if next.Name != "Criteria 2" {
		t.Fatalf("name = %q, want %q", next.Name, "Criteria 2")
	}
}

func TestCriteriaGoWithTheirRound(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)
	f.round(ev.ID)
	f.round(ev.ID)
	if _, err := f.svc.CreateCriteria(f.ctx, org, ev.ID, 2, "", ""); err != nil {
		t.Fatalf("create criteria: %v", err)
	}
	if _, err := f.svc.DeleteRound(f.ctx, org, ev.ID); err != nil {
		t.Fatalf("delete round: %v", err)
	}
	f.round(ev.ID)

	list, err := f.svc.Criteria(f.ctx, org, ev.ID, 2)
	if err != nil {
		t.Fatalf("list criteria: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("criteria = %+v, want none after the round was recreated", list)
	}
}

func TestWinners(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	f.round(ev.ID)
	f.round(ev.ID)
	first, final := f.judge(ev.ID, 1), f.judge(ev.ID, 2)
	a := f.confirmedTeam(ev, f.participant())
	b := f.confirmedTeam(ev, f.participant())
	c := f.confirmedTeam(ev, f.participant())
	for _, tm := range []models.Team{a, b} {
		if _, err := f.svc.PromoteToNextRound(f.ctx, first, tm.ID, 1, true); err != nil {
			t.Fatalf("promote: %v", err)
		}
	}

	_, err := f.svc.CreateWinner(f.ctx, first, ev.ID, a.ID, models.WinnerFirst)
	wantMessage(t, err, KindForbidden, "Only judges of the final round can declare winners")
	_, err = f.svc.CreateWinner(f.ctx, final, ev.ID, c.ID, models.WinnerFirst)
	wantMessage(t, err, KindInvariantViolation, "Team is not in the final round")
	_, err = f.svc.CreateWinner(f.ctx, final, ev.ID, a.ID, models.WinnerType("MVP"))
	wantKind(t, err, KindInvariantViolation)

	won, err := f.svc.CreateWinner(f.ctx, final, ev.ID, a.ID, models.WinnerFirst)
	if err != nil {
		t.Fatalf("create winner: %v", err)
	}
	_, err = f.svc.CreateWinner(f.ctx, final, ev.ID, a.ID, models.WinnerRunnerUp)
	wantMessage(t, err, KindInvariantViolation, "Winner already exists")
	_, err = f.svc.CreateWinner(f.ctx, final, ev.ID, b.ID, models.WinnerFirst)
	wantMessage(t, err, KindInvariantViolation, "Winner already exists")
	if _, err := f.svc.CreateWinner(f.ctx, final, ev.ID, b.ID, models.WinnerRunnerUp); err != nil {
		t.Fatalf("create runner up: %v", err)
	}
	if !slices.Contains(f.pub.topics(), notify.WinnerTopic(ev.ID)) {
		t.Fatalf("topics = %v, want %s", f.pub.topics(), notify.WinnerTopic(ev.ID))
	}

	jury := f.user(models.RoleJury, f.engineering)
	winners, err := f.svc.WinnersByEvent(f.ctx, jury, ev.ID)
	if err != nil {
		t.Fatalf("winners by event: %v", err)
	}
	if len(winners) != 2 || winners[0].TeamID != a.ID || winners[1].TeamID != b.ID {
		t.Fatalf("winners = %+v", winners)
	}
	_, err = f.svc.WinnersByEvent(f.ctx, f.participant(), ev.ID)
	wantKind(t, err, KindForbidden)

	if _, err := f.svc.DeleteWinner(f.ctx, final, won.ID); err != nil {
		t.Fatalf("delete winner: %v", err)
	}
	all, err := f.svc.AllWinners(f.ctx, final)
	if err != nil {
		t.Fatalf("all winners: %v", err)
	}
	if len(all) != 1 || all[0].Type != models.WinnerRunnerUp {
		t.Fatalf("all winners = %+v", all)
	}
	_, err = f.svc.DeleteWinner(f.ctx, final, won.ID)
	wantMessage(t, err, KindNotFound, "Winner not found")
}

func TestWinnerRejections(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	judge := f.user(models.RoleJudge, f.engineering)

	_, err := f.svc.CreateWinner(f.ctx, judge, ev.ID, 1, models.WinnerFirst)
	wantMessage(t, err, KindInvariantViolation, "Event has no rounds")

	f.round(ev.ID)
	judge = f.judge(ev.ID, 1)
	open, err := f.svc.CreateTeam(f.ctx, f.participant(), ev.ID, "Open")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	_, err = f.svc.CreateWinner(f.ctx, judge, ev.ID, open.ID, models.WinnerFirst)
	wantMessage(t, err, KindInvariantViolation, "Team is not confirmed")

	elsewhere := f.confirmedTeam(f.event(models.Event{}), f.participant())
	_, err = f.svc.CreateWinner(f.ctx, judge, ev.ID, elsewhere.ID, models.WinnerFirst)
	wantMessage(t, err, KindInvariantViolation, "Team does not belong to this event")

	_, err = f.svc.CreateWinner(f.ctx, f.participant(), ev.ID, elsewhere.ID, models.WinnerFirst)
	wantKind(t, err, KindForbidden)
}
