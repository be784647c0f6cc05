package fest

import (
	"testing"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

func TestOrganizerBuildsTeam(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{MinTeamSize: 2, MaxTeamSize: 2, MaxTeams: 1})
	org := f.organizer(ev.ID)
	a, b := f.participant(), f.participant()

	tm, err := f.svc.OrganizerCreateTeam(f.ctx, org, ev.ID, "Walk-in")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if tm.LeaderID != nil || tm.MemberCount != 0 || tm.Confirmed {
		t.Fatalf("team = %+v, want empty open team without leader", tm)
	}

	if _, err := f.svc.OrganizerAddTeamMember(f.ctx, org, tm.ID, a.ID); err != nil {
		t.Fatalf("add first member: %v", err)
	}
	if got := f.team(tm.ID); !got.LedBy(a.ID) {
		t.Fatalf("leader = %v, want first member %d", got.LeaderID, a.ID)
	}

	_, err = f.svc.OrganizerConfirmTeam(f.ctx, org, tm.ID)
	wantMessage(t, err, KindInvariantViolation, "Team is not full need at least 2 members")

	if _, err := f.svc.OrganizerAddTeamMember(f.ctx, org, tm.ID, b.ID); err != nil {
		t.Fatalf("add second member: %v", err)
	}
	if got := f.team(tm.ID); !got.LedBy(a.ID) {
		t.Fatalf("leader changed to %v", got.LeaderID)
	}

	_, err = f.svc.OrganizerAddTeamMember(f.ctx, org, tm.ID, f.participant().ID)
	wantMessage(t, err, KindInvariantViolation, "Team is full")

	tm, err = f.svc.OrganizerConfirmTeam(f.ctx, org, tm.ID)
	if err != nil {
		t.Fatalf("confirm team: %v", err)
	}
	if !tm.Confirmed {
		t.Fatal("team not confirmed")
	}

	_, err = f.svc.OrganizerDeleteTeamMember(f.ctx, org, tm.ID, b.ID)
	wantMessage(t, err, KindInvariantViolation, "Team is confirmed")
}

func TestOrganizerAddTeamMemberRejections(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)
	tm, err := f.svc.OrganizerCreateTeam(f.ctx, org, ev.ID, "Walk-in")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	registered := f.participant()
	if _, err := f.svc.CreateTeam(f.ctx, registered, ev.ID, "Own"); err != nil {
		t.Fatalf("create own team: %v", err)
	}

	_, err = f.svc.OrganizerAddTeamMember(f.ctx, org, tm.ID, registered.ID)
	wantMessage(t, err, KindInvariantViolation, "Already registered")

	plain := f.user(models.RoleUser, f.engineering)
	_, err = f.svc.OrganizerAddTeamMember(f.ctx, org, tm.ID, plain.ID)
	wantKind(t, err, KindNotFound)

	stranger := f.organizer(f.event(models.Event{}).ID)
	_, err = f.svc.OrganizerAddTeamMember(f.ctx, stranger, tm.ID, f.participant().ID)
	wantKind(t, err, KindForbidden)

	_, err = f.svc.OrganizerAddTeamMember(f.ctx, f.participant(), tm.ID, f.participant().ID)
	wantKind(t, err, KindForbidden)
}

func TestOrganizerDeleteConfirmedTeamFreesSlot(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{MaxTeams: 1})
	org := f.organizer(ev.ID)
	tm := f.confirmedTeam(ev, f.participant())

	_, err := f.svc.CreateTeam(f.ctx, f.participant(), ev.ID, "Late")
	wantMessage(t, err, KindInvariantViolation, "Event is full")

	if _, err := f.svc.OrganizerDeleteTeam(f.ctx, org, tm.ID); err != nil {
		t.Fatalf("delete team: %v", err)
	}
	if got := f.eventByID(ev.ID).ConfirmedTeams; got != 0 {
		t.Fatalf("confirmed teams = %d, want 0", got)
	}
	if _, err := f.svc.CreateTeam(f.ctx, f.participant(), ev.ID, "Late"); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
}

func TestOrganizerDeleteTeamMember(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)
	leader, mate := f.participant(), f.participant()
	tm, _ := f.svc.CreateTeam(f.ctx, leader, ev.ID, "Alpha")
	if _, err := f.svc.JoinTeam(f.ctx, mate, tm.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := f.svc.OrganizerDeleteTeamMember(f.ctx, org, tm.ID, mate.ID); err != nil {
		t.Fatalf("delete member: %v", err)
	}
	_, err := f.svc.OrganizerDeleteTeamMember(f.ctx, org, tm.ID, mate.ID)
	wantKind(t, err, KindNotFound)
}

func TestOrganizerRegisterSolo(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{Type: models.EventIndividual, Fees: 50})
	org := f.organizer(ev.ID)
	u := f.participant()

	tm, err := f.svc.OrganizerRegisterSolo(f.ctx, org, ev.ID, u.ID)
	if err != nil {
		t.Fatalf("register solo: %v", err)
	}
	if !tm.Confirmed || !tm.LedBy(u.ID) || tm.Attended {
		t.Fatalf("team = %+v, want confirmed, led by %d, not attended", tm, u.ID)
	}

	_, err = f.svc.OrganizerRegisterSolo(f.ctx, org, ev.ID, u.ID)
	wantMessage(t, err, KindInvariantViolation, "Already registered")

	_, err = f.svc.OrganizerRegisterSolo(f.ctx, org, ev.ID, 9999)
	wantKind(t, err, KindNotFound)
}

func TestOrganizerRefillsEmptiedTeam(t *testing.T) {
	f := newFixture(t)
	ev := f.event(models.Event{})
	org := f.organizer(ev.ID)
	a := f.participant()
	b := f.user(models.RoleParticipant, f.other)

	tm, err := f.svc.OrganizerCreateTeam(f.ctx, org, ev.ID, "Walk-in")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, err := f.svc.OrganizerAddTeamMember(f.ctx, org, tm.ID, a.ID); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := f.svc.OrganizerDeleteTeamMember(f.ctx, org, tm.ID, a.ID); err != nil {
		t.Fatalf("remove a: %v", err)
	}

	if _, err := f.svc.OrganizerAddTeamMember(f.ctx, org, tm.ID, b.ID); err != nil {
		t.Fatalf("add b to emptied team: %v", err)
	}
	got := f.team(tm.ID)
	if !got.LedBy(b.ID) || got.MemberCount != 1 {
		t.Fatalf("team = %+v, want b (%d) as sole member and leader", got, b.ID)
	}

	// The new leader now anchors the college check.
	_, err = f.svc.OrganizerAddTeamMember(f.ctx, org, tm.ID, f.participant().ID)
	wantMessage(t, err, KindInvariantViolation, "Team members should belong to same college")
}
