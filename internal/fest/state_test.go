package fest

import (
	"errors"
	"testing"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

func TestTeamTransitions(t *testing.T) {
	open := models.Team{}
	confirmed := models.Team{Confirmed: true}

	tests := []struct {
		team   models.Team
		action TeamAction
		want   TeamState
		msg    string
	}{
		{team: open, action: TeamAddMember, want: TeamOpen},
		{team: open, action: TeamConfirm, want: TeamConfirmed},
		{team: open, action: TeamDelete, want: TeamDeleted},
		{team: open, action: TeamMarkAttendance, msg: "Team is not confirmed"},
		{team: open, action: TeamPromote, msg: "Team is not confirmed"},
		{team: confirmed, action: TeamAddMember, msg: "Team is confirmed"},
		{team: confirmed, action: TeamRemoveMember, msg: "Team is confirmed"},
		{team: confirmed, action: TeamConfirm, msg: "Team is confirmed"},
		{team: confirmed, action: TeamDelete, msg: "Team is confirmed"},
		{team: confirmed, action: TeamOrganizerDelete, want: TeamDeleted},
		{team: confirmed, action: TeamPromote, want: TeamConfirmed},
	}
	for _, tt := range tests {
		t.Run(string(TeamStateOf(tt.team))+"/"+string(tt.action), func(t *testing.T) {
			got, err := teamTransition(tt.team, tt.action)
			if tt.msg != "" {
				wantMessage(t, err, KindInvariantViolation, tt.msg)
				return
			}
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if got != tt.want {
				t.Fatalf("state = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRoundTransitions(t *testing.T) {
	pending := models.Round{}
	completed := models.Round{Completed: true}

	if got, err := roundTransition(pending, RoundComplete); err != nil || got != RoundCompleted {
		t.Fatalf("complete pending = %s, %v", got, err)
	}
	if got, err := roundTransition(completed, RoundComplete); err != nil || got != RoundCompleted {
		t.Fatalf("complete completed = %s, %v", got, err)
	}
	for _, action := range []RoundAction{RoundToggleSelect, RoundPromote} {
		_, err := roundTransition(completed, action)
		wantMessage(t, err, KindInvariantViolation, "Round completed")
	}
}

func TestErrorKinds(t *testing.T) {
	if !errors.Is(invariant("Team is full"), ErrInvariantViolation) {
		t.Fatal("invariant error does not match its sentinel")
	}
	if errors.Is(forbidden("nope"), ErrNotFound) {
		t.Fatal("forbidden error matches not-found sentinel")
	}

	notFoundErr := translate(store.ErrNotFound, "Team")
	wantMessage(t, notFoundErr, KindNotFound, "Team not found")
	wantKind(t, translate(store.ErrConflict, "Team"), KindConflictOnWrite)
	wantKind(t, translate(errors.New("disk full"), "Team"), KindInternal)
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("plain errors should be internal")
	}
}
