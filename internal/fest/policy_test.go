package fest

import (
	"context"
	"errors"
	"testing"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

type fakeRelations struct {
	organizes map[int64]bool
	judges    map[int]bool
	branch    int64
	err       error
}

func (r fakeRelations) IsOrganizer(_ context.Context, eventID, _ int64) (bool, error) {
	return r.organizes[eventID], r.err
}

func (r fakeRelations) IsJudge(_ context.Context, _ int64, roundNo int, _ int64) (bool, error) {
	return r.judges[roundNo], r.err
}

func (r fakeRelations) BranchOf(context.Context, int64) (int64, error) {
	if r.branch == 0 {
		return 0, store.ErrNotFound
	}
	return r.branch, r.err
}

func TestPolicyGate(t *testing.T) {
	p := NewPolicy()
	tests := []struct {
		name   string
		role   models.Role
		action Action
		kind   Kind
	}{
		{name: "participant creates team", role: models.RoleParticipant, action: ActCreateTeam},
		{name: "organizer creates team", role: models.RoleOrganizer, action: ActCreateTeam},
		{name: "user creates team", role: models.RoleUser, action: ActCreateTeam, kind: KindForbidden},
		{name: "jury joins team", role: models.RoleJury, action: ActJoinTeam, kind: KindForbidden},
		{name: "participant marks attendance", role: models.RoleParticipant, action: ActMarkAttendance, kind: KindForbidden},
		{name: "organizer completes round", role: models.RoleOrganizer, action: ActCompleteRound, kind: KindForbidden},
		{name: "judge completes round", role: models.RoleJudge, action: ActCompleteRound},
		{name: "admin publishes", role: models.RoleAdmin, action: ActPublishEvent},
		{name: "branch rep publishes", role: models.RoleBranchRep, action: ActPublishEvent, kind: KindForbidden},
		{name: "unknown action", role: models.RoleAdmin, action: Action("launch_rockets"), kind: KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Gate(&models.User{ID: 1, Role: tt.role}, tt.action)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("gate: %v", err)
				}
				return
			}
			wantKind(t, err, tt.kind)
		})
	}

	wantKind(t, p.Gate(nil, ActViewSelf), KindUnauthenticated)
}

func TestPolicyRelations(t *testing.T) {
	p := NewPolicy()
	ctx := context.Background()
	rel := fakeRelations{
		organizes: map[int64]bool{7: true},
		judges:    map[int]bool{2: true},
		branch:    3,
	}
	organizer := &models.User{ID: 1, Role: models.RoleOrganizer}
	judge := &models.User{ID: 2, Role: models.RoleJudge}
	rep := &models.User{ID: 3, Role: models.RoleBranchRep}
	leader := &models.User{ID: 4, Role: models.RoleParticipant}
	team := &models.Team{ID: 9, LeaderID: &leader.ID}

	tests := []struct {
		name   string
		actor  *models.User
		action Action
		target Target
		allow  bool
	}{
		{name: "organizer of event", actor: organizer, action: ActCreateRound, target: Target{EventID: 7}, allow: true},
		{name: "organizer of other event", actor: organizer, action: ActCreateRound, target: Target{EventID: 8}},
		{name: "judge of round", actor: judge, action: ActPromote, target: Target{EventID: 7, RoundNo: 2}, allow: true},
		{name: "judge of other round", actor: judge, action: ActPromote, target: Target{EventID: 7, RoundNo: 1}},
		{name: "judge views round", actor: judge, action: ActViewRoundTeams, target: Target{EventID: 8, RoundNo: 2}, allow: true},
		{name: "organizer views round", actor: organizer, action: ActViewRoundTeams, target: Target{EventID: 7, RoundNo: 1}, allow: true},
		{name: "leader confirms", actor: leader, action: ActConfirmTeam, target: Target{Team: team}, allow: true},
		{name: "member confirms", actor: &models.User{ID: 5, Role: models.RoleParticipant}, action: ActConfirmTeam, target: Target{Team: team}},
		{name: "rep of branch", actor: rep, action: ActAddOrganizer, target: Target{BranchID: 3}, allow: true},
		{name: "rep of other branch", actor: rep, action: ActAddOrganizer, target: Target{BranchID: 4}},
		{name: "organizer updates own event", actor: organizer, action: ActUpdateEvent, target: Target{EventID: 7}, allow: true},
		{name: "admin updates any event", actor: &models.User{ID: 6, Role: models.RoleAdmin}, action: ActUpdateEvent, target: Target{EventID: 99}, allow: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Authorize(ctx, rel, tt.actor, tt.action, tt.target)
			if tt.allow {
				if err != nil {
					t.Fatalf("authorize: %v", err)
				}
				return
			}
			wantKind(t, err, KindForbidden)
		})
	}
}

func TestPolicyRelationErrorIsInternal(t *testing.T) {
	rel := fakeRelations{err: errors.New("db gone")}
	err := NewPolicy().Authorize(context.Background(), rel, &models.User{ID: 1, Role: models.RoleOrganizer}, ActCreateRound, Target{EventID: 1})
	wantKind(t, err, KindInternal)
}

func TestRepWithoutBranchCannotCreateEvent(t *testing.T) {
	err := NewPolicy().Authorize(context.Background(), fakeRelations{}, &models.User{ID: 1, Role: models.RoleBranchRep}, ActCreateEvent, Target{})
	wantMessage(t, err, KindForbidden, "No branch under user")
}
