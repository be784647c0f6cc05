package fest

import (
	"context"
	"errors"
	"slices"

	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// Action names an operation guarded by the policy.
type Action string

const (
	ActCreateTeam            Action = "create_team"
	ActJoinTeam              Action = "join_team"
	ActLeaveTeam             Action = "leave_team"
	ActConfirmTeam           Action = "confirm_team"
	ActDeleteTeam            Action = "delete_team"
	ActRemoveTeamMember      Action = "remove_team_member"
	ActRegisterSolo          Action = "register_solo"
	ActOrganizerCreateTeam   Action = "organizer_create_team"
	ActOrganizerAddMember    Action = "organizer_add_member"
	ActOrganizerDeleteTeam   Action = "organizer_delete_team"
	ActOrganizerDeleteMember Action = "organizer_delete_member"
	ActOrganizerConfirmTeam  Action = "organizer_confirm_team"
	ActOrganizerRegisterSolo Action = "organizer_register_solo"
	ActMarkAttendance        Action = "mark_attendance"
	ActMarkAttendanceSolo    Action = "mark_attendance_solo"
	ActCreateRound           Action = "create_round"
	ActDeleteRound           Action = "delete_round"
	ActAddJudge              Action = "add_judge"
	ActRemoveJudge           Action = "remove_judge"
	ActCompleteRound         Action = "complete_round"
	ActChangeSelectStatus    Action = "change_select_status"
	ActPromote               Action = "promote_to_next_round"
	ActViewRoundTeams        Action = "view_round_teams"
	ActCreateCriteria        Action = "create_criteria"
	ActDeleteCriteria        Action = "delete_criteria"
	ActViewCriteria          Action = "view_criteria"
	ActCreateWinner          Action = "create_winner"
	ActDeleteWinner          Action = "delete_winner"
	ActViewWinners           Action = "view_winners"
	ActCreateEvent           Action = "create_event"
	ActUpdateEvent           Action = "update_event"
	ActDeleteEvent           Action = "delete_event"
	ActPublishEvent          Action = "publish_event"
	ActAddOrganizer          Action = "add_organizer"
	ActRemoveOrganizer       Action = "remove_organizer"
	ActAddBranchRep          Action = "add_branch_rep"
	ActRemoveBranchRep       Action = "remove_branch_rep"
	ActSetRole               Action = "set_role"
	ActViewAudit             Action = "view_audit"
	ActViewSelf              Action = "view_self"
)

// Relations answers relationship questions for the policy. *store.Tx implements it.
type Relations interface {
	IsOrganizer(ctx context.Context, eventID, userID int64) (bool, error)
	IsJudge(ctx context.Context, eventID int64, roundNo int, userID int64) (bool, error)
	BranchOf(ctx context.Context, userID int64) (int64, error)
}

// Target carries the entity facts a relationship predicate needs.
type Target struct {
	EventID  int64
	BranchID int64
	RoundNo  int
	Team     *models.Team
}

// Relation reports whether actor stands in the required relationship to target.
type Relation func(ctx context.Context, rel Relations, actor *models.User, target Target) (bool, error)

// Rule is the requirement of one action: the actor's role must be in Allow
// (any role when empty) and not in Deny, then Relation must hold.
type Rule struct {
	Allow    []models.Role
	Deny     []models.Role
	Relation Relation
	Denied   string
}

var participantDeny = []models.Role{models.RoleUser, models.RoleJudge, models.RoleJury}

var organizerOnly = []models.Role{models.RoleOrganizer}
var judgeOnly = []models.Role{models.RoleJudge}
var adminOnly = []models.Role{models.RoleAdmin}
var branchRepOnly = []models.Role{models.RoleBranchRep}
var roundStaff = []models.Role{models.RoleJudge, models.RoleOrganizer}

var rules = map[Action]Rule{
	ActCreateTeam:       {Deny: participantDeny},
	ActJoinTeam:         {Deny: participantDeny},
	ActLeaveTeam:        {Deny: participantDeny},
	ActRegisterSolo:     {Deny: participantDeny},
	ActConfirmTeam:      {Deny: participantDeny, Relation: leaderOfTeam, Denied: "Not authorized only leader can confirm team"},
	ActDeleteTeam:       {Deny: participantDeny, Relation: leaderOfTeam, Denied: "Not authorized only leader can delete team"},
	ActRemoveTeamMember: {Relation: leaderOfTeam, Denied: "Action allowed only for the leader"},

	ActOrganizerCreateTeam:   {Allow: organizerOnly, Relation: organizerOfEvent},
	ActOrganizerAddMember:    {Allow: organizerOnly, Relation: organizerOfEvent},
	ActOrganizerDeleteTeam:   {Allow: organizerOnly, Relation: organizerOfEvent},
	ActOrganizerDeleteMember: {Allow: organizerOnly, Relation: organizerOfEvent},
	ActOrganizerConfirmTeam:  {Allow: organizerOnly, Relation: organizerOfEvent},
	ActOrganizerRegisterSolo: {Allow: organizerOnly, Relation: organizerOfEvent},
	ActMarkAttendance:        {Allow: organizerOnly, Relation: organizerOfEvent},
	ActMarkAttendanceSolo:    {Allow: organizerOnly, Relation: organizerOfEvent},
	ActCreateRound:           {Allow: organizerOnly, Relation: organizerOfEvent},
	ActDeleteRound:           {Allow: organizerOnly, Relation: organizerOfEvent},
	ActAddJudge:              {Allow: organizerOnly, Relation: organizerOfEvent},
	ActRemoveJudge:           {Allow: organizerOnly, Relation: organizerOfEvent},

	ActCompleteRound:      {Allow: judgeOnly, Relation: judgeOfRound},
	ActChangeSelectStatus: {Allow: judgeOnly, Relation: judgeOfRound},
	ActPromote:            {Allow: judgeOnly, Relation: judgeOfRound},
	ActViewRoundTeams: {
		Allow:    roundStaff,
		Relation: anyOf(judgeOfRound, organizerOfEvent),
	},

	ActCreateCriteria: {Allow: roundStaff, Relation: anyOf(judgeOfRound, organizerOfEvent)},
	ActDeleteCriteria: {Allow: roundStaff, Relation: anyOf(judgeOfRound, organizerOfEvent)},
	ActViewCriteria:   {Allow: roundStaff, Relation: anyOf(judgeOfRound, organizerOfEvent)},
	ActCreateWinner:   {Allow: judgeOnly, Relation: judgeOfRound, Denied: "Only judges of the final round can declare winners"},
	ActDeleteWinner:   {Allow: judgeOnly, Relation: judgeOfRound, Denied: "Only judges of the final round can declare winners"},
	ActViewWinners:    {Allow: []models.Role{models.RoleJudge, models.RoleJury}},

	ActCreateEvent: {Allow: branchRepOnly, Relation: repOfAnyBranch, Denied: "No branch under user"},
	ActUpdateEvent: {
		Allow:    []models.Role{models.RoleBranchRep, models.RoleOrganizer, models.RoleAdmin},
		Relation: eventManager,
		Denied:   "You are not authorized to update this event",
	},
	ActDeleteEvent: {
		Allow:    []models.Role{models.RoleBranchRep, models.RoleOrganizer},
		Relation: eventManager,
		Denied:   "You are not authorized to delete this event",
	},
	ActPublishEvent:    {Allow: adminOnly},
	ActAddOrganizer:    {Allow: branchRepOnly, Relation: repOfBranch},
	ActRemoveOrganizer: {Allow: branchRepOnly, Relation: repOfBranch},
	ActAddBranchRep:    {Allow: adminOnly},
	ActRemoveBranchRep: {Allow: adminOnly},
	ActSetRole:         {Allow: adminOnly},
	ActViewAudit:       {Allow: adminOnly},
	ActViewSelf:        {},
}

// Policy evaluates rules on every call; nothing is cached.
type Policy struct {
	rules map[Action]Rule
}

func NewPolicy() Policy { return Policy{rules: rules} }

// Gate checks authentication and the role part of the rule.
func (p Policy) Gate(actor *models.User, action Action) error {
	if actor == nil {
		return unauthenticated()
	}
	rule, ok := p.rules[action]
	if !ok {
		return forbidden("Not authorized")
	}
	if len(rule.Allow) > 0 && !slices.Contains(rule.Allow, actor.Role) {
		return forbidden("Not authorized")
	}
	if slices.Contains(rule.Deny, actor.Role) {
		return forbidden("Not authorized")
	}
	return nil
}

// Authorize runs Gate and then the rule's relationship predicate against target.
func (p Policy) Authorize(ctx context.Context, rel Relations, actor *models.User, action Action, target Target) error {
	if err := p.Gate(actor, action); err != nil {
		return err
	}
	rule := p.rules[action]
	if rule.Relation == nil {
		return nil
	}
	ok, err := rule.Relation(ctx, rel, actor, target)
	if err != nil {
		return translate(err, "Relation")
	}
	if !ok {
		msg := rule.Denied
		if msg == "" {
			msg = "Not authorized"
		}
		return forbidden("%s", msg)
	}
	return nil
}

func organizerOfEvent(ctx context.Context, rel Relations, actor *models.User, target Target) (bool, error) {
	return rel.IsOrganizer(ctx, target.EventID, actor.ID)
}

func judgeOfRound(ctx context.Context, rel Relations, actor *models.User, target Target) (bool, error) {
	return rel.IsJudge(ctx, target.EventID, target.RoundNo, actor.ID)
}

func leaderOfTeam(_ context.Context, _ Relations, actor *models.User, target Target) (bool, error) {
	return target.Team != nil && target.Team.LedBy(actor.ID), nil
}

func repOfBranch(ctx context.Context, rel Relations, actor *models.User, target Target) (bool, error) {
	branchID, err := rel.BranchOf(ctx, actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return branchID == target.BranchID, nil
}

func repOfAnyBranch(ctx context.Context, rel Relations, actor *models.User, _ Target) (bool, error) {
	_, err := rel.BranchOf(ctx, actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// eventManager: branch reps manage their branch's events, organizers their
// own events, admins every event.
func eventManager(ctx context.Context, rel Relations, actor *models.User, target Target) (bool, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleBranchRep:
		return repOfBranch(ctx, rel, actor, target)
	case models.RoleOrganizer:
		return organizerOfEvent(ctx, rel, actor, target)
	}
	return false, nil
}

func anyOf(relations ...Relation) Relation {
	return func(ctx context.Context, rel Relations, actor *models.User, target Target) (bool, error) {
		for _, r := range relations {
			ok, err := r(ctx, rel, actor, target)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
}
