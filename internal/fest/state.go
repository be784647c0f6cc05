package fest

import "github.com/incridea-nmamit/incridea-server/internal/models"

// TeamState is the lifecycle position of a team. Deleted teams have no row.
type TeamState string

const (
	TeamOpen      TeamState = "OPEN"
	TeamConfirmed TeamState = "CONFIRMED"
	TeamDeleted   TeamState = "DELETED"
)

type TeamAction string

const (
	TeamAddMember       TeamAction = "add_member"
	TeamRemoveMember    TeamAction = "remove_member"
	TeamConfirm         TeamAction = "confirm"
	TeamDelete          TeamAction = "delete"
	TeamOrganizerDelete TeamAction = "organizer_delete"
	TeamMarkAttendance  TeamAction = "mark_attendance"
	TeamPromote         TeamAction = "promote"
)

var teamTransitions = map[TeamState]map[TeamAction]TeamState{
	TeamOpen: {
		TeamAddMember:       TeamOpen,
		TeamRemoveMember:    TeamOpen,
		TeamConfirm:         TeamConfirmed,
		TeamDelete:          TeamDeleted,
		TeamOrganizerDelete: TeamDeleted,
	},
	TeamConfirmed: {
		TeamOrganizerDelete: TeamDeleted,
		TeamMarkAttendance:  TeamConfirmed,
		TeamPromote:         TeamConfirmed,
	},
}

var teamRejections = map[TeamState]string{
	TeamOpen:      "Team is not confirmed",
	TeamConfirmed: "Team is confirmed",
}

func TeamStateOf(t models.Team) TeamState {
	if t.Confirmed {
		return TeamConfirmed
	}
	return TeamOpen
}

// teamTransition returns the next state or an invariant violation.
func teamTransition(t models.Team, action TeamAction) (TeamState, error) {
	from := TeamStateOf(t)
	to, ok := teamTransitions[from][action]
	if !ok {
		return from, invariant("%s", teamRejections[from])
	}
	return to, nil
}

// RoundState is the lifecycle position of a round. COMPLETED is terminal.
type RoundState string

const (
	RoundPending   RoundState = "PENDING"
	RoundCompleted RoundState = "COMPLETED"
)

type RoundAction string

const (
	RoundComplete     RoundAction = "complete"
	RoundToggleSelect RoundAction = "toggle_select"
	RoundPromote      RoundAction = "promote"
)

var roundTransitions = map[RoundState]map[RoundAction]RoundState{
	RoundPending: {
		RoundComplete:     RoundCompleted,
		RoundToggleSelect: RoundPending,
		RoundPromote:      RoundPending,
	},
	RoundCompleted: {
		RoundComplete: RoundCompleted,
	},
}

func RoundStateOf(r models.Round) RoundState {
	if r.Completed {
		return RoundCompleted
	}
	return RoundPending
}

func roundTransition(r models.Round, action RoundAction) (RoundState, error) {
	from := RoundStateOf(r)
	to, ok := roundTransitions[from][action]
	if !ok {
		return from, invariant("Round completed")
	}
	return to, nil
}
