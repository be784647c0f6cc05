package models

import "time"

type Role string

const (
	RoleUser        Role = "USER"
	RoleParticipant Role = "PARTICIPANT"
	RoleBranchRep   Role = "BRANCH_REP"
	RoleOrganizer   Role = "ORGANIZER"
	RoleJudge       Role = "JUDGE"
	RoleJury        Role = "JURY"
	RoleAdmin       Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleParticipant, RoleBranchRep, RoleOrganizer, RoleJudge, RoleJury, RoleAdmin:
		return true
	}
	return false
}

type CollegeType string

const (
	CollegeEngineering CollegeType = "ENGINEERING"
	CollegeOther       CollegeType = "OTHER"
)

type EventCategory string

const (
	CategoryCore         EventCategory = "CORE"
	CategoryTechnical    EventCategory = "TECHNICAL"
	CategoryNonTechnical EventCategory = "NON_TECHNICAL"
	CategorySpecial      EventCategory = "SPECIAL"
)

func (c EventCategory) Valid() bool {
	switch c {
	case CategoryCore, CategoryTechnical, CategoryNonTechnical, CategorySpecial:
		return true
	}
	return false
}

type EventType string

const (
	EventIndividual              EventType = "INDIVIDUAL"
	EventIndividualMultipleEntry EventType = "INDIVIDUAL_MULTIPLE_ENTRY"
	EventTeam                    EventType = "TEAM"
	EventTeamMultipleEntry       EventType = "TEAM_MULTIPLE_ENTRY"
)

func (t EventType) Valid() bool {
	switch t {
	case EventIndividual, EventIndividualMultipleEntry, EventTeam, EventTeamMultipleEntry:
		return true
	}
	return false
}

// Individual reports whether teams of this event are single-member registrations.
func (t EventType) Individual() bool {
	return t == EventIndividual || t == EventIndividualMultipleEntry
}

// SingleEntry reports whether a user may hold only one registration for the event.
func (t EventType) SingleEntry() bool {
	return t == EventIndividual || t == EventTeam
}

type College struct {
	ID   int64       `json:"id"`
	Name string      `json:"name"`
	Type CollegeType `json:"type"`
}

type User struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	CollegeID   *int64      `json:"college_id,omitempty"`
	CollegeType CollegeType `json:"college_type,omitempty"`
}

type Branch struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Event struct {
	ID                        int64         `json:"id"`
	Name                      string        `json:"name"`
	Description               string        `json:"description"`
	Venue                     string        `json:"venue"`
	Category                  EventCategory `json:"category"`
	Type                      EventType     `json:"event_type"`
	MinTeamSize               int           `json:"min_team_size"`
	MaxTeamSize               int           `json:"max_team_size"`
	MaxTeams                  int           `json:"max_teams"` // 0 = unlimited
	Fees                      int           `json:"fees"`
	Published                 bool          `json:"published"`
	BranchID                  int64         `json:"branch_id"`
	EnforceCollegeHomogeneity bool          `json:"enforce_college_homogeneity"`
	ConfirmedTeams            int           `json:"confirmed_teams"`
}

func (e Event) Paid() bool { return e.Fees > 0 }

// Full reports whether the confirmed-team quota is exhausted.
func (e Event) Full() bool {
	return e.MaxTeams > 0 && e.ConfirmedTeams >= e.MaxTeams
}

type Team struct {
	ID          int64  `json:"id"`
	EventID     int64  `json:"event_id"`
	Name        string `json:"name"`
	LeaderID    *int64 `json:"leader_id,omitempty"`
	Confirmed   bool   `json:"confirmed"`
	Attended    bool   `json:"attended"`
	RoundNo     int    `json:"round_no"`
	MemberCount int    `json:"member_count"`
}

func (t Team) LedBy(userID int64) bool {
	return t.LeaderID != nil && *t.LeaderID == userID
}

type TeamMember struct {
	TeamID int64 `json:"team_id"`
	UserID int64 `json:"user_id"`
}

type Round struct {
	EventID      int64     `json:"event_id"`
	RoundNo      int       `json:"round_no"`
	Date         time.Time `json:"date"`
	Completed    bool      `json:"completed"`
	SelectStatus bool      `json:"select_status"`
}

type Judge struct {
	UserID  int64 `json:"user_id"`
	EventID int64 `json:"event_id"`
	RoundNo int   `json:"round_no"`
}

type Organizer struct {
	UserID  int64 `json:"user_id"`
	EventID int64 `json:"event_id"`
}

type BranchRep struct {
	UserID   int64 `json:"user_id"`
	BranchID int64 `json:"branch_id"`
}

type Level struct {
	ID      int64 `json:"id"`
	EventID int64 `json:"event_id"`
	Point   int   `json:"point"`
}

type XP struct {
	ID      int64 `json:"id"`
	UserID  int64 `json:"user_id"`
	LevelID int64 `json:"level_id"`
}

type LeaderboardEntry struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

type CriteriaType string

const (
	CriteriaNumber CriteriaType = "NUMBER"
	CriteriaText   CriteriaType = "TEXT"
	CriteriaTime   CriteriaType = "TIME"
)

func (c CriteriaType) Valid() bool {
	switch c {
	case CriteriaNumber, CriteriaText, CriteriaTime:
		return true
	}
	return false
}

// Criteria is one judging axis of a round.
type Criteria struct {
	ID      int64        `json:"id"`
	EventID int64        `json:"event_id"`
	RoundNo int          `json:"round_no"`
	Name    string       `json:"name"`
	Type    CriteriaType `json:"type"`
}

type WinnerType string

const (
	WinnerFirst        WinnerType = "WINNER"
	WinnerRunnerUp     WinnerType = "RUNNER_UP"
	WinnerSecondRunner WinnerType = "SECOND_RUNNER_UP"
)

func (w WinnerType) Valid() bool {
	switch w {
	case WinnerFirst, WinnerRunnerUp, WinnerSecondRunner:
		return true
	}
	return false
}

type Winner struct {
	ID      int64      `json:"id"`
	EventID int64      `json:"event_id"`
	TeamID  int64      `json:"team_id"`
	Type    WinnerType `json:"type"`
}
