package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/incridea-nmamit/incridea-server/internal/fest"
	"github.com/incridea-nmamit/incridea-server/internal/models"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// respond writes v on success or the categorized error.
func (s *Server) respond(c *gin.Context, v any, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type userRef struct {
	UserID int64 `json:"user_id"`
}

func bindUser(c *gin.Context) (int64, bool) {
	var req userRef
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		badRequest(c, "user_id is required")
		return 0, false
	}
	return req.UserID, true
}

func bindName(c *gin.Context) (string, bool) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad json")
		return "", false
	}
	return req.Name, true
}

// ------------------- Events -------------------

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.svc.Events(c.Request.Context(), actor(c))
	s.respond(c, events, err)
}

func (s *Server) getEvent(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	ev, err := s.svc.Event(c.Request.Context(), actor(c), id)
	s.respond(c, ev, err)
}

func (s *Server) createEvent(c *gin.Context) {
	var in fest.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "bad json")
		return
	}
	ev, err := s.svc.CreateEvent(c.Request.Context(), actor(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

type eventPatch struct {
	Name                      *string               `json:"name"`
	Description               *string               `json:"description"`
	Venue                     *string               `json:"venue"`
	Category                  *models.EventCategory `json:"category"`
	Type                      *models.EventType     `json:"event_type"`
	MinTeamSize               *int                  `json:"min_team_size"`
	MaxTeamSize               *int                  `json:"max_team_size"`
	MaxTeams                  *int                  `json:"max_teams"`
	Fees                      *int                  `json:"fees"`
	EnforceCollegeHomogeneity *bool                 `json:"enforce_college_homogeneity"`
}

func (s *Server) updateEvent(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	var p eventPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "bad json")
		return
	}
	ev, err := s.svc.UpdateEvent(c.Request.Context(), actor(c), id, store.EventPatch(p))
	s.respond(c, ev, err)
}

func (s *Server) deleteEvent(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	ev, err := s.svc.DeleteEvent(c.Request.Context(), actor(c), id)
	s.respond(c, ev, err)
}

func (s *Server) eligible(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	can, err := s.svc.Eligible(c.Request.Context(), actor(c), id)
	s.respond(c, gin.H{"eligible": can}, err)
}

func (s *Server) addOrganizer(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	userID, ok := bindUser(c)
	if !ok {
		return
	}
	org, err := s.svc.AddOrganizer(c.Request.Context(), actor(c), id, userID)
	s.respond(c, org, err)
}

func (s *Server) removeOrganizer(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	userID, ok := param(c, "user")
	if !ok {
		return
	}
	org, err := s.svc.RemoveOrganizer(c.Request.Context(), actor(c), id, userID)
	s.respond(c, org, err)
}

// ------------------- Teams (participant) -------------------

func (s *Server) createTeam(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	name, ok := bindName(c)
	if !ok {
		return
	}
	tm, err := s.svc.CreateTeam(c.Request.Context(), actor(c), id, name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tm)
}

func (s *Server) registerSolo(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	tm, err := s.svc.RegisterSoloEvent(c.Request.Context(), actor(c), id)
	s.respond(c, tm, err)
}

func (s *Server) joinTeam(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	m, err := s.svc.JoinTeam(c.Request.Context(), actor(c), id)
	s.respond(c, m, err)
}

func (s *Server) leaveTeam(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	m, err := s.svc.LeaveTeam(c.Request.Context(), actor(c), id)
	s.respond(c, m, err)
}

func (s *Server) confirmTeam(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	tm, err := s.svc.ConfirmTeam(c.Request.Context(), actor(c), id)
	s.respond(c, tm, err)
}

func (s *Server) deleteTeam(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	tm, err := s.svc.DeleteTeam(c.Request.Context(), actor(c), id)
	s.respond(c, tm, err)
}

func (s *Server) removeTeamMember(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	userID, ok := param(c, "user")
	if !ok {
		return
	}
	m, err := s.svc.RemoveTeamMember(c.Request.Context(), actor(c), id, userID)
	s.respond(c, m, err)
}

func (s *Server) myTeams(c *gin.Context) {
	teams, err := s.svc.MyTeams(c.Request.Context(), actor(c))
	s.respond(c, teams, err)
}

// ------------------- Organizer -------------------

func (s *Server) organizerCreateTeam(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	name, ok := bindName(c)
	if !ok {
		return
	}
	tm, err := s.svc.OrganizerCreateTeam(c.Request.Context(), actor(c), id, name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tm)
}

func (s *Server) organizerAddTeamMember(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	userID, ok := bindUser(c)
	if !ok {
		return
	}
	m, err := s.svc.OrganizerAddTeamMember(c.Request.Context(), actor(c), id, userID)
	s.respond(c, m, err)
}

func (s *Server) organizerDeleteTeam(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	tm, err := s.svc.OrganizerDeleteTeam(c.Request.Context(), actor(c), id)
	s.respond(c, tm, err)
}

func (s *Server) organizerDeleteTeamMember(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	userID, ok := param(c, "user")
	if !ok {
		return
	}
	m, err := s.svc.OrganizerDeleteTeamMember(c.Request.Context(), actor(c), id, userID)
	s.respond(c, m, err)
}

func (s *Server) organizerConfirmTeam(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	tm, err := s.svc.OrganizerConfirmTeam(c.Request.Context(), actor(c), id)
	s.respond(c, tm, err)
}

func (s *Server) organizerRegisterSolo(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	userID, ok := bindUser(c)
	if !ok {
		return
	}
	tm, err := s.svc.OrganizerRegisterSolo(c.Request.Context(), actor(c), id, userID)
	s.respond(c, tm, err)
}

func (s *Server) organizerMarkAttendance(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	var req struct {
		Attended *bool `json:"attended"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Attended == nil {
		badRequest(c, "attended is required")
		return
	}
	tm, err := s.svc.OrganizerMarkAttendance(c.Request.Context(), actor(c), id, *req.Attended)
	s.respond(c, tm, err)
}

func (s *Server) organizerMarkAttendanceSolo(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	var req struct {
		UserID   int64 `json:"user_id"`
		Attended *bool `json:"attended"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 || req.Attended == nil {
		badRequest(c, "user_id and attended are required")
		return
	}
	n, err := s.svc.OrganizerMarkAttendanceSolo(c.Request.Context(), actor(c), id, req.UserID, *req.Attended)
	s.respond(c, gin.H{"updated": n}, err)
}

// ------------------- Rounds -------------------

func (s *Server) listRounds(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	rounds, err := s.svc.Rounds(c.Request.Context(), actor(c), id)
	s.respond(c, rounds, err)
}

func (s *Server) createRound(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	var req struct {
		Date time.Time `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Date.IsZero() {
		badRequest(c, "date is required")
		return
	}
	r, err := s.svc.CreateRound(c.Request.Context(), actor(c), id, req.Date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) deleteRound(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	r, err := s.svc.DeleteRound(c.Request.Context(), actor(c), id)
	s.respond(c, r, err)
}

func (s *Server) addJudge(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	roundNo, ok := roundParam(c)
	if !ok {
		return
	}
	userID, ok := bindUser(c)
	if !ok {
		return
	}
	j, err := s.svc.AddJudge(c.Request.Context(), actor(c), id, roundNo, userID)
	s.respond(c, j, err)
}

func (s *Server) removeJudge(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	roundNo, ok := roundParam(c)
	if !ok {
		return
	}
	userID, ok := param(c, "user")
	if !ok {
		return
	}
	j, err := s.svc.RemoveJudge(c.Request.Context(), actor(c), id, roundNo, userID)
	s.respond(c, j, err)
}

func (s *Server) teamsByRound(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	roundNo, ok := roundParam(c)
	if !ok {
		return
	}
	teams, err := s.svc.TeamsByRound(c.Request.Context(), actor(c), id, roundNo)
	s.respond(c, teams, err)
}

func (s *Server) completeRound(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	roundNo, ok := roundParam(c)
	if !ok {
		return
	}
	r, err := s.svc.CompleteRound(c.Request.Context(), actor(c), id, roundNo)
	s.respond(c, r, err)
}

func (s *Server) changeSelectStatus(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	roundNo, ok := roundParam(c)
	if !ok {
		return
	}
	r, err := s.svc.ChangeSelectStatus(c.Request.Context(), actor(c), id, roundNo)
	s.respond(c, r, err)
}

func (s *Server) promote(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	var req struct {
		RoundNo  int   `json:"round_no"`
		Selected *bool `json:"selected"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoundNo <= 0 || req.Selected == nil {
		badRequest(c, "round_no and selected are required")
		return
	}
	tm, err := s.svc.PromoteToNextRound(c.Request.Context(), actor(c), id, req.RoundNo, *req.Selected)
	s.respond(c, tm, err)
}

// ------------------- Judging -------------------

func (s *Server) listCriteria(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	roundNo, ok := roundParam(c)
	if !ok {
		return
	}
	list, err := s.svc.Criteria(c.Request.Context(), actor(c), id, roundNo)
	s.respond(c, list, err)
}

func (s *Server) createCriteria(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	roundNo, ok := roundParam(c)
	if !ok {
		return
	}
	var req struct {
		Name string              `json:"name"`
		Type models.CriteriaType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad json")
		return
	}
	cr, err := s.svc.CreateCriteria(c.Request.Context(), actor(c), id, roundNo, req.Name, req.Type)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cr)
}

func (s *Server) deleteCriteria(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	roundNo, ok := roundParam(c)
	if !ok {
		return
	}
	criteriaID, ok := param(c, "criteria")
	if !ok {
		return
	}
	cr, err := s.svc.DeleteCriteria(c.Request.Context(), actor(c), id, roundNo, criteriaID)
	s.respond(c, cr, err)
}

func (s *Server) allWinners(c *gin.Context) {
	winners, err := s.svc.AllWinners(c.Request.Context(), actor(c))
	s.respond(c, winners, err)
}

func (s *Server) winnersByEvent(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	winners, err := s.svc.WinnersByEvent(c.Request.Context(), actor(c), id)
	s.respond(c, winners, err)
}

func (s *Server) createWinner(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	var req struct {
		TeamID int64             `json:"team_id"`
		Type   models.WinnerType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TeamID <= 0 {
		badRequest(c, "team_id and type are required")
		return
	}
	w, err := s.svc.CreateWinner(c.Request.Context(), actor(c), id, req.TeamID, req.Type)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (s *Server) deleteWinner(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	w, err := s.svc.DeleteWinner(c.Request.Context(), actor(c), id)
	s.respond(c, w, err)
}

// ------------------- Rewards -------------------

func (s *Server) myXP(c *gin.Context) {
	total, err := s.svc.UserXP(c.Request.Context(), actor(c))
	s.respond(c, gin.H{"xp": total}, err)
}

func (s *Server) leaderboard(c *gin.Context) {
	board, err := s.svc.Leaderboard(c.Request.Context(), actor(c), limitQuery(c))
	s.respond(c, board, err)
}

// ------------------- Admin -------------------

func (s *Server) auditLogs(c *gin.Context) {
	logs, err := s.svc.AuditLogs(c.Request.Context(), actor(c), limitQuery(c))
	s.respond(c, logs, err)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.svc.Users(c.Request.Context(), actor(c), limitQuery(c))
	s.respond(c, users, err)
}

func (s *Server) setRole(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad json")
		return
	}
	u, err := s.svc.SetRole(c.Request.Context(), actor(c), id, req.Role)
	s.respond(c, u, err)
}

func (s *Server) publishEvent(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	req := struct {
		Published *bool `json:"published"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil || req.Published == nil {
		badRequest(c, "published is required")
		return
	}
	ev, err := s.svc.PublishEvent(c.Request.Context(), actor(c), id, *req.Published)
	s.respond(c, ev, err)
}

func (s *Server) addBranchRep(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	userID, ok := bindUser(c)
	if !ok {
		return
	}
	rep, err := s.svc.AddBranchRep(c.Request.Context(), actor(c), id, userID)
	s.respond(c, rep, err)
}

func (s *Server) removeBranchRep(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	userID, ok := param(c, "user")
	if !ok {
		return
	}
	rep, err := s.svc.RemoveBranchRep(c.Request.Context(), actor(c), id, userID)
	s.respond(c, rep, err)
}
