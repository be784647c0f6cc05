// Package httpapi exposes the fest service over JSON/HTTP with gin.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/incridea-nmamit/incridea-server/internal/fest"
	"github.com/incridea-nmamit/incridea-server/internal/models"
)

type Server struct {
	svc    *fest.Service
	tokens Tokens
	logger *slog.Logger
}

func New(svc *fest.Service, tokens Tokens, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, tokens: tokens, logger: logger}
}

// Router builds the gin engine with every route mounted under /api.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api")
	{
		api.POST("/auth/register", s.register)
		api.POST("/auth/login", s.login)
		api.POST("/auth/logout", s.logout)

		public := api.Group("", s.OptionalAuth())
		public.GET("/events", s.listEvents)
		public.GET("/events/:id", s.getEvent)

		authed := api.Group("", s.Auth())
		authed.GET("/me", s.me)
		authed.GET("/my/teams", s.myTeams)
		authed.GET("/my/xp", s.myXP)
		authed.GET("/leaderboard", s.leaderboard)

		// events
		authed.POST("/events", s.createEvent)
		authed.PATCH("/events/:id", s.updateEvent)
		authed.DELETE("/events/:id", s.deleteEvent)
		authed.GET("/events/:id/eligible", s.eligible)
		authed.GET("/events/:id/rounds", s.listRounds)
		authed.POST("/events/:id/organizers", s.addOrganizer)
		authed.DELETE("/events/:id/organizers/:user", s.removeOrganizer)

		// participant registration
		authed.POST("/events/:id/teams", s.createTeam)
		authed.POST("/events/:id/register", s.registerSolo)
		authed.POST("/teams/:id/join", s.joinTeam)
		authed.POST("/teams/:id/leave", s.leaveTeam)
		authed.POST("/teams/:id/confirm", s.confirmTeam)
		authed.DELETE("/teams/:id", s.deleteTeam)
		authed.DELETE("/teams/:id/members/:user", s.removeTeamMember)

		org := authed.Group("/organizer", RequireRole(models.RoleOrganizer))
		{
			org.POST("/events/:id/teams", s.organizerCreateTeam)
			org.POST("/events/:id/solo", s.organizerRegisterSolo)
			org.POST("/events/:id/attendance", s.organizerMarkAttendanceSolo)
			org.POST("/events/:id/rounds", s.createRound)
			org.DELETE("/events/:id/rounds", s.deleteRound)
			org.POST("/events/:id/rounds/:round/judges", s.addJudge)
			org.DELETE("/events/:id/rounds/:round/judges/:user", s.removeJudge)
			org.POST("/teams/:id/members", s.organizerAddTeamMember)
			org.DELETE("/teams/:id/members/:user", s.organizerDeleteTeamMember)
			org.POST("/teams/:id/confirm", s.organizerConfirmTeam)
			org.POST("/teams/:id/attendance", s.organizerMarkAttendance)
			org.DELETE("/teams/:id", s.organizerDeleteTeam)
		}

		rounds := authed.Group("/events/:id/rounds/:round")
		{
			rounds.GET("/teams", s.teamsByRound)
			rounds.POST("/complete", s.completeRound)
			rounds.POST("/select", s.changeSelectStatus)
			rounds.GET("/criteria", s.listCriteria)
			rounds.POST("/criteria", s.createCriteria)
			rounds.DELETE("/criteria/:criteria", s.deleteCriteria)
		}
		authed.POST("/teams/:id/promote", s.promote)

		// winners
		authed.GET("/winners", s.allWinners)
		authed.GET("/events/:id/winners", s.winnersByEvent)
		authed.POST("/events/:id/winners", s.createWinner)
		authed.DELETE("/winners/:id", s.deleteWinner)

		admin := authed.Group("/admin", RequireRole(models.RoleAdmin))
		{
			admin.GET("/logs", s.auditLogs)
			admin.GET("/users", s.listUsers)
			admin.POST("/users/:id/role", s.setRole)
			admin.POST("/events/:id/publish", s.publishEvent)
			admin.POST("/branches/:id/reps", s.addBranchRep)
			admin.DELETE("/branches/:id/reps/:user", s.removeBranchRep)
		}
	}
	return r
}
