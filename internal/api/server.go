// Package api exposes the election engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/httpserver"
	"github.com/zhulik/evote/internal/lifecycle"
	"github.com/zhulik/evote/internal/live"
)

// HealthChecker reports the health of every service by name.
type HealthChecker func() map[string]error

type Server struct {
	*httpserver.Server

	controller *lifecycle.Controller
	hub        *live.Hub
	health     HealthChecker
	upgrader   websocket.Upgrader
}

func NewServer(injector *do.Injector) (*Server, error) {
	config, err := do.Invoke[core.Config](injector)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	controller, err := do.Invoke[*lifecycle.Controller](injector)
	if err != nil {
		return nil, err
	}

	hub, err := do.Invoke[*live.Hub](injector)
	if err != nil {
		return nil, err
	}

	return New(controller, hub, injector.HealthCheck, config.HTTPPort(), logger), nil
}

func New(controller *lifecycle.Controller, hub *live.Hub, health HealthChecker, port int, logger logrus.FieldLogger) *Server {
	srv := &Server{
		Server:     httpserver.NewServer("api.Server", port, logger, Respond),
		controller: controller,
		hub:        hub,
		health:     health,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}

	router := srv.Router

	router.GET("/health", srv.HealthHandler)
	router.POST("/sessions/voter", srv.AuthenticateVoterHandler)

	router.POST("/elections", srv.CreateElectionHandler)
	router.GET("/elections/lookup/:identity", srv.FindElectionHandler)

	elections := router.Group("/elections/:address")
	elections.GET("", srv.SnapshotHandler)
	elections.GET("/tallies", srv.TalliesHandler)
	elections.GET("/live", srv.LiveHandler)
	elections.POST("/refresh", srv.RefreshHandler)
	elections.POST("/candidates", srv.AddCandidateHandler)
	elections.GET("/voters", srv.ListVotersHandler)
	elections.POST("/voters", srv.RegisterVoterHandler)
	elections.PUT("/voters/:email", srv.UpdateVoterHandler)
	elections.DELETE("/voters/:email", srv.DeleteVoterHandler)
	elections.GET("/voters/:email/vote", srv.HasVotedHandler)
	elections.POST("/votes", srv.CastVoteHandler)
	elections.POST("/end", srv.EndElectionHandler)
	elections.POST("/reset", srv.ResetHandler)

	return srv
}

func (s *Server) HealthHandler(c *gin.Context) {
	failed := lo.PickBy(s.health(), func(_ string, err error) bool { return err != nil })
	if len(failed) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "ok"}})

		return
	}

	c.JSON(http.StatusServiceUnavailable, gin.H{
		"data": gin.H{
			"status":   "unhealthy",
			"services": lo.MapValues(failed, func(err error, _ string) string { return err.Error() }),
		},
	})
}

func (s *Server) CreateElectionHandler(c *gin.Context) {
	var input lifecycle.CreateElectionInput
	if !bind(c, &input) {
		return
	}

	created, err := s.controller.CreateElection(c.Request.Context(), input)
	respond(c, http.StatusCreated, created, err)
}

func (s *Server) FindElectionHandler(c *gin.Context) {
	ref, err := s.controller.FindElection(c.Request.Context(), c.Param("identity"))
	respond(c, http.StatusOK, ref, err)
}

func (s *Server) SnapshotHandler(c *gin.Context) {
	snapshot, err := s.controller.Snapshot(c.Request.Context(), c.Param("address"))
	respond(c, http.StatusOK, snapshot, err)
}

func (s *Server) TalliesHandler(c *gin.Context) {
	tallies, err := s.controller.Tallies(c.Request.Context(), c.Param("address"))
	respond(c, http.StatusOK, tallies, err)
}

func (s *Server) RefreshHandler(c *gin.Context) {
	resolution, err := s.controller.Refresh(c.Request.Context(), c.Param("address"))
	respond(c, http.StatusOK, resolution, err)
}

func (s *Server) AddCandidateHandler(c *gin.Context) {
	var input core.CandidateInput
	if !bind(c, &input) {
		return
	}

	updated, err := s.controller.AddCandidate(c.Request.Context(), c.Param("address"), input)
	respond(c, http.StatusCreated, updated, err)
}

func (s *Server) ListVotersHandler(c *gin.Context) {
	voters, err := s.controller.ListVoters(c.Request.Context(), c.Param("address"))
	respond(c, http.StatusOK, voters, err)
}

type voterRequest struct {
	Email string `json:"email"`
}

func (s *Server) RegisterVoterHandler(c *gin.Context) {
	var input voterRequest
	if !bind(c, &input) {
		return
	}

	voter, err := s.controller.RegisterVoter(c.Request.Context(), c.Param("address"), input.Email)
	respond(c, http.StatusCreated, voter, err)
}

func (s *Server) UpdateVoterHandler(c *gin.Context) {
	var input voterRequest
	if !bind(c, &input) {
		return
	}

	voter, err := s.controller.UpdateVoter(c.Request.Context(), c.Param("address"), c.Param("email"), input.Email)
	respond(c, http.StatusOK, voter, err)
}

func (s *Server) DeleteVoterHandler(c *gin.Context) {
	err := s.controller.DeleteVoter(c.Request.Context(), c.Param("address"), c.Param("email"))
	if err != nil {
		c.Error(err) //nolint:errcheck

		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) HasVotedHandler(c *gin.Context) {
	key := core.NewVoteRecordKey(c.Param("address"), c.Param("email"))

	voted, err := s.controller.HasVoted(c.Request.Context(), key)
	respond(c, http.StatusOK, gin.H{"hasVoted": voted}, err)
}

type voteRequest struct {
	VoterEmail  string `json:"voterEmail"`
	CandidateID *int   `json:"candidateId"`
}

func (s *Server) CastVoteHandler(c *gin.Context) {
	var input voteRequest
	if !bind(c, &input) {
		return
	}

	if input.CandidateID == nil {
		c.Error(fmt.Errorf("%w: candidateId is required", core.ErrInvalidInput)) //nolint:errcheck

		return
	}

	updated, err := s.controller.CastVote(c.Request.Context(), c.Param("address"), input.VoterEmail, *input.CandidateID)
	respond(c, http.StatusOK, updated, err)
}

func (s *Server) EndElectionHandler(c *gin.Context) {
	ended, err := s.controller.EndElection(c.Request.Context(), c.Param("address"))
	respond(c, http.StatusOK, ended, err)
}

func (s *Server) ResetHandler(c *gin.Context) {
	reset, err := s.controller.Reset(c.Request.Context(), c.Param("address"))
	respond(c, http.StatusOK, reset, err)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) AuthenticateVoterHandler(c *gin.Context) {
	var input credentials
	if !bind(c, &input) {
		return
	}

	identity, err := s.controller.AuthenticateVoter(c.Request.Context(), input.Email, input.Password)
	respond(c, http.StatusOK, identity, err)
}

// LiveHandler upgrades to a websocket that streams the election snapshot and its tallies.
func (s *Server) LiveHandler(c *gin.Context) {
	snapshot, err := s.controller.Snapshot(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.Error(err) //nolint:errcheck

		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.WithError(err).Debug("Websocket upgrade failed")

		return
	}

	initial := live.Snapshot(snapshot)

	err = live.NewConnection(snapshot.Address, conn, s.hub, s.Logger).Handle(&initial)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.WithError(err).Debug("Live connection closed")
	}
}

func bind(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.Error(fmt.Errorf("%w: malformed request body", core.ErrInvalidInput)) //nolint:errcheck

		return false
	}

	return true
}

func respond(c *gin.Context, status int, data any, err error) {
	if err != nil {
		c.Error(err) //nolint:errcheck

		return
	}

	c.JSON(status, gin.H{"data": data})
}
