package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/httpserver"
)

type errorKind struct {
	err    error
	kind   string
	status int
}

// Checked in order, the first match wins. Wrapping sentinels come before the ones they may wrap.
var errorKinds = []errorKind{ //nolint:gochecknoglobals
	{core.ErrCreationFailed, "creation_failed", http.StatusBadGateway},
	{core.ErrInvalidState, "invalid_state", http.StatusInternalServerError},
	{core.ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{core.ErrVoterNotIdentified, "voter_not_identified", http.StatusBadRequest},
	{core.ErrInvalidCandidate, "invalid_candidate", http.StatusUnprocessableEntity},
	{core.ErrElectionClosed, "election_closed", http.StatusConflict},
	{core.ErrDuplicateVote, "duplicate_vote", http.StatusConflict},
	{core.ErrDuplicateVoter, "duplicate_voter", http.StatusConflict},
	{core.ErrDuplicateCandidate, "duplicate_candidate", http.StatusConflict},
	{core.ErrVoterHasVoted, "voter_has_voted", http.StatusConflict},
	{core.ErrAlreadyCompleted, "already_completed", http.StatusConflict},
	{core.ErrConcurrentUpdate, "concurrent_update", http.StatusConflict},
	{core.ErrStaleSnapshot, "concurrent_update", http.StatusConflict},
	{core.ErrElectionNotFound, "election_not_found", http.StatusNotFound},
	{core.ErrVoterNotFound, "voter_not_found", http.StatusNotFound},
	{core.ErrAuthFailed, "auth_failed", http.StatusUnauthorized},
	{core.ErrCollaboratorTimeout, "collaborator_timeout", http.StatusGatewayTimeout},
	{context.DeadlineExceeded, "collaborator_timeout", http.StatusGatewayTimeout},
	{core.ErrCollaboratorDisabled, "collaborator_disabled", http.StatusServiceUnavailable},
	{core.ErrMirrorUnavailable, "mirror_unavailable", http.StatusServiceUnavailable},
	{core.ErrMalformedResponse, "collaborator_failed", http.StatusBadGateway},
	{core.ErrCollaboratorFailed, "collaborator_failed", http.StatusBadGateway},
}

// Respond maps domain errors to their stable kind and status. Unknown errors are not exposed.
func Respond(err error) (int, httpserver.ErrorBody) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, httpserver.ErrorBody{
				Error: httpserver.ErrorDetails{Kind: k.kind, Message: err.Error()},
			}
		}
	}

	return httpserver.InternalError(err)
}
