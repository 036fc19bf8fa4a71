// Package backend is the client of the account and voter registration service.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/pkg/json"
)

const (
	statusSuccess = "success"

	maxResponseSize = 1 << 20
)

// envelope is the response format of every backend endpoint.
type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// flexibleID accepts both numeric and string ids.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		value, err := json.Unmarshal[string](data)
		if err != nil {
			return err
		}

		*id = flexibleID(value)

		return nil
	}

	if string(data) == "null" {
		*id = ""

		return nil
	}

	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("%w: id %s", core.ErrMalformedResponse, data)
	}

	*id = flexibleID(data)

	return nil
}

type registration struct {
	VoterID flexibleID `json:"voter_id"`
}

type voterList struct {
	Voters []struct {
		ID    flexibleID `json:"id"`
		Email string     `json:"email"`
	} `json:"voters"`
}

type session struct {
	VoterID         flexibleID `json:"voter_id"`
	ElectionAddress string     `json:"election_address"`
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  logrus.FieldLogger
}

func NewClient(injector *do.Injector) (*Client, error) {
	config, err := do.Invoke[core.Config](injector)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	return New(config.BackendURL(), &http.Client{Timeout: config.CollaboratorTimeout()}, logger)
}

func New(baseURL string, httpClient *http.Client, logger logrus.FieldLogger) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: backend url: %w", core.ErrInvalidInput, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: backend url must be http or https", core.ErrInvalidInput)
	}

	return &Client{
		baseURL: parsed,
		http:    httpClient,
		logger:  logger.WithField("component", "backend.Client"),
	}, nil
}

func (c *Client) RegisterVoter(
	ctx context.Context, email, electionAddress, electionName, electionDescription string,
) (string, error) {
	res, err := send[registration](ctx, c, http.MethodPost, "/voter/register", url.Values{
		"email":                {email},
		"election_address":     {electionAddress},
		"election_name":        {electionName},
		"election_description": {electionDescription},
	})
	if err != nil {
		return "", err
	}

	return string(res.VoterID), nil
}

func (c *Client) ListVoters(ctx context.Context, electionAddress string) ([]core.BackendVoter, error) {
	res, err := send[voterList](ctx, c, http.MethodPost, "/voter/", url.Values{
		"election_address": {electionAddress},
	})
	if err != nil {
		return nil, err
	}

	voters := make([]core.BackendVoter, 0, len(res.Voters))
	for _, voter := range res.Voters {
		voters = append(voters, core.BackendVoter{ID: string(voter.ID), Email: voter.Email})
	}

	return voters, nil
}

func (c *Client) UpdateVoter(ctx context.Context, voterID, email, electionName, electionDescription string) error {
	_, err := send[any](ctx, c, http.MethodPut, "/voter/"+url.PathEscape(voterID), url.Values{
		"email":                {email},
		"election_name":        {electionName},
		"election_description": {electionDescription},
	})

	return err
}

func (c *Client) DeleteVoter(ctx context.Context, voterID string) error {
	_, err := send[any](ctx, c, http.MethodDelete, "/voter/"+url.PathEscape(voterID), nil)

	return err
}

func (c *Client) Authenticate(ctx context.Context, email, password string) (core.Identity, error) {
	res, err := send[session](ctx, c, http.MethodPost, "/voter/authenticate", url.Values{
		"email":    {email},
		"password": {password},
	})
	if err != nil {
		if errors.Is(err, errRejected) || errors.Is(err, core.ErrVoterNotFound) {
			return core.Identity{}, fmt.Errorf("%w: %w", core.ErrAuthFailed, err)
		}

		return core.Identity{}, err
	}

	return core.Identity{
		ID:              string(res.VoterID),
		Email:           email,
		ElectionAddress: res.ElectionAddress,
	}, nil
}

func (c *Client) RegisterCandidate(ctx context.Context, email, electionName string) error {
	_, err := send[any](ctx, c, http.MethodPost, "/candidate/registerCandidate", url.Values{
		"email":         {email},
		"election_name": {electionName},
	})

	return err
}

func (c *Client) HealthCheck() error {
	return nil
}

func (c *Client) Shutdown() error {
	c.http.CloseIdleConnections()

	return nil
}

// errRejected marks a well-formed response whose status is not success.
var errRejected = errors.New("rejected by backend")

func send[T any](ctx context.Context, c *Client, method, path string, form url.Values) (T, error) {
	var empty T

	endpoint := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return empty, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	logger := c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		return empty, fmt.Errorf("%w: %s %s: %w", core.ErrCollaboratorFailed, method, path, err)
	}
	defer resp.Body.Close()

	body, err := json.Decode[envelope[T]](io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		logger.WithError(err).WithField("status", resp.StatusCode).Warn("Malformed backend response")

		return empty, fmt.Errorf("%w: %s %s returned %d", core.ErrMalformedResponse, method, path, resp.StatusCode)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices && body.Status == statusSuccess {
		logger.Debug("Backend request succeeded")

		return body.Data, nil
	}

	logger.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"message": body.Message,
	}).Info("Backend rejected request")

	switch resp.StatusCode {
	case http.StatusConflict:
		return empty, fmt.Errorf("%w: %s", core.ErrDuplicateVoter, body.Message)
	case http.StatusNotFound:
		return empty, fmt.Errorf("%w: %s", core.ErrVoterNotFound, body.Message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return empty, fmt.Errorf("%w: %s", core.ErrAuthFailed, body.Message)
	}

	if resp.StatusCode < http.StatusMultipleChoices {
		return empty, fmt.Errorf("%w: %w: %s", core.ErrCollaboratorFailed, errRejected, body.Message)
	}

	return empty, fmt.Errorf("%w: %s %s returned %d", core.ErrCollaboratorFailed, method, path, resp.StatusCode)
}
