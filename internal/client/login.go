package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

// LoginResult describes how a login ended. Offline is set when the server
// could not confirm the login and the user continues locally.
type LoginResult struct {
	User    domain.Participant
	Created bool
	Offline bool
}

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginResponse struct {
	Message string             `json:"message"`
	User    domain.Participant `json:"user"`
}

// Login registers or signs in a user. Each try is bounded by the login timeout
// and timed-out tries are repeated up to the retry limit. When every try times
// out, the server is unreachable or it reports 500/503, the user continues offline. Validation
// errors and an existing session are returned as errors.
func (c *Client) Login(ctx context.Context, name, email string) (LoginResult, error) {
	participant := domain.Participant{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	req := loginRequest{Name: participant.Name, Email: participant.Email}

	var (
		payload loginResponse
		status  int
		try     int
	)
	operation := func() error {
		try++
		reqCtx, cancel := context.WithTimeout(ctx, c.loginTimeout)
		defer cancel()

		code, err := c.do(reqCtx, http.MethodPost, "/user/login", req, &payload)
		if err == nil {
			status = code
			return nil
		}
		if isTimeout(err) && ctx.Err() == nil {
			c.logger.Warn("login timed out, retrying", zap.Int("try", try), zap.String("email", participant.Email))
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), c.loginRetries), ctx)
	err := backoff.Retry(operation, policy)
	switch {
	case err == nil:
		user := payload.User
		if user.Email == "" {
			user = participant
		}
		return LoginResult{User: user, Created: status == http.StatusCreated}, nil
	case isTimeout(err), isServerFailure(err):
		c.logger.Warn("login unavailable, continuing offline", zap.String("email", participant.Email), zap.Error(err))
		return LoginResult{User: participant, Offline: true}, nil
	default:
		return LoginResult{}, err
	}
}

// Logout releases the session server-side.
func (c *Client) Logout(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/user/logout", map[string]string{"email": strings.TrimSpace(email)}, nil)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isServerFailure covers unreachable servers, 503 and 500.
func isServerFailure(err error) bool {
	if errors.Is(err, domain.ErrServiceUnavailable) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusInternalServerError
}
