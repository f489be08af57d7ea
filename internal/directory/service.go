package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// authState tracks the lazy authentication lifecycle of a Service.
// Failed is terminal: once login has been rejected, every subsequent call
// on the instance surfaces the stored authentication fault without
// re-attempting login.
type authState int

const (
	stateUnauthenticated authState = iota
	stateAuthenticating
	stateReady
	stateFailed
)

const maxAttempts = 3

// RetryRecorder is an optional callback invoked once per retry of an
// upstream operation.
type RetryRecorder func(op string)

// Service wraps the upstream directory client with lazy authentication,
// bounded retry of transient network faults, and reclassification of the
// upstream's unstructured errors into the APIError taxonomy.
//
// A Service is built fresh per inbound request and is not safe for
// concurrent use.
type Service struct {
	token string
	api   RegistryAPI

	state   authState
	authErr *APIError

	sleep   func(ctx context.Context, d time.Duration) error
	onRetry RetryRecorder
	logger  *zap.Logger
}

// NewService creates a Service over api with an optional bearer token.
// An empty token skips upstream login entirely.
func NewService(api RegistryAPI, token string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		token:  token,
		api:    api,
		sleep:  sleepCtx,
		logger: logger,
	}
}

// SetRetryRecorder configures the retry metrics callback.
func (s *Service) SetRetryRecorder(fn RetryRecorder) {
	s.onRetry = fn
}

// ensureAuthenticated performs upstream login on first use of the handle
// with a non-empty token. A login failure is definitive: it is always an
// AuthenticationError, never reclassified as a network fault, and never
// retried.
func (s *Service) ensureAuthenticated(ctx context.Context) error {
	switch s.state {
	case stateReady:
		return nil
	case stateFailed:
		return s.authErr
	}

	s.state = stateAuthenticating
	if s.token != "" {
		if err := s.api.Login(ctx, s.token); err != nil {
			s.logger.Error("authentication failed", zap.Error(err))
			s.state = stateFailed
			s.authErr = NewAuthenticationError("failed to authenticate with the directory service", err.Error())
			return s.authErr
		}
		s.logger.Info("authenticated with the directory service")
	}
	s.state = stateReady
	return nil
}

// ListServers lists MCP servers with optional filtering and search.
// q.Count must already be validated to [1,100].
func (s *Service) ListServers(ctx context.Context, q ListQuery) (*ServerList, error) {
	s.logger.Info("listing mcp servers",
		zap.Int("count", q.Count),
		zap.String("search", q.Search),
		zap.Any("filter", q.Filter),
	)

	var result *ServerList
	err := s.withRetry(ctx, "list_servers", func() error {
		if err := s.ensureAuthenticated(ctx); err != nil {
			return err
		}
		r, err := s.api.ListServers(ctx, q)
		if err != nil {
			s.logger.Error("failed to list mcp servers", zap.Error(err))
			if isNetworkText(strings.ToLower(err.Error())) {
				return NewNetworkError("network error while listing servers", err.Error())
			}
			return NewGenericAPIError("failed to list MCP servers", err.Error())
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listed mcp servers", zap.Int("total_count", result.TotalCount))
	return result, nil
}

// ListOperationalServers lists the caller's activated servers. Requires a
// non-empty token; absence fails immediately without touching the upstream.
func (s *Service) ListOperationalServers(ctx context.Context) (*OperationalList, error) {
	if s.token == "" {
		return nil, NewAuthenticationError("authentication required",
			"a token must be provided to list operational servers")
	}

	s.logger.Info("listing operational mcp servers")

	var result *OperationalList
	err := s.withRetry(ctx, "list_operational_servers", func() error {
		if err := s.ensureAuthenticated(ctx); err != nil {
			return err
		}
		r, err := s.api.ListOperationalServers(ctx)
		if err != nil {
			s.logger.Error("failed to list operational servers", zap.Error(err))
			msg := strings.ToLower(err.Error())
			if isAuthText(msg) {
				return NewAuthenticationError("authentication failed", err.Error())
			}
			if isNetworkText(msg) {
				return NewNetworkError("network error while listing operational servers", err.Error())
			}
			return NewGenericAPIError("failed to list operational servers", err.Error())
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listed operational servers", zap.Int("total_count", result.TotalCount))
	return result, nil
}

// GetServer fetches detail for a single server id in @group/name format.
func (s *Service) GetServer(ctx context.Context, serverID string) (*ServerDetail, error) {
	s.logger.Info("getting mcp server", zap.String("server_id", serverID))

	var result *ServerDetail
	err := s.withRetry(ctx, "get_server", func() error {
		if err := s.ensureAuthenticated(ctx); err != nil {
			return err
		}
		r, err := s.api.GetServer(ctx, serverID)
		if err != nil {
			s.logger.Error("failed to get mcp server",
				zap.String("server_id", serverID), zap.Error(err))
			msg := strings.ToLower(err.Error())
			if isNotFoundText(msg) {
				return NewServerNotFoundError(
					fmt.Sprintf("MCP server %q not found", serverID), err.Error())
			}
			if isNetworkText(msg) {
				return NewNetworkError(
					fmt.Sprintf("network error while getting server %s", serverID), err.Error())
			}
			return NewGenericAPIError(
				fmt.Sprintf("failed to get MCP server %q", serverID), err.Error())
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("retrieved mcp server", zap.String("server_id", serverID))
	return result, nil
}

// withRetry runs fn up to maxAttempts times. Only network faults are
// retried; anything else propagates on first occurrence, and the last
// fault is returned unchanged once attempts are exhausted.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsKind(err, KindNetwork) || attempt == maxAttempts {
			return err
		}

		wait := backoffDelay(attempt)
		s.logger.Warn("retrying after network fault",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if s.onRetry != nil {
			s.onRetry(op)
		}
		if sleepErr := s.sleep(ctx, wait); sleepErr != nil {
			return err
		}
	}
	return err
}

// backoffDelay is min(10s, max(2s, 2^attempt seconds)): 2s after the first
// attempt, 4s after the second, capped at 10s.
func backoffDelay(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d < 2*time.Second {
		d = 2 * time.Second
	}
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

// sleepCtx waits for d, aborting early if the request context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
