// Package service contains the business logic sitting between the HTTP
// handlers and the resolver, cache store and metadata repositories.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"otaflow/internal/cache"
	"otaflow/internal/logging"
	"otaflow/internal/resolver"
	"otaflow/internal/semver"
)

// Pre-rendered bodies for cache-served outcomes. They must match what the
// resolver would produce so a cached reply is indistinguishable from a
// computed one.
var (
	appNotFoundBody = []byte(`{"message":"App not found","error":"app_not_found"}`)
	noNewBody       = []byte(`{"message":"No new version available"}`)
)

// UpdateResolver computes a decision for one check-in
type UpdateResolver interface {
	Resolve(ctx context.Context, req *resolver.UpdateRequest) (*resolver.Decision, error)
}

// Result is a finished update reply: the exact body to send plus the header
// metadata the transport layer needs.
type Result struct {
	Body        []byte
	Status      string // X-Update-Status class
	Overwritten bool
	FromCache   bool
	HTTPStatus  int
}

// UpdateService serves update check-ins through a read-through response
// cache. Reads cost one batched hash fetch; misses fall through to the
// resolver under a deadline and write back through one pipelined mutation.
type UpdateService struct {
	store    cache.Store
	resolver UpdateResolver
	timeout  time.Duration
	logger   *logging.Logger
}

// NewUpdateService creates a new update service
func NewUpdateService(store cache.Store, res UpdateResolver, timeout time.Duration) *UpdateService {
	return &UpdateService{
		store:    store,
		resolver: res,
		timeout:  timeout,
		logger:   logging.GetGlobalLogger(),
	}
}

// LookupOrResolve answers one check-in from the cache when it can, resolving
// and writing back otherwise. A cache store outage degrades to uncached
// resolution rather than failing the request.
func (s *UpdateService) LookupOrResolve(ctx context.Context, req *resolver.UpdateRequest) (*Result, error) {
	versionName, cacheable := s.cacheVersionName(req)
	if !cacheable {
		// The resolver will reject these; nothing to look up or store
		return s.resolveUncached(ctx, req)
	}

	key := cache.AppKey(req.AppID)
	deviceField := cache.DeviceField(req.DeviceID)
	versionField := cache.VersionField(versionName)

	values, err := s.store.HMGet(ctx, key, cache.FieldExist, deviceField, versionField)
	if err != nil {
		s.logger.Warn("Cache read failed for %s, resolving directly: %v", req.AppID, err)
		return s.resolveUncached(ctx, req)
	}
	exist, device, version := values[0], values[1], values[2]

	if exist != nil && *exist == "false" {
		return &Result{
			Body:       appNotFoundBody,
			Status:     resolver.StatusAppNotFound,
			FromCache:  true,
			HTTPStatus: resolver.OutcomeAppNotFound.HTTPStatus(),
		}, nil
	}

	// A hit needs all three fields in agreement: the app is known, the
	// device has no override and the declared version has a shared entry.
	if exist != nil && device != nil && *device == cache.DeviceStandard && version != nil {
		if *version == cache.NoNewSentinel {
			return &Result{
				Body:       noNewBody,
				Status:     resolver.StatusNoNew,
				FromCache:  true,
				HTTPStatus: resolver.OutcomeNoNew.HTTPStatus(),
			}, nil
		}
		return &Result{
			Body:       []byte(*version),
			Status:     resolver.StatusNewVersion,
			FromCache:  true,
			HTTPStatus: resolver.OutcomeNewVersion.HTTPStatus(),
		}, nil
	}

	decision, err := s.resolveWithTimeout(ctx, req)
	if err != nil {
		return nil, err
	}
	result, err := s.renderResult(decision)
	if err != nil {
		return nil, err
	}

	s.writeBack(ctx, key, deviceField, versionField, device, exist, version, decision, result)
	return result, nil
}

// cacheVersionName computes the declared-version cache field, applying the
// same defaulting the resolver does. Requests the resolver would reject for
// missing or malformed identity are not cacheable.
func (s *UpdateService) cacheVersionName(req *resolver.UpdateRequest) (string, bool) {
	if req.AppID == "" || req.DeviceID == "" {
		return "", false
	}
	name := req.VersionName
	if name == "" || name == "builtin" {
		coerced, err := semver.Coerce(req.VersionBuild)
		if err != nil {
			return "", false
		}
		name = coerced.String()
	}
	return name, true
}

func (s *UpdateService) resolveUncached(ctx context.Context, req *resolver.UpdateRequest) (*Result, error) {
	decision, err := s.resolveWithTimeout(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.renderResult(decision)
}

// resolveWithTimeout races the resolver against the configured deadline. The
// resolver keeps running on a detached context after a timeout so its device
// upsert and stats write still land; only the reply is abandoned.
func (s *UpdateService) resolveWithTimeout(ctx context.Context, req *resolver.UpdateRequest) (*resolver.Decision, error) {
	type outcome struct {
		decision *resolver.Decision
		err      error
	}
	done := make(chan outcome, 1)

	detached := context.WithoutCancel(ctx)
	go func() {
		decision, err := s.resolver.Resolve(detached, req)
		done <- outcome{decision, err}
	}()

	select {
	case out := <-done:
		return out.decision, out.err
	case <-time.After(s.timeout):
		return nil, fmt.Errorf("update resolution for %s/%s timed out after %s", req.AppID, req.DeviceID, s.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *UpdateService) renderResult(decision *resolver.Decision) (*Result, error) {
	body, err := json.Marshal(decision.Response())
	if err != nil {
		return nil, fmt.Errorf("cannot serialize update response: %w", err)
	}
	return &Result{
		Body:        body,
		Status:      decision.Outcome.Status(),
		Overwritten: decision.Overwritten,
		HTTPStatus:  decision.Outcome.HTTPStatus(),
	}, nil
}

// writeBack populates the cache after a miss in one pipelined mutation.
// Fields are only set when the read found them absent, so concurrent misses
// cannot clobber each other's writes. Transient failure classes are never
// cached.
func (s *UpdateService) writeBack(ctx context.Context, key, deviceField, versionField string, device, exist, version *string, decision *resolver.Decision, result *Result) {
	if result.Status == resolver.StatusFail {
		return
	}

	pipe := s.store.Pipeline()

	if device == nil {
		marker := cache.DeviceStandard
		if decision.Overwritten {
			marker = cache.DeviceOverwritten
		}
		pipe.HSet(key, deviceField, marker)
	}

	if exist == nil {
		known := "true"
		if result.Status == resolver.StatusAppNotFound {
			known = "false"
		}
		pipe.HSet(key, cache.FieldExist, known)
	}

	// The per-version entry is shared across devices, so an overridden
	// resolution must never populate it.
	if version == nil && !decision.Overwritten && result.Status != resolver.StatusAppNotFound {
		value := string(result.Body)
		if result.Status == resolver.StatusNoNew {
			value = cache.NoNewSentinel
		}
		pipe.HSet(key, versionField, value)
	}

	if err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("Cache write-back failed for %s: %v", key, err)
	}
}
