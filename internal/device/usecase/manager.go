package usecase

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"aura-backend/internal/device/domain"
	"aura-backend/internal/device/repository"
	"aura-backend/pkg/logger"
	"aura-backend/pkg/worker"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Submitter queues background work without blocking.
type Submitter interface {
	Submit(job worker.Job) bool
}

// RetryPolicy bounds how long a forward keeps retrying.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxElapsed:      2 * time.Minute,
	}
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsed
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Manager tracks the current push token per user and forwards every issue or
// rotation to the registry in the background. Registry writes for one owner
// are serialized and always converge on the owner's current token, whatever
// order the pool runs the jobs in.
type Manager struct {
	registry repository.Registry
	jobs     Submitter
	policy   RetryPolicy
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	current map[string]domain.DeviceToken
	owners  map[string]*sync.Mutex
}

func NewManager(registry repository.Registry, jobs Submitter, policy RetryPolicy, log *zap.Logger) *Manager {
	return &Manager{
		registry: registry,
		jobs:     jobs,
		policy:   policy,
		log:      log,
		now:      time.Now,
		current:  make(map[string]domain.DeviceToken),
		owners:   make(map[string]*sync.Mutex),
	}
}

// OnTokenIssuedOrRotated records token as its owner's current token and
// queues a sync of the owner's registry entries. It never blocks on the
// registry. IssuedAt is clamped to the server clock so a device with a fast
// clock cannot pin its token.
func (m *Manager) OnTokenIssuedOrRotated(token domain.DeviceToken) error {
	if err := token.Validate(); err != nil {
		m.log.Warn("Ignoring device token", zap.Error(err))
		return err
	}
	if now := m.now(); token.IssuedAt.IsZero() || token.IssuedAt.After(now) {
		token.IssuedAt = now
	}

	m.mu.Lock()
	prev, had := m.current[token.OwnerUserID]
	if had && token.IssuedAt.Before(prev.IssuedAt) {
		m.mu.Unlock()
		m.log.Info("Ignoring stale device token",
			zap.String("userID", token.OwnerUserID),
			zap.String("token", logger.MaskToken(token.Value)))
		return domain.ErrStaleToken
	}
	m.current[token.OwnerUserID] = token
	m.mu.Unlock()

	owner := token.OwnerUserID
	queued := m.jobs.Submit(worker.Job{
		Name: "sync-device-token",
		Execute: func(ctx context.Context) error {
			m.sync(ctx, owner)
			return nil
		},
	})
	if !queued {
		m.log.Warn("Device token forward dropped",
			zap.String("userID", owner),
			zap.String("token", logger.MaskToken(token.Value)))
		return domain.ErrForwardQueueFull
	}
	return nil
}

// Unregister drops userID's token and revokes it in the background. Tokens
// registered to another user are left alone.
func (m *Manager) Unregister(userID, value string) bool {
	m.mu.Lock()
	if cur, ok := m.current[userID]; ok && cur.Value == value {
		delete(m.current, userID)
	}
	m.mu.Unlock()

	return m.jobs.Submit(worker.Job{
		Name: "revoke-device-token",
		Execute: func(ctx context.Context) error {
			unlock := m.lockOwner(userID)
			defer unlock()

			owned, err := m.registry.TokensForUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("tokens for %s: %w", userID, err)
			}
			if !slices.Contains(owned, value) {
				m.log.Info("Ignoring unregister of a token the user does not own",
					zap.String("userID", userID),
					zap.String("token", logger.MaskToken(value)))
				return nil
			}
			m.revoke(ctx, value)
			return nil
		},
	})
}

// Current returns userID's latest token.
func (m *Manager) Current(userID string) (domain.DeviceToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.current[userID]
	return t, ok
}

func (m *Manager) lockOwner(userID string) func() {
	m.mu.Lock()
	l, ok := m.owners[userID]
	if !ok {
		l = &sync.Mutex{}
		m.owners[userID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// sync forwards the owner's current token, read when the job runs rather than
// when it was queued, then revokes every other token the registry holds for
// the owner.
func (m *Manager) sync(ctx context.Context, owner string) {
	unlock := m.lockOwner(owner)
	defer unlock()

	token, ok := m.Current(owner)
	if !ok {
		return
	}

	err := m.retry(ctx, "forward", func() error {
		return m.registry.ForwardToken(ctx, token.Value, owner)
	})
	if err != nil {
		m.log.Warn("Device token forwarding failed after retries",
			zap.String("userID", owner),
			zap.String("token", logger.MaskToken(token.Value)),
			zap.Error(err))
		return
	}
	m.log.Debug("Device token forwarded",
		zap.String("userID", owner),
		zap.String("token", logger.MaskToken(token.Value)))

	var registered []string
	err = m.retry(ctx, "list", func() error {
		var err error
		registered, err = m.registry.TokensForUser(ctx, owner)
		return err
	})
	if err != nil {
		m.log.Warn("Listing device tokens failed after retries",
			zap.String("userID", owner),
			zap.Error(err))
		return
	}
	for _, value := range registered {
		if value != token.Value {
			m.revoke(ctx, value)
		}
	}
}

func (m *Manager) revoke(ctx context.Context, value string) {
	err := m.retry(ctx, "revoke", func() error {
		return m.registry.RevokeToken(ctx, value)
	})
	if err != nil {
		m.log.Warn("Device token revocation failed after retries",
			zap.String("token", logger.MaskToken(value)),
			zap.Error(err))
	}
}

func (m *Manager) retry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	err := backoff.RetryNotify(fn, m.policy.newBackOff(ctx), func(err error, wait time.Duration) {
		attempt++
		m.log.Debug("Registry call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("%s after %d retries: %w", op, attempt, err)
	}
	return nil
}
