package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"reconciler/internal/logging"
	"reconciler/internal/services"
)

// Session is one long-lived interactive connection the reconciler drives.
type Session interface {
	Name() string
	Focus(ctx context.Context) error
	Close() error
}

// Role identifies which of the two held sessions is being driven.
type Role string

const (
	RoleSource   Role = "source"
	RoleRegistry Role = "registry"
)

// Multiplexer holds the source and registry sessions open together and tracks
// which one is active. Only the active session is ever driven.
type Multiplexer struct {
	mu       sync.Mutex
	sessions map[Role]Session
	active   Role
	switches int
	logger   *slog.Logger
}

// NewMultiplexer wires the two sessions. The source session starts active.
func NewMultiplexer(source, registry Session, logger *slog.Logger) (*Multiplexer, error) {
	if source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "source session required", nil)
	}
	if registry == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "registry session required", nil)
	}
	return &Multiplexer{
		sessions: map[Role]Session{RoleSource: source, RoleRegistry: registry},
		active:   RoleSource,
		logger:   logging.NewComponentLogger(logger, "session"),
	}, nil
}

// Active returns the role currently being driven.
func (m *Multiplexer) Active() Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Switches reports how many focus changes have happened.
func (m *Multiplexer) Switches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switches
}

// Activate focuses the session for role. Activating the active role is a no-op.
func (m *Multiplexer) Activate(ctx context.Context, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == role {
		return nil
	}
	sess, ok := m.sessions[role]
	if !ok {
		return services.Wrap(services.ErrValidation, "session", "activate", fmt.Sprintf("unknown role %q", role), nil)
	}
	if err := sess.Focus(ctx); err != nil {
		marker := services.ErrTransient
		if role == RoleRegistry {
			marker = services.ErrLookupUnavailable
		}
		return services.Wrap(marker, "session", "focus", sess.Name(), err)
	}
	m.logger.Debug("session focused",
		logging.String("from", string(m.active)),
		logging.String("to", string(role)),
		logging.String(logging.FieldEventType, "session_switch"),
	)
	m.active = role
	m.switches++
	return nil
}

// WithRegistry makes the registry session active for the duration of fn and
// hands focus back to the source session afterwards, even when fn fails.
func (m *Multiplexer) WithRegistry(ctx context.Context, fn func(context.Context) error) error {
	if err := m.Activate(ctx, RoleRegistry); err != nil {
		return err
	}
	fnErr := fn(ctx)
	// Focus is restored on a fresh context so a cancelled run still leaves the
	// source session active.
	backErr := m.Activate(context.WithoutCancel(ctx), RoleSource)
	if fnErr != nil {
		return fnErr
	}
	return backErr
}

// Close closes both sessions.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, role := range []Role{RoleRegistry, RoleSource} {
		if err := m.sessions[role].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s session: %w", role, err))
		}
	}
	return errors.Join(errs...)
}
