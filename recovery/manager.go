package recovery

import (
	"context"
	"sync"

	"github.com/kbukum/relaykit/errors"
	"github.com/kbukum/relaykit/logger"
)

// Result is the outcome of a recovery attempt. When Recovered is true the
// orchestrator replays the original request exactly once.
type Result struct {
	Recovered  bool
	Suggestion string
}

// Strategy is a remediation routine for a class of errors.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// Recover attempts remediation for the given error.
	Recover(ctx context.Context, appErr *errors.AppError) Result
}

// TokenRefresher refreshes the bearer credential. An empty token with a
// nil error means the refresh produced no usable credential.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) (string, error)
}

// Manager maps error codes to recovery strategies. Lookup order: exact
// error code, then error category, then the default strategy.
type Manager struct {
	mu         sync.RWMutex
	byCode     map[errors.ErrorCode]Strategy
	byCategory map[errors.Category]Strategy
	fallback   Strategy
	log        *logger.Logger
}

// NewManager creates a manager with the built-in strategies registered.
// refresher may be nil, in which case credential errors are not recoverable.
func NewManager(refresher TokenRefresher) *Manager {
	m := &Manager{
		byCode:     make(map[errors.ErrorCode]Strategy),
		byCategory: make(map[errors.Category]Strategy),
		fallback:   defaultStrategy{},
		log:        logger.WithComponent("recovery"),
	}

	cred := credentialStrategy{refresher: refresher}
	m.byCode[errors.ErrCodeTokenExpired] = cred
	m.byCode[errors.ErrCodeUnauthorized] = cred
	m.byCode[errors.ErrCodeRateLimitExceeded] = rateLimitStrategy{}
	m.byCategory[errors.CategoryTransport] = networkStrategy{}

	return m
}

// Register installs or replaces the strategy for an error code.
func (m *Manager) Register(code errors.ErrorCode, s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCode[code] = s
}

// RegisterCategory installs or replaces the fallback strategy for a category.
func (m *Manager) RegisterCategory(cat errors.Category, s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCategory[cat] = s
}

// SetDefault replaces the final-fallback strategy.
func (m *Manager) SetDefault(s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = s
}

// AttemptRecovery runs the strategy registered for the error and reports
// whether the original request may be replayed.
func (m *Manager) AttemptRecovery(ctx context.Context, err error) Result {
	appErr := errors.AsAppError(err)
	if appErr == nil {
		appErr = errors.New(errors.ErrCodeUnknown, err.Error())
	}

	s := m.lookup(appErr)
	result := s.Recover(ctx, appErr)

	m.log.Debug("recovery attempted", logger.Fields(
		"strategy", s.Name(),
		"code", string(appErr.Code),
		"recovered", result.Recovered,
	))
	return result
}

func (m *Manager) lookup(appErr *errors.AppError) Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.byCode[appErr.Code]; ok {
		return s
	}
	if s, ok := m.byCategory[appErr.Category()]; ok {
		return s
	}
	return m.fallback
}
