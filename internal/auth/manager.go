// Package auth drives the login state machine and owns the persisted
// session record.
package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/danhigham/tgsend/internal/domain"
	"github.com/danhigham/tgsend/internal/state"
	"github.com/danhigham/tgsend/internal/telegram"
)

const recordName = "auth.json"

// Transport is the subset of the provider client the manager needs.
type Transport interface {
	SendCode(ctx context.Context, phone string) (string, error)
	SignIn(ctx context.Context, phone, code, codeHash string) (telegram.SignInResult, error)
	SignInPassword(ctx context.Context, password string) (domain.UserInfo, error)
	Self(ctx context.Context) (domain.UserInfo, error)
}

// sessionRecord is the durable login state. The provider's opaque session
// token lives in gotd's own session file; this record tracks where the
// login flow stands across process invocations.
type sessionRecord struct {
	Phone            string `json:"phone,omitempty"`
	Authorized       bool   `json:"authorized"`
	TwoFactorPending bool   `json:"two_factor_pending"`
	PhoneCodeHash    string `json:"phone_code_hash,omitempty"`
}

// SubmitStatus is the outcome of a code submission.
type SubmitStatus string

const (
	StatusAuthorized       SubmitStatus = "authorized"
	StatusPasswordRequired SubmitStatus = "password_required"
)

// Status is the answer to a status query.
type Status struct {
	Authenticated bool
	User          *domain.UserInfo
}

// Manager is the login state machine. The session record is loaded once at
// construction and every successful transition is persisted before the call
// returns, so a crash after a consumed login code never reverts the login.
type Manager struct {
	store     *state.Store
	transport Transport
	logger    *zap.Logger
	rec       sessionRecord
}

func NewManager(st *state.Store, transport Transport, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{store: st, transport: transport, logger: logger}
	if err := st.Load(recordName, &m.rec); err != nil && !errors.Is(err, state.ErrNotExist) {
		return nil, err
	}
	return m, nil
}

// Phase reports the current state machine position.
func (m *Manager) Phase() domain.AuthPhase {
	switch {
	case m.rec.Authorized:
		return domain.PhaseAuthorized
	case m.rec.TwoFactorPending:
		return domain.PhasePasswordRequired
	case m.rec.PhoneCodeHash != "":
		return domain.PhaseCodeRequested
	default:
		return domain.PhaseUnauthenticated
	}
}

// Authorized reports whether the persisted record claims a completed login.
// Use Status for a live check against the provider.
func (m *Manager) Authorized() bool {
	return m.rec.Authorized
}

// RequestCode asks the provider to send a login code and parks the flow at
// code_requested. Phone syntax beyond non-emptiness is the provider's call;
// its rejection surfaces as InvalidPhone.
func (m *Manager) RequestCode(ctx context.Context, phone string) (string, error) {
	if phone == "" {
		return "", domain.NewError(domain.ErrInvalidPhone, "phone number must not be empty")
	}

	hash, err := m.transport.SendCode(ctx, phone)
	if err != nil {
		return "", err
	}

	err = m.persist(func(r *sessionRecord) {
		r.Phone = phone
		r.PhoneCodeHash = hash
		r.Authorized = false
		r.TwoFactorPending = false
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("login code requested", zap.String("phone", phone))
	return hash, nil
}

// SubmitCode redeems a login code. An empty phone or codeHash falls back to
// the values persisted by RequestCode. Invalid or expired codes leave the
// machine at code_requested so the caller may retry without a new code.
func (m *Manager) SubmitCode(ctx context.Context, phone, code, codeHash string) (SubmitStatus, *domain.UserInfo, error) {
	if phone == "" {
		phone = m.rec.Phone
	}
	if codeHash == "" {
		codeHash = m.rec.PhoneCodeHash
	}
	if m.Phase() != domain.PhaseCodeRequested || codeHash == "" {
		return "", nil, domain.NewError(domain.ErrNotAuthenticated,
			"no pending login code; run 'tgsend auth --phone NUMBER' first")
	}

	res, err := m.transport.SignIn(ctx, phone, code, codeHash)
	if err != nil {
		// State stays at code_requested; the provider may still accept a
		// corrected code against the same hash.
		return "", nil, err
	}

	if res.PasswordRequired {
		err = m.persist(func(r *sessionRecord) {
			r.TwoFactorPending = true
		})
		if err != nil {
			return "", nil, err
		}
		return StatusPasswordRequired, nil, nil
	}

	err = m.persist(func(r *sessionRecord) {
		r.Authorized = true
		r.TwoFactorPending = false
		r.PhoneCodeHash = ""
	})
	if err != nil {
		return "", nil, err
	}
	m.logger.Info("authorized", zap.Int64("user_id", res.User.ID))
	user := res.User
	return StatusAuthorized, &user, nil
}

// SubmitPassword completes a login parked on 2FA. Submitting outside the
// password_required state is rejected without touching the provider.
func (m *Manager) SubmitPassword(ctx context.Context, password string) (*domain.UserInfo, error) {
	if m.Phase() != domain.PhasePasswordRequired {
		return nil, domain.NewError(domain.ErrNotAuthenticated,
			"no two-factor password pending; submit a login code first")
	}

	user, err := m.transport.SignInPassword(ctx, password)
	if err != nil {
		// InvalidPassword leaves the machine at password_required.
		return nil, err
	}

	err = m.persist(func(r *sessionRecord) {
		r.Authorized = true
		r.TwoFactorPending = false
		r.PhoneCodeHash = ""
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("authorized via 2FA", zap.Int64("user_id", user.ID))
	return &user, nil
}

// Status reports whether the login is live. A record claiming authorized is
// verified against the provider; a revoked token downgrades the record
// rather than trusting the stale flag.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if !m.rec.Authorized {
		return Status{}, nil
	}

	user, err := m.transport.Self(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotAuthenticated) {
			m.logger.Warn("persisted session was revoked server-side")
			if perr := m.persist(func(r *sessionRecord) {
				r.Authorized = false
				r.TwoFactorPending = false
				r.PhoneCodeHash = ""
			}); perr != nil {
				return Status{}, perr
			}
			return Status{}, nil
		}
		return Status{}, err
	}
	return Status{Authenticated: true, User: &user}, nil
}

// persist applies fn to the session record under the record lock and
// flushes it. The in-memory record is refreshed from disk first so two
// racing invocations cannot resurrect consumed state.
func (m *Manager) persist(fn func(r *sessionRecord)) error {
	return m.store.Update(recordName, &m.rec, func() error {
		fn(&m.rec)
		return nil
	})
}
