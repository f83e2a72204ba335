package telegram

import (
	"context"

	"github.com/danhigham/tgsend/internal/domain"
)

// SignInResult is the outcome of a code submission. PasswordRequired set
// means the account has 2FA enabled and the login is parked until the
// password is submitted.
type SignInResult struct {
	User             domain.UserInfo
	PasswordRequired bool
}

// Transport is the provider client the core depends on. Each method is one
// blocking external call; outcomes are relayed verbatim as kind-tagged
// errors and never retried internally.
type Transport interface {
	// Run connects to the provider and invokes fn while the connection is
	// alive. All other methods are only valid inside fn.
	Run(ctx context.Context, fn func(ctx context.Context) error) error

	// SendCode asks the provider to deliver a login code to phone and
	// returns the phone_code_hash needed to redeem it.
	SendCode(ctx context.Context, phone string) (string, error)

	// SignIn redeems a login code.
	SignIn(ctx context.Context, phone, code, codeHash string) (SignInResult, error)

	// SignInPassword completes a login parked on 2FA.
	SignInPassword(ctx context.Context, password string) (domain.UserInfo, error)

	// Self returns the logged-in account, or a NotAuthenticated error when
	// the persisted session token is absent or revoked.
	Self(ctx context.Context) (domain.UserInfo, error)

	// Contacts returns the reachable peers, most recent dialog first.
	Contacts(ctx context.Context, limit int) ([]domain.Contact, error)

	// SendFile uploads the file at path to the contact with the given id
	// and returns the resulting message id when the provider reports one.
	SendFile(ctx context.Context, recipient int64, path string) (int, error)
}
