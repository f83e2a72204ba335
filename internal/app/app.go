// Package app implements the command handlers behind the CLI. Each handler
// returns a JSON-shaped result on success and a kind-tagged error on
// failure; the dispatcher turns either into one JSON object on stdout.
package app

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/danhigham/tgsend/internal/auth"
	"github.com/danhigham/tgsend/internal/config"
	"github.com/danhigham/tgsend/internal/directory"
	"github.com/danhigham/tgsend/internal/domain"
	"github.com/danhigham/tgsend/internal/pin"
)

// FileSender is the provider primitive send needs.
type FileSender interface {
	SendFile(ctx context.Context, recipient int64, path string) (int, error)
}

// App wires the core components for one invocation.
type App struct {
	Creds     *config.CredentialStore
	Auth      *auth.Manager
	Directory *directory.Directory
	Pins      *pin.Store
	Sender    FileSender
	Logger    *zap.Logger
}

// Contact is the JSON shape of one contact row.
type Contact struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	MatchScore *int   `json:"match_score,omitempty"`
	Pinned     bool   `json:"pinned,omitempty"`
}

type ConfigResult struct {
	Success    bool   `json:"success"`
	Configured bool   `json:"configured"`
	APIID      int    `json:"api_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

type StatusResult struct {
	Success       bool             `json:"success"`
	Configured    bool             `json:"configured"`
	Authenticated bool             `json:"authenticated"`
	User          *domain.UserInfo `json:"user,omitempty"`
}

type AuthResult struct {
	Success       bool             `json:"success"`
	Status        string           `json:"status"`
	PhoneCodeHash string           `json:"phone_code_hash,omitempty"`
	User          *domain.UserInfo `json:"user,omitempty"`
	Message       string           `json:"message,omitempty"`
}

type ContactsResult struct {
	Success  bool      `json:"success"`
	Count    int       `json:"count"`
	Contacts []Contact `json:"contacts"`
}

type SendResult struct {
	Success   bool     `json:"success"`
	Recipient Contact  `json:"recipient"`
	File      FileInfo `json:"file"`
	MessageID int      `json:"message_id,omitempty"`
}

type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type PinResult struct {
	Success bool    `json:"success"`
	Pinned  bool    `json:"pinned"`
	Contact Contact `json:"contact"`
}

// Configure saves a new credential pair, replacing any existing one.
func (a *App) Configure(apiID int, apiHash string) (ConfigResult, error) {
	creds := config.Credentials{APIID: apiID, APIHash: apiHash}
	if err := a.Creds.Save(creds); err != nil {
		return ConfigResult{}, err
	}
	a.Logger.Info("credentials saved", zap.Int("api_id", apiID))
	return ConfigResult{Success: true, Configured: true}, nil
}

// ConfigStatus reports whether credentials are configured, without
// requiring them to be.
func (a *App) ConfigStatus() (ConfigResult, error) {
	creds, err := a.Creds.Load()
	if err != nil {
		if domain.IsKind(err, domain.ErrNotConfigured) {
			return ConfigResult{
				Success: true,
				Message: "no credentials configured; use --api-id and --api-hash",
			}, nil
		}
		return ConfigResult{}, err
	}
	return ConfigResult{Success: true, Configured: true, APIID: creds.APIID}, nil
}

// Status reports the persisted auth state verified against the provider.
func (a *App) Status(ctx context.Context) (StatusResult, error) {
	st, err := a.Auth.Status(ctx)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{
		Success:       true,
		Configured:    true,
		Authenticated: st.Authenticated,
		User:          st.User,
	}, nil
}

// Authenticate advances the login flow one step, picking the step from
// which inputs were supplied.
func (a *App) Authenticate(ctx context.Context, phone, code, password, codeHash string) (AuthResult, error) {
	switch {
	case password != "":
		user, err := a.Auth.SubmitPassword(ctx, password)
		if err != nil {
			return AuthResult{}, err
		}
		return AuthResult{Success: true, Status: "authorized", User: user}, nil

	case code != "":
		status, user, err := a.Auth.SubmitCode(ctx, phone, code, codeHash)
		if err != nil {
			return AuthResult{}, err
		}
		if status == auth.StatusPasswordRequired {
			return AuthResult{
				Success: true,
				Status:  string(status),
				Message: "2FA is enabled; provide the password with --password",
			}, nil
		}
		return AuthResult{Success: true, Status: string(status), User: user}, nil

	default:
		// Already logged in and no new step requested: report that instead
		// of consuming another code.
		if a.Auth.Authorized() {
			st, err := a.Auth.Status(ctx)
			if err != nil {
				return AuthResult{}, err
			}
			if st.Authenticated {
				return AuthResult{Success: true, Status: "authorized", User: st.User}, nil
			}
		}
		hash, err := a.Auth.RequestCode(ctx, phone)
		if err != nil {
			return AuthResult{}, err
		}
		return AuthResult{
			Success:       true,
			Status:        "code_sent",
			PhoneCodeHash: hash,
			Message:       "code sent to your Telegram app; provide it with --code",
		}, nil
	}
}

// Contacts lists or searches the directory, pinned entries first.
func (a *App) Contacts(ctx context.Context, search string, pinnedOnly, forceRefresh bool) (ContactsResult, error) {
	if forceRefresh {
		if _, err := a.Directory.Fetch(ctx, true); err != nil {
			return ContactsResult{}, err
		}
	}
	entries, err := a.Directory.Listing(ctx, search, pinnedOnly)
	if err != nil {
		return ContactsResult{}, err
	}

	contacts := make([]Contact, 0, len(entries))
	for _, e := range entries {
		c := Contact{
			ID:     e.Contact.ID,
			Name:   e.Contact.Name,
			Type:   string(e.Contact.Kind),
			Pinned: e.Pinned,
		}
		if search != "" {
			score := e.Score
			c.MatchScore = &score
		}
		contacts = append(contacts, c)
	}
	return ContactsResult{Success: true, Count: len(contacts), Contacts: contacts}, nil
}

// Send resolves the recipient and sends the file at path to them.
func (a *App) Send(ctx context.Context, path, to string, toID int64) (SendResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SendResult{}, domain.NewError(domain.ErrNotFound, "file not found: "+path)
		}
		return SendResult{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return SendResult{}, domain.NewError(domain.ErrNotFound, "not a file: "+path)
	}

	var target domain.Contact
	switch {
	case toID != 0:
		target, err = a.Directory.ResolveByID(ctx, toID)
	case to != "":
		target, err = a.Directory.ResolveByName(ctx, to)
	default:
		err = domain.NewError(domain.ErrNotFound,
			"specify a recipient with --to NAME or --to-id ID")
	}
	if err != nil {
		return SendResult{}, err
	}

	msgID, err := a.Sender.SendFile(ctx, target.ID, path)
	if err != nil {
		return SendResult{}, err
	}
	a.Logger.Info("file sent",
		zap.String("file", path),
		zap.Int64("recipient", target.ID),
		zap.Int("message_id", msgID))

	return SendResult{
		Success:   true,
		Recipient: Contact{ID: target.ID, Name: target.Name, Type: string(target.Kind)},
		File:      FileInfo{Name: info.Name(), Size: info.Size()},
		MessageID: msgID,
	}, nil
}

// PinContact pins the contact named by ref (a name or a numeric id).
func (a *App) PinContact(ctx context.Context, ref string) (PinResult, error) {
	target, err := a.resolveRef(ctx, ref)
	if err != nil {
		return PinResult{}, err
	}
	if err := a.Pins.Pin(target.ID); err != nil {
		return PinResult{}, err
	}
	return PinResult{
		Success: true,
		Pinned:  true,
		Contact: Contact{ID: target.ID, Name: target.Name, Type: string(target.Kind)},
	}, nil
}

// UnpinContact unpins the contact named by ref. A numeric ref is accepted
// even when the contact no longer exists, so stale pins can be removed.
func (a *App) UnpinContact(ctx context.Context, ref string) (PinResult, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if err := a.Pins.Unpin(id); err != nil {
			return PinResult{}, err
		}
		return PinResult{Success: true, Pinned: false, Contact: Contact{ID: id}}, nil
	}

	target, err := a.resolveRef(ctx, ref)
	if err != nil {
		return PinResult{}, err
	}
	if err := a.Pins.Unpin(target.ID); err != nil {
		return PinResult{}, err
	}
	return PinResult{
		Success: true,
		Pinned:  false,
		Contact: Contact{ID: target.ID, Name: target.Name, Type: string(target.Kind)},
	}, nil
}

// Pinned lists the pinned contacts in pin insertion order.
func (a *App) Pinned(ctx context.Context) (ContactsResult, error) {
	return a.Contacts(ctx, "", true, false)
}

func (a *App) resolveRef(ctx context.Context, ref string) (domain.Contact, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return a.Directory.ResolveByID(ctx, id)
	}
	return a.Directory.ResolveByName(ctx, ref)
}
