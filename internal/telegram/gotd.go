package telegram

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/query/dialogs"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/danhigham/tgsend/internal/domain"
)

// GotdTransport implements Transport using gotd/td. The provider session
// blob is owned by gotd's file storage under the state directory.
type GotdTransport struct {
	apiID    int
	apiHash  string
	stateDir string
	logger   *zap.Logger

	client *telegram.Client
	api    *tg.Client

	peerCache map[int64]tg.InputPeerClass
	mu        sync.Mutex
}

func NewGotdTransport(apiID int, apiHash, stateDir string, logger *zap.Logger) *GotdTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GotdTransport{
		apiID:     apiID,
		apiHash:   apiHash,
		stateDir:  stateDir,
		logger:    logger,
		peerCache: make(map[int64]tg.InputPeerClass),
	}
}

// Run connects the client and keeps the connection alive for the duration
// of fn.
func (c *GotdTransport) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	c.client = telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		Logger:         c.logger,
		SessionStorage: &session.FileStorage{Path: filepath.Join(c.stateDir, "session.json")},
	})

	err := c.client.Run(ctx, func(ctx context.Context) error {
		c.api = c.client.API()
		return fn(ctx)
	})
	if err != nil && domain.KindOf(err) == "" {
		return domain.WrapError(domain.ErrTransport, "telegram connection", err)
	}
	return err
}

func (c *GotdTransport) SendCode(ctx context.Context, phone string) (string, error) {
	sent, err := c.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", mapProviderError("send code", err)
	}
	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", domain.NewError(domain.ErrTransport,
			fmt.Sprintf("unexpected sent code response %T", sent))
	}
	return code.PhoneCodeHash, nil
}

func (c *GotdTransport) SignIn(ctx context.Context, phone, code, codeHash string) (SignInResult, error) {
	authz, err := c.client.Auth().SignIn(ctx, phone, code, codeHash)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordAuthNeeded) {
			return SignInResult{PasswordRequired: true}, nil
		}
		return SignInResult{}, mapProviderError("sign in", err)
	}
	return SignInResult{User: userInfoFromAuthorization(authz)}, nil
}

func (c *GotdTransport) SignInPassword(ctx context.Context, password string) (domain.UserInfo, error) {
	authz, err := c.client.Auth().Password(ctx, password)
	if err != nil {
		return domain.UserInfo{}, mapProviderError("check password", err)
	}
	return userInfoFromAuthorization(authz), nil
}

func (c *GotdTransport) Self(ctx context.Context) (domain.UserInfo, error) {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return domain.UserInfo{}, mapProviderError("auth status", err)
	}
	if !status.Authorized || status.User == nil {
		return domain.UserInfo{}, domain.NewError(domain.ErrNotAuthenticated,
			"session token is missing or was revoked; run 'tgsend auth' again")
	}
	return userInfo(status.User), nil
}

// Contacts iterates the dialog list and converts it to contacts, caching
// input peers so a later SendFile can address them.
func (c *GotdTransport) Contacts(ctx context.Context, limit int) ([]domain.Contact, error) {
	iter := dialogs.NewQueryBuilder(c.api).GetDialogs().BatchSize(100).Iter()

	var result []domain.Contact
	for iter.Next(ctx) {
		elem := iter.Value()

		contact, ok := contactFromElem(elem)
		if !ok {
			continue
		}
		c.cachePeer(contact.ID, elem.Peer)

		result = append(result, contact)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, mapProviderError("list dialogs", err)
	}
	return result, nil
}

func (c *GotdTransport) SendFile(ctx context.Context, recipient int64, path string) (int, error) {
	peer := c.findPeer(recipient)
	if peer == nil {
		return 0, domain.NewError(domain.ErrNotFound,
			fmt.Sprintf("no dialog peer cached for id %d", recipient))
	}

	up := uploader.NewUploader(c.api)
	file, err := up.FromPath(ctx, path)
	if err != nil {
		return 0, mapProviderError("upload file", err)
	}

	doc := message.UploadedDocument(file).
		Filename(filepath.Base(path)).
		ForceFile(true)

	sender := message.NewSender(c.api).WithUploader(up)
	updates, err := sender.To(peer).Media(ctx, doc)
	if err != nil {
		return 0, mapProviderError("send file", err)
	}
	return messageIDFromUpdates(updates), nil
}

func (c *GotdTransport) findPeer(id int64) tg.InputPeerClass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerCache[id]
}

func (c *GotdTransport) cachePeer(id int64, peer tg.InputPeerClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peerCache[id] = peer
}

// contactFromElem converts one dialog element into a contact, classifying
// the peer kind from its entities.
func contactFromElem(elem dialogs.Elem) (domain.Contact, bool) {
	if elem.Peer == nil || elem.Dialog == nil {
		return domain.Contact{}, false
	}

	entities := elem.Entities
	switch p := elem.Dialog.GetPeer().(type) {
	case *tg.PeerUser:
		u, ok := entities.User(p.UserID)
		if !ok {
			return domain.Contact{}, false
		}
		kind := domain.KindUser
		if u.Bot {
			kind = domain.KindBot
		}
		return domain.Contact{ID: p.UserID, Name: formatUserName(u), Kind: kind}, true
	case *tg.PeerChat:
		ch, ok := entities.Chat(p.ChatID)
		if !ok {
			return domain.Contact{}, false
		}
		return domain.Contact{ID: p.ChatID, Name: ch.Title, Kind: domain.KindGroup}, true
	case *tg.PeerChannel:
		ch, ok := entities.Channel(p.ChannelID)
		if !ok {
			return domain.Contact{}, false
		}
		kind := domain.KindChannel
		if ch.Megagroup {
			kind = domain.KindGroup
		}
		return domain.Contact{ID: p.ChannelID, Name: ch.Title, Kind: kind}, true
	default:
		return domain.Contact{}, false
	}
}

// messageIDFromUpdates digs the sent message id out of the update response.
// Zero means the provider did not report one.
func messageIDFromUpdates(updates tg.UpdatesClass) int {
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID
	case *tg.Updates:
		for _, upd := range u.Updates {
			if m, ok := upd.(*tg.UpdateMessageID); ok {
				return m.ID
			}
		}
	case *tg.UpdatesCombined:
		for _, upd := range u.Updates {
			if m, ok := upd.(*tg.UpdateMessageID); ok {
				return m.ID
			}
		}
	}
	return 0
}

// mapProviderError translates provider error codes into the tool's error
// taxonomy; anything unrecognized is a transport failure.
func mapProviderError(op string, err error) error {
	switch {
	case tgerr.Is(err, "PHONE_CODE_INVALID"):
		return domain.WrapError(domain.ErrInvalidCode, "login code rejected", err)
	case tgerr.Is(err, "PHONE_CODE_EXPIRED"):
		return domain.WrapError(domain.ErrExpiredCode, "login code expired; request a new one", err)
	case tgerr.Is(err, "PHONE_NUMBER_INVALID"), tgerr.Is(err, "PHONE_NUMBER_BANNED"):
		return domain.WrapError(domain.ErrInvalidPhone, "phone number rejected by provider", err)
	case tgerr.Is(err, "PASSWORD_HASH_INVALID"):
		return domain.WrapError(domain.ErrInvalidPassword, "two-factor password rejected", err)
	case tgerr.Is(err, "SESSION_PASSWORD_NEEDED"):
		return domain.WrapError(domain.ErrInvalidPassword, "two-factor password required", err)
	case tgerr.Is(err, "API_ID_INVALID"), tgerr.Is(err, "API_ID_PUBLISHED_FLOOD"):
		return domain.WrapError(domain.ErrInvalidCredentials, "API credentials rejected by provider", err)
	case tgerr.Is(err, "AUTH_KEY_UNREGISTERED"), tgerr.Is(err, "SESSION_REVOKED"),
		tgerr.Is(err, "SESSION_EXPIRED"), tgerr.Is(err, "USER_DEACTIVATED"):
		return domain.WrapError(domain.ErrNotAuthenticated, "session token rejected by provider", err)
	default:
		return domain.WrapError(domain.ErrTransport, op, err)
	}
}

func userInfoFromAuthorization(authz *tg.AuthAuthorization) domain.UserInfo {
	if u, ok := authz.User.(*tg.User); ok {
		return userInfo(u)
	}
	return domain.UserInfo{}
}

func userInfo(u *tg.User) domain.UserInfo {
	return domain.UserInfo{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Phone:     u.Phone,
	}
}

// formatUserName returns a display name for a user.
func formatUserName(u *tg.User) string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}
