package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/danhigham/tgsend/internal/domain"
)

func TestMapProviderError(t *testing.T) {
	cases := []struct {
		code string
		want domain.ErrorKind
	}{
		{"PHONE_CODE_INVALID", domain.ErrInvalidCode},
		{"PHONE_CODE_EXPIRED", domain.ErrExpiredCode},
		{"PHONE_NUMBER_INVALID", domain.ErrInvalidPhone},
		{"PASSWORD_HASH_INVALID", domain.ErrInvalidPassword},
		{"API_ID_INVALID", domain.ErrInvalidCredentials},
		{"AUTH_KEY_UNREGISTERED", domain.ErrNotAuthenticated},
		{"FLOOD_WAIT_30", domain.ErrTransport},
	}

	for _, tc := range cases {
		err := mapProviderError("op", tgerr.New(400, tc.code))
		if got := domain.KindOf(err); got != tc.want {
			t.Errorf("mapProviderError(%s) kind = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestMessageIDFromUpdates(t *testing.T) {
	short := &tg.UpdateShortSentMessage{ID: 77}
	if got := messageIDFromUpdates(short); got != 77 {
		t.Errorf("short sent message id = %d, want 77", got)
	}

	full := &tg.Updates{Updates: []tg.UpdateClass{
		&tg.UpdateNewMessage{},
		&tg.UpdateMessageID{ID: 123},
	}}
	if got := messageIDFromUpdates(full); got != 123 {
		t.Errorf("updates id = %d, want 123", got)
	}

	if got := messageIDFromUpdates(&tg.UpdatesTooLong{}); got != 0 {
		t.Errorf("unknown updates id = %d, want 0", got)
	}
}

func TestFormatUserName(t *testing.T) {
	cases := []struct {
		user tg.User
		want string
	}{
		{tg.User{FirstName: "John", LastName: "Doe"}, "John Doe"},
		{tg.User{FirstName: "John"}, "John"},
		{tg.User{Username: "johnd"}, "johnd"},
		{tg.User{}, "Unknown"},
	}

	for _, tc := range cases {
		if got := formatUserName(&tc.user); got != tc.want {
			t.Errorf("formatUserName(%+v) = %q, want %q", tc.user, got, tc.want)
		}
	}
}
