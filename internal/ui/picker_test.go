package ui

import (
	"testing"

	"github.com/danhigham/tgsend/internal/directory"
	"github.com/danhigham/tgsend/internal/domain"
)

func TestNewModel_LoadsInitialEntries(t *testing.T) {
	entries := []directory.Entry{
		{Contact: domain.Contact{ID: 1, Name: "Alice"}, Score: 100, Pinned: true},
		{Contact: domain.Contact{ID: 2, Name: "Bob"}, Score: 100},
	}
	var gotQuery string
	m := NewModel(func(q string) []directory.Entry {
		gotQuery = q
		return entries
	}, "photo.jpg", 1024)

	if gotQuery != "" {
		t.Errorf("initial query = %q, want empty", gotQuery)
	}
	if len(m.entries) != 2 {
		t.Errorf("initial entries = %d, want 2", len(m.entries))
	}
	if _, ok := m.Choice(); ok {
		t.Error("Choice() reported a selection before any input")
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 << 20, "5.00 MB"},
		{3 << 30, "3.00 GB"},
	}
	for _, tc := range cases {
		if got := formatFileSize(tc.size); got != tc.want {
			t.Errorf("formatFileSize(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}

func TestKindLabel(t *testing.T) {
	if kindLabel(domain.KindChannel) != "channel" {
		t.Error("channel label wrong")
	}
	if kindLabel(domain.KindUser) != "user" {
		t.Error("user label wrong")
	}
}
