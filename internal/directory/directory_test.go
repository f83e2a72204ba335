package directory_test

import (
	"context"
	"testing"

	"github.com/danhigham/tgsend/internal/directory"
	"github.com/danhigham/tgsend/internal/domain"
)

type fakeLister struct {
	contacts []domain.Contact
	err      error
	calls    int
}

func (f *fakeLister) Contacts(ctx context.Context, limit int) ([]domain.Contact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.contacts, nil
}

type fakePins struct {
	ids []int64
}

func (f *fakePins) ListPinned() ([]int64, error) { return f.ids, nil }

func always() bool { return true }
func never() bool  { return false }

func sample() []domain.Contact {
	return []domain.Contact{
		{ID: 1, Name: "John Doe", Kind: domain.KindUser},
		{ID: 2, Name: "Joanna Lee", Kind: domain.KindUser},
		{ID: 3, Name: "Mark Jones", Kind: domain.KindUser},
		{ID: 4, Name: "Dev Team", Kind: domain.KindGroup},
	}
}

func newDir(lister *fakeLister, pins *fakePins, authorized func() bool) *directory.Directory {
	return directory.New(lister, pins, authorized, 0, nil)
}

func TestDirectory_FetchCaches(t *testing.T) {
	lister := &fakeLister{contacts: sample()}
	d := newDir(lister, &fakePins{}, always)

	if _, err := d.Fetch(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Fetch(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if lister.calls != 1 {
		t.Errorf("transport calls = %d, want 1 (cached)", lister.calls)
	}

	if _, err := d.Fetch(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if lister.calls != 2 {
		t.Errorf("transport calls = %d, want 2 (forceRefresh bypasses cache)", lister.calls)
	}
}

func TestDirectory_FetchRequiresAuth(t *testing.T) {
	lister := &fakeLister{contacts: sample()}
	d := newDir(lister, &fakePins{}, never)

	_, err := d.Fetch(context.Background(), false)
	if domain.KindOf(err) != domain.ErrNotAuthenticated {
		t.Errorf("error kind = %q, want NotAuthenticated", domain.KindOf(err))
	}
	if lister.calls != 0 {
		t.Errorf("transport calls = %d, want 0", lister.calls)
	}
}

func TestDirectory_FetchTransportError(t *testing.T) {
	lister := &fakeLister{err: domain.NewError(domain.ErrTransport, "rate limited")}
	d := newDir(lister, &fakePins{}, always)

	_, err := d.Fetch(context.Background(), false)
	if domain.KindOf(err) != domain.ErrTransport {
		t.Errorf("error kind = %q, want TransportError", domain.KindOf(err))
	}
}

func TestDirectory_ResolveByID(t *testing.T) {
	d := newDir(&fakeLister{contacts: sample()}, &fakePins{}, always)

	c, err := d.ResolveByID(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Joanna Lee" {
		t.Errorf("name = %q, want Joanna Lee", c.Name)
	}

	_, err = d.ResolveByID(context.Background(), 999)
	if domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("error kind = %q, want NotFound", domain.KindOf(err))
	}
}

func TestDirectory_ResolveByName(t *testing.T) {
	d := newDir(&fakeLister{contacts: sample()}, &fakePins{}, always)

	c, err := d.ResolveByName(context.Background(), "joanna")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 2 {
		t.Errorf("id = %d, want 2", c.ID)
	}
}

func TestDirectory_ResolveByName_Ambiguous(t *testing.T) {
	lister := &fakeLister{contacts: []domain.Contact{
		{ID: 1, Name: "John X", Kind: domain.KindUser},
		{ID: 2, Name: "John Y", Kind: domain.KindUser},
	}}
	d := newDir(lister, &fakePins{}, always)

	_, err := d.ResolveByName(context.Background(), "John")
	if domain.KindOf(err) != domain.ErrAmbiguousMatch {
		t.Errorf("error kind = %q, want AmbiguousMatch", domain.KindOf(err))
	}
}

func TestDirectory_ResolveByName_NoMatch(t *testing.T) {
	d := newDir(&fakeLister{contacts: sample()}, &fakePins{}, always)

	_, err := d.ResolveByName(context.Background(), "zzzzz")
	if domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("error kind = %q, want NotFound", domain.KindOf(err))
	}
}

func TestDirectory_ResolveByName_WeakMatchRejected(t *testing.T) {
	// "me" is only a weak subsequence of "Mark Jones"; far below the
	// non-interactive threshold.
	lister := &fakeLister{contacts: []domain.Contact{
		{ID: 3, Name: "Mark Jones", Kind: domain.KindUser},
	}}
	d := newDir(lister, &fakePins{}, always)

	_, err := d.ResolveByName(context.Background(), "me")
	if domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("error kind = %q, want NotFound", domain.KindOf(err))
	}
}

func TestDirectory_Listing_PinnedFirst(t *testing.T) {
	pins := &fakePins{ids: []int64{4, 2}}
	d := newDir(&fakeLister{contacts: sample()}, pins, always)

	entries, err := d.Listing(context.Background(), "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	// Pinned in pin insertion order, then the rest in match order.
	if entries[0].Contact.ID != 4 || !entries[0].Pinned {
		t.Errorf("entry[0] = %+v, want pinned id 4", entries[0])
	}
	if entries[1].Contact.ID != 2 || !entries[1].Pinned {
		t.Errorf("entry[1] = %+v, want pinned id 2", entries[1])
	}
	if entries[2].Contact.ID != 1 || entries[2].Pinned {
		t.Errorf("entry[2] = %+v, want unpinned id 1", entries[2])
	}
}

func TestDirectory_Listing_PinnedOnly(t *testing.T) {
	pins := &fakePins{ids: []int64{1}}
	d := newDir(&fakeLister{contacts: sample()}, pins, always)

	entries, err := d.Listing(context.Background(), "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Contact.Name != "John Doe" {
		t.Errorf("entries = %+v, want exactly John Doe", entries)
	}
}

func TestDirectory_Listing_StalePinSkipped(t *testing.T) {
	pins := &fakePins{ids: []int64{999, 1}}
	d := newDir(&fakeLister{contacts: sample()}, pins, always)

	entries, err := d.Listing(context.Background(), "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Contact.ID != 1 {
		t.Errorf("entries = %+v, want stale pin 999 skipped", entries)
	}
}

func TestDirectory_Listing_QueryFiltersPinned(t *testing.T) {
	pins := &fakePins{ids: []int64{4}}
	d := newDir(&fakeLister{contacts: sample()}, pins, always)

	entries, err := d.Listing(context.Background(), "jo", false)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Contact.ID == 4 {
			t.Errorf("pinned non-match leaked into listing: %+v", e)
		}
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3 matches for 'jo'", len(entries))
	}
}
