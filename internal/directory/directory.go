// Package directory fetches and caches the contact list and resolves
// recipients by id or fuzzy name.
package directory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danhigham/tgsend/internal/domain"
	"github.com/danhigham/tgsend/internal/match"
)

// DefaultLimit caps how many dialogs one fetch pulls from the provider.
const DefaultLimit = 100

// MinResolveScore is the floor a fuzzy match must clear before a name is
// accepted as a recipient non-interactively.
const MinResolveScore = 60

// Lister is the provider primitive the directory needs.
type Lister interface {
	Contacts(ctx context.Context, limit int) ([]domain.Contact, error)
}

// Pins supplies the pinned ordering for combined listings.
type Pins interface {
	ListPinned() ([]int64, error)
}

// Entry is one row of a combined contact listing.
type Entry struct {
	Contact domain.Contact
	Score   int
	Pinned  bool
}

// Directory caches the last successful contact snapshot for the process
// lifetime. Fetches are all-or-nothing; a provider failure never yields a
// partial list.
type Directory struct {
	transport  Lister
	pins       Pins
	authorized func() bool
	logger     *zap.Logger
	limit      int

	snapshot []domain.Contact
	fetched  bool
}

func New(transport Lister, pins Pins, authorized func() bool, limit int, logger *zap.Logger) *Directory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		transport:  transport,
		pins:       pins,
		authorized: authorized,
		limit:      limit,
		logger:     logger,
	}
}

// Fetch returns the contact snapshot, hitting the provider on the first
// call or when forceRefresh is set.
func (d *Directory) Fetch(ctx context.Context, forceRefresh bool) ([]domain.Contact, error) {
	if !d.authorized() {
		return nil, domain.NewError(domain.ErrNotAuthenticated,
			"not authenticated; run 'tgsend auth' first")
	}
	if d.fetched && !forceRefresh {
		return d.snapshot, nil
	}

	contacts, err := d.transport.Contacts(ctx, d.limit)
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.WrapError(domain.ErrTransport, "fetch contacts", err)
		}
		return nil, err
	}

	d.snapshot = contacts
	d.fetched = true
	d.logger.Debug("contact snapshot refreshed", zap.Int("count", len(contacts)))
	return d.snapshot, nil
}

// ResolveByID finds a contact in the current snapshot.
func (d *Directory) ResolveByID(ctx context.Context, id int64) (domain.Contact, error) {
	contacts, err := d.Fetch(ctx, false)
	if err != nil {
		return domain.Contact{}, err
	}
	for _, c := range contacts {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Contact{}, domain.NewError(domain.ErrNotFound,
		fmt.Sprintf("no contact with id %d", id))
}

// ResolveByName fuzzy-matches query against the snapshot and returns the
// unique best match. A tied top score is reported as ambiguous, never
// silently guessed.
func (d *Directory) ResolveByName(ctx context.Context, query string) (domain.Contact, error) {
	if query == "" {
		return domain.Contact{}, domain.NewError(domain.ErrNotFound, "empty recipient name")
	}
	contacts, err := d.Fetch(ctx, false)
	if err != nil {
		return domain.Contact{}, err
	}

	results := match.Search(query, contacts)
	for len(results) > 0 && results[len(results)-1].Score < MinResolveScore {
		results = results[:len(results)-1]
	}
	if len(results) == 0 {
		return domain.Contact{}, domain.NewError(domain.ErrNotFound,
			fmt.Sprintf("no contact matches %q", query))
	}
	if len(results) > 1 && results[0].Score == results[1].Score {
		return domain.Contact{}, domain.NewError(domain.ErrAmbiguousMatch,
			fmt.Sprintf("%q matches both %q and %q; use --to-id",
				query, results[0].Contact.Name, results[1].Contact.Name))
	}
	return results[0].Contact, nil
}

// Listing is the combined view used by search and selection: pinned matches
// first in pin insertion order, then unpinned matches in score order.
// Pinned ids absent from the snapshot are skipped, not errors.
func (d *Directory) Listing(ctx context.Context, query string, pinnedOnly bool) ([]Entry, error) {
	contacts, err := d.Fetch(ctx, false)
	if err != nil {
		return nil, err
	}

	results := match.Search(query, contacts)
	byID := make(map[int64]domain.MatchResult, len(results))
	for _, r := range results {
		byID[r.Contact.ID] = r
	}

	pinnedIDs, err := d.pins.ListPinned()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	pinned := make(map[int64]bool, len(pinnedIDs))
	for _, id := range pinnedIDs {
		pinned[id] = true
		r, ok := byID[id]
		if !ok {
			continue // stale pin or filtered out by the query
		}
		entries = append(entries, Entry{Contact: r.Contact, Score: r.Score, Pinned: true})
	}
	if pinnedOnly {
		return entries, nil
	}

	for _, r := range results {
		if pinned[r.Contact.ID] {
			continue
		}
		entries = append(entries, Entry{Contact: r.Contact, Score: r.Score})
	}
	return entries, nil
}
