package domain

// ContactKind classifies what kind of peer a contact is.
type ContactKind string

const (
	KindUser    ContactKind = "user"
	KindGroup   ContactKind = "group"
	KindChannel ContactKind = "channel"
	KindBot     ContactKind = "bot"
)

// Contact is one reachable peer from the provider's dialog list.
// Identity is ID; names are not unique.
type Contact struct {
	ID   int64
	Name string
	Kind ContactKind
}

// MatchResult pairs a contact with its fuzzy-match score (0-100).
// Produced transiently by search; never persisted.
type MatchResult struct {
	Contact Contact
	Score   int
}

// UserInfo describes the logged-in account.
type UserInfo struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// AuthPhase is the login state machine position.
type AuthPhase int

const (
	PhaseUnauthenticated AuthPhase = iota
	PhaseCodeRequested
	PhasePasswordRequired
	PhaseAuthorized
)

func (p AuthPhase) String() string {
	switch p {
	case PhaseCodeRequested:
		return "code_requested"
	case PhasePasswordRequired:
		return "password_required"
	case PhaseAuthorized:
		return "authorized"
	default:
		return "unauthenticated"
	}
}
