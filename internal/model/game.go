package model

import "time"

// GameResult is the server-defined outcome tag of a play. The client treats
// it as an opaque two-valued tag; the known values are exported for display.
type GameResult string

const (
	ResultWin  GameResult = "gagné"
	ResultLose GameResult = "perdu"
)

// GameRecord is one immutable play outcome issued by the server.
// Records are append-only and owned entirely by the server; the client
// only ever reads them.
type GameRecord struct {
	Date            time.Time  `json:"date"`
	User            *User      `json:"user,omitempty"` // present in the global history scope
	GeneratedNumber int        `json:"generatedNumber"`
	Result          GameResult `json:"result"`
	BalanceChange   int        `json:"balanceChange"`
	NewBalance      int        `json:"newBalance"`
}

// PlayOutcome is the authoritative result of a single play action.
type PlayOutcome struct {
	Result          GameResult `json:"result"`
	GeneratedNumber int        `json:"generatedNumber"`
	NewBalance      int        `json:"newBalance"`
}

// ScopeKind distinguishes the history scopes a fetch can target.
type ScopeKind string

const (
	ScopeSelf ScopeKind = "self"
	ScopeUser ScopeKind = "user"
	ScopeAll  ScopeKind = "all"
)

// HistoryScope identifies one independently fetched record list.
// UserID is only set for ScopeUser.
type HistoryScope struct {
	Kind   ScopeKind
	UserID UserID
}

// SelfScope is the authenticated user's own history.
func SelfScope() HistoryScope {
	return HistoryScope{Kind: ScopeSelf}
}

// UserScope is a specific user's history.
func UserScope(id UserID) HistoryScope {
	return HistoryScope{Kind: ScopeUser, UserID: id}
}

// AllScope is the global, cross-user history.
func AllScope() HistoryScope {
	return HistoryScope{Kind: ScopeAll}
}

// AdminView enumerates the admin dashboard's view states. The set is closed
// so an invalid view is unrepresentable.
type AdminView string

const (
	AdminViewUsers       AdminView = "users"
	AdminViewHistory     AdminView = "history"
	AdminViewUserDetails AdminView = "user_details"
)
