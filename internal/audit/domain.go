package audit

import "time"

// Entry is one immutable row of the audit ledger. Once created no field
// ever changes and the row is never removed; there is deliberately no
// UpdatedAt. ActorID is a weak reference: the entry outlives the identity
// it points at.
type Entry struct {
	ID           string
	ActorID      *string
	Action       string
	ResourceType string
	ResourceID   *string
	Data         map[string]any
	IPAddress    *string
	CreatedAt    time.Time
}

// Filters narrows a ledger listing.
type Filters struct {
	Actor        string
	Action       string
	ResourceType string
	From         time.Time
	To           time.Time
	Page         int
	PageSize     int
}

// Page is one window of ledger entries plus paging metadata.
type Page struct {
	Entries  []Entry
	Page     int
	PageSize int
	HasNext  bool
}

// Well-known action codes recorded by the auth core.
const (
	ActionLoginSucceeded = "auth.login.succeeded"
	ActionLoginFailed    = "auth.login.failed"
	ActionTokenRefreshed = "auth.token.refreshed"
	ActionLogout         = "auth.logout"
	ActionAccessDenied   = "authz.access.denied"
	ActionSecurityAlert  = "security.alert"
	ResourceTypeIdentity = "identity"
	ResourceTypeRoute    = "route"
	ResourceTypeOrigin   = "origin"
)
