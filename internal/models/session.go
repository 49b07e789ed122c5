package models

// SessionSnapshot is the persisted state of a session: its flattened cookies
// and renewal counters. Snapshots are written on mutation and restored on
// startup so sessions survive restarts.
type SessionSnapshot struct {
	ID           string   `json:"id" badgerhold:"key"`
	ProfileName  string   `json:"profile_name,omitempty"`
	Cookies      []Cookie `json:"cookies"`
	NeedsRenewal bool     `json:"needs_renewal"`
	TimesRenewed int      `json:"times_renewed"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}
