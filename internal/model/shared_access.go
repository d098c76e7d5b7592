package model

// SharedAccess is one resolved grant. At most one row may exist per
// (client, user) pair; the unique constraint backs the invariant.
type SharedAccess struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	UserID     string `json:"user_id"`
	GrantedBy  string `json:"granted_by"`
	Permission string `json:"permission"`
	Ctime      int64  `json:"ctime"`
}
