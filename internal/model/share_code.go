package model

// ShareCode is one issued invitation. Only the Argon2id hash and the
// lookup fingerprint of the plaintext are stored. Rows are never
// deleted; revoked/exhausted/expired codes stay for audit.
type ShareCode struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	CreatedBy  string `json:"created_by"`
	CodeHash   string `json:"-"`
	CodeFp     string `json:"-"`
	Permission string `json:"permission"`
	MaxUses    int    `json:"max_uses"`
	UsedCount  int    `json:"used_count"`
	State      int    `json:"state"`
	ExpiresAt  int64  `json:"expires_at"`
	Ctime      int64  `json:"ctime"`
	Mtime      int64  `json:"mtime"`
}
