package models

// -----------------------------------------------------------------------------
// Session / auth payloads (backend /auth endpoints)
// -----------------------------------------------------------------------------

type MLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MUser struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"` // "super_admin" | "operator" | "viewer"
	ZoneID string `json:"zone_id,omitempty"`
}

type MToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        MUser  `json:"user"`
}
