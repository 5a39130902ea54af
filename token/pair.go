package token

// Pair is the backend's rolling access/refresh token pair. It is always replaced as a whole.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both tokens are present.
func (p Pair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}
