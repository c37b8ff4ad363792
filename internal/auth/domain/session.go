package domain

// Session is the signed-in user together with their tokens. A session is
// either complete or absent; there is no half-populated form.
type Session struct {
	User   User
	Tokens TokenPair
}
