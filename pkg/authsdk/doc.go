/*
Package authsdk is the Go client for the Cradle session service.

The service keeps one session: register or log in, and it holds the
tokens and persists them for the next start. The client drives it over
JSON and gets typed responses back.

	client := authsdk.NewClient("http://127.0.0.1:8080")

	s, err := client.Login(ctx, "alice", "correct horse")
	if errors.Is(err, authsdk.ErrInvalidCredentials) {
		// wrong username or password; the two are never told apart
	}

	info, err := client.UserInfo(ctx, s.Tokens.AccessToken)

Calls that act on the session (Session, Logout, EnableBiometric,
DisableBiometric) take the session's access token. Refresh takes the
refresh token.

# Errors

Every failure from the service is an *APIError. Code is stable and
matches one of the ErrorCode constants; Description is a message fit
to show the user. Compare against the predefined errors with errors.Is,
which matches on Code.

# Biometric login

Biometric login unlocks the stored session after a presence check. It
must be enabled first with EnableBiometric, which runs a check of its
own. On hosts using the passcode fallback, the current passcode goes in
BiometricRequest.Passcode.
*/
package authsdk
