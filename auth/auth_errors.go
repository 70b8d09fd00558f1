package auth

import "errors"

var (
	// ErrAliasUnavailable means no alias is stored for the signed in user,
	// usually because the lookup at login failed.
	ErrAliasUnavailable = errors.New("alias not available")
)

// Warnings shown to the user. Provider messages are passed through as they are.
const (
	MsgFillAllFields       = "Please fill out all fields."
	MsgFillAllSignUpFields = "Please fill all fields."
	MsgPasswordsDontMatch  = "Passwords do not match."
	MsgUserInfoUnavailable = "Failed to retrieve user info."
	MsgConfirmEmail        = "Please confirm your email before logging in."
	MsgCheckConnection     = "Check your internet connection."
	MsgLoginFailed         = "Login failed"
	MsgProfileUnavailable  = "Profile is not available yet."
	MsgSignedOut           = "Please log in again."
)
