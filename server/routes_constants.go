package server

// Route path constants
// All bridge routes are defined here to ensure consistency and prevent typos
const (
	// Session
	RouteSession       = "/session"
	RouteSessionLogin  = "/session/login"
	RouteSessionSignUp = "/session/signup"
	RouteSessionLogout = "/session/logout"

	// Onboarding and profile
	RouteOnboardingComplete = "/onboarding/complete"
	RouteProfile            = "/profile"

	// UI plumbing
	RouteGuard      = "/guard"
	RouteNavigation = "/navigation"
	RouteHealth     = "/healthz"
)
