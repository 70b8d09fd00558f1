package server

func (s *Server) initRoutes() {
	// SESSION
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionLogin, ChainMiddleware(s.LoginHandler(), s.CredentialMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionSignUp, ChainMiddleware(s.SignUpHandler(), s.CredentialMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// ONBOARDING / PROFILE
	s.RegisterRouteHandler("POST "+RouteOnboardingComplete, ChainMiddleware(s.CompleteOnboardingHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware()...))

	// UI
	s.RegisterRouteHandler("GET "+RouteGuard, ChainMiddleware(s.GuardHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteNavigation, ChainMiddleware(s.NavigationHandler(), s.APIMiddleware()...))

	// Preflight for every bridge route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
