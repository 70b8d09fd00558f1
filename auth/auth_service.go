// Package auth runs the user facing session flows: login, sign-up, logout
// and onboarding. Each flow is a single ordered chain of calls.
package auth

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-learner-session/authctx"
	"github.com/jrsteele09/go-learner-session/credstore"
	"github.com/jrsteele09/go-learner-session/identity"
	apperrors "github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/jrsteele09/go-learner-session/navigation"
	"github.com/jrsteele09/go-learner-session/profile"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Dependencies holds everything the Service drives.
type Dependencies struct {
	Identity  IdentityClient
	Session   SessionContext
	Store     credstore.Store
	Profiles  ProfileClient
	Navigator navigation.Navigator
}

// Service provides the session flows of the app.
type Service struct {
	identity  IdentityClient
	session   SessionContext
	store     credstore.Store
	profiles  ProfileClient
	navigator navigation.Navigator
	validate  *validator.Validate
}

func NewService(deps Dependencies) (*Service, error) {
	if deps.Identity == nil {
		return nil, errors.New("[NewService] Identity is required")
	}
	if deps.Session == nil {
		return nil, errors.New("[NewService] Session is required")
	}
	if deps.Store == nil {
		return nil, errors.New("[NewService] Store is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("[NewService] Profiles is required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("[NewService] Navigator is required")
	}

	return &Service{
		identity:  deps.Identity,
		session:   deps.Session,
		store:     deps.Store,
		profiles:  deps.Profiles,
		navigator: deps.Navigator,
		validate:  validator.New(),
	}, nil
}

// Login signs the user in and makes them the session user. The previous
// provider session is signed out first. The alias is stored before Login
// returns, so no request that needs it can run earlier; a failed alias
// lookup is logged and leaves AliasID empty.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if err := s.validateLogin(&req); err != nil {
		return LoginResult{}, err
	}

	// SignIn signs the provider out before it tries, so every failure from
	// here on leaves nobody signed in.
	previousEmail, hadUser := s.session.CurrentEmail()
	token := s.session.Begin()
	providerSession, err := s.identity.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		s.abandonLogin(ctx, token, previousEmail, hadUser)
		return LoginResult{}, errors.Wrap(err, "[Service.Login] SignIn")
	}

	user, ok := s.identity.CurrentUser(ctx)
	if !ok {
		s.abandonLogin(ctx, token, previousEmail, hadUser)
		return LoginResult{}, identity.NewError(identity.KindUnknown, "login", MsgUserInfoUnavailable, nil)
	}
	email := user.Email
	if email == "" {
		email = req.Email
	}
	if hadUser && previousEmail != email {
		s.forgetAlias(ctx, previousEmail)
	}
	session := authctx.Session{UserID: user.UserID, Email: email}
	if !s.session.Commit(token, &session) {
		return LoginResult{}, errors.Wrap(apperrors.ErrSessionSuperseded, "[Service.Login] Commit")
	}
	session.Resolved = true
	result := LoginResult{User: session, ExpiresAt: providerSession.ExpiresAt}

	aliasID, err := s.storeAlias(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.UserID).Msg("auth: alias unavailable after login")
	} else {
		result.AliasID = aliasID
	}

	s.navigator.Reset(navigation.ScreenMain)
	return result, nil
}

// abandonLogin settles a failed login: the session is cleared and the
// alias of whoever was signed in before is forgotten.
func (s *Service) abandonLogin(ctx context.Context, token authctx.Token, previousEmail string, hadUser bool) {
	if !s.session.Commit(token, nil) {
		return
	}
	if hadUser {
		s.forgetAlias(ctx, previousEmail)
	}
}

func (s *Service) forgetAlias(ctx context.Context, email string) {
	if err := s.store.Delete(ctx, credstore.AliasKey(email)); err != nil {
		log.Warn().Err(err).Msg("auth: failed to delete alias")
	}
}

// storeAlias resolves and persists the alias for email. On failure any
// alias stored earlier for the same email is removed.
func (s *Service) storeAlias(ctx context.Context, email string) (string, error) {
	key := credstore.AliasKey(email)
	aliasID, err := s.profiles.ResolveAliasID(ctx, email)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Msg("auth: failed to drop stale alias")
		}
		return "", errors.Wrap(err, "[Service.storeAlias] ResolveAliasID")
	}
	if err := s.store.Set(ctx, key, aliasID); err != nil {
		return "", errors.Wrap(err, "[Service.storeAlias] store.Set")
	}
	return aliasID, nil
}

// SignUp registers a new account, then signs out and sends the user to the
// login screen.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error) {
	if err := s.validateSignUp(&req); err != nil {
		return SignUpResult{}, err
	}

	receipt, err := s.identity.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return SignUpResult{}, errors.Wrap(err, "[Service.SignUp] SignUp")
	}
	if err := s.identity.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("auth: sign-out after sign-up failed")
	}

	s.navigator.Replace(navigation.ScreenLogin)
	return SignUpResult{
		UserID:               receipt.UserID,
		ConfirmationRequired: receipt.ConfirmationRequired,
	}, nil
}

// Logout ends the session, forgets the user's alias and resets to the
// login screen. Navigation happens even when the provider sign-out fails.
func (s *Service) Logout(ctx context.Context) error {
	email, hadUser := s.session.CurrentEmail()
	err := s.session.Logout(ctx)

	if hadUser {
		s.forgetAlias(ctx, email)
	}
	s.navigator.Reset(navigation.ScreenLogin)

	if err != nil {
		return errors.Wrap(err, "[Service.Logout]")
	}
	return nil
}

// CompleteOnboarding saves the profile setup answers, refreshes the session
// user and resets to the main screen. Without a signed in user the answers
// are kept but navigation is left to the guard.
func (s *Service) CompleteOnboarding(ctx context.Context, answers OnboardingAnswers) error {
	encoded, err := json.Marshal(answers)
	if err != nil {
		return errors.Wrap(err, "[Service.CompleteOnboarding] encode answers")
	}
	if err := s.store.Set(ctx, credstore.KeyProfileSetup, string(encoded)); err != nil {
		return errors.Wrap(err, "[Service.CompleteOnboarding] store profileSetup")
	}
	if err := s.store.Set(ctx, credstore.KeyProfileComplete, "true"); err != nil {
		return errors.Wrap(err, "[Service.CompleteOnboarding] store profileComplete")
	}

	if err := s.session.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("auth: session refresh after onboarding failed")
		if s.session.Snapshot().User == nil {
			return errors.Wrap(apperrors.ErrNoSession, "[Service.CompleteOnboarding] Refresh")
		}
	}
	s.navigator.Reset(navigation.ScreenMain)
	return nil
}

// OnboardingComplete reports whether profile setup has been finished on
// this device.
func (s *Service) OnboardingComplete(ctx context.Context) (bool, error) {
	value, found, err := s.store.Get(ctx, credstore.KeyProfileComplete)
	if err != nil {
		return false, errors.Wrap(err, "[Service.OnboardingComplete] store.Get")
	}
	return found && value == "true", nil
}

// Profile fetches the signed in user's profile. Without a stored alias it
// fails straight away with ErrAliasUnavailable.
func (s *Service) Profile(ctx context.Context) (profile.Record, error) {
	snapshot := s.session.Snapshot()
	if snapshot.User == nil {
		return nil, apperrors.ErrNoSession
	}
	email := snapshot.User.Email

	aliasID, found, err := s.store.Get(ctx, credstore.AliasKey(email))
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Profile] store.Get")
	}
	if !found || aliasID == "" {
		return nil, ErrAliasUnavailable
	}

	record, err := s.profiles.GetProfile(ctx, email, aliasID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Profile] GetProfile")
	}
	return record, nil
}

// WarningMessage maps a flow error to the single warning line the UI shows.
func WarningMessage(err error) string {
	if err == nil {
		return ""
	}
	switch identity.KindOf(err) {
	case identity.KindUnconfirmed:
		return MsgConfirmEmail
	case identity.KindNetwork:
		return MsgCheckConnection
	}

	var identityErr *identity.Error
	if errors.As(err, &identityErr) && identityErr.Message != "" {
		return identityErr.Message
	}
	switch {
	case errors.Is(err, ErrAliasUnavailable):
		return MsgProfileUnavailable
	case errors.Is(err, apperrors.ErrNoSession):
		return MsgSignedOut
	}
	return MsgLoginFailed
}
