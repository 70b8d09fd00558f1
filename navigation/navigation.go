// Package navigation is the boundary between session flows and the UI's
// screen stack.
package navigation

import "fmt"

// Screen names a route of the app.
type Screen string

const (
	ScreenWelcome      Screen = "Welcome"
	ScreenLogin        Screen = "Login"
	ScreenSignup       Screen = "Signup"
	ScreenMain         Screen = "Main"
	ScreenHome         Screen = "Home"
	ScreenQuiz         Screen = "Quiz"
	ScreenProfile      Screen = "Profile"
	ScreenRoadmap      Screen = "Roadmap"
	ScreenAchievements Screen = "Achievements"
	ScreenProfileSetup Screen = "ProfileSetup"
)

var screens = map[Screen]struct{}{
	ScreenWelcome:      {},
	ScreenLogin:        {},
	ScreenSignup:       {},
	ScreenMain:         {},
	ScreenHome:         {},
	ScreenQuiz:         {},
	ScreenProfile:      {},
	ScreenRoadmap:      {},
	ScreenAchievements: {},
	ScreenProfileSetup: {},
}

// Valid reports whether s is a known route.
func (s Screen) Valid() bool {
	_, ok := screens[s]
	return ok
}

// Kind says how a command changes the screen stack.
type Kind string

const (
	// KindReset replaces the whole stack so back navigation cannot return.
	KindReset Kind = "reset"
	// KindNavigate pushes a screen.
	KindNavigate Kind = "navigate"
	// KindReplace swaps the top of the stack.
	KindReplace Kind = "replace"
)

// Command is a single navigation request.
type Command struct {
	Kind   Kind   `json:"kind"`
	Screen Screen `json:"screen"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%s)", c.Kind, c.Screen)
}

// Navigator moves the UI between screens.
type Navigator interface {
	Reset(screen Screen)
	Navigate(screen Screen)
	Replace(screen Screen)
}
