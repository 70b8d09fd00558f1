package providerfake

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Account is a registered identity held by the fake provider.
type Account struct {
	ID           string
	Email        string
	PasswordHash string // never exposed to callers
	Confirmed    bool
	CreatedAt    time.Time
}

// PasswordPolicy mirrors the provider-side password rules.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy accepts short passwords as long as they mix
// upper case, lower case and digits.
var DefaultPasswordPolicy = PasswordPolicy{MinLength: 4}

// Validate checks if password meets the policy:
// - At least MinLength characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("Password must be at least %d characters long", p.MinLength)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("Password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("Password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}

	return nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
