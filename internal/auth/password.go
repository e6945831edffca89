package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"gitea.jw6.us/james/shalendar/internal/apperr"
)

// ValidatePassword enforces the account password rules.
func ValidatePassword(password string) error {
	if len([]rune(password)) < 8 {
		return apperr.BadRequest("Password must be at least 8 characters long.")
	}
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return apperr.BadRequest("Password must contain at least one uppercase letter.")
	}
	if !digit {
		return apperr.BadRequest("Password must contain at least one number.")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
