package security

import (
	"fmt"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	// Scores below 2 on the zxcvbn 0-4 scale fall to trivial offline guessing.
	minZxcvbnScore = 2
)

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPasswordValidator returns the validator applied to registration,
// password change, and password reset flows.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		LengthRule(minPasswordLength, maxPasswordLength),
		StrengthRule(minZxcvbnScore),
	)
}

// LengthRule bounds the password length in runes.
func LengthRule(min, max int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		length := utf8.RuneCountInString(password)
		if length < min {
			return fmt.Errorf("password must be at least %d characters", min)
		}
		if max > 0 && length > max {
			return fmt.Errorf("password must be at most %d characters", max)
		}
		return nil
	})
}

// StrengthRule rejects passwords scoring below minScore on the zxcvbn scale.
func StrengthRule(minScore int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		result := zxcvbn.PasswordStrength(password, nil)
		if result.Score < minScore {
			return fmt.Errorf("password is too easy to guess")
		}
		return nil
	})
}
