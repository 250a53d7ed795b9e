package validate

import (
	"regexp"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

var v = validatorv10.New()

var reID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Check runs struct-tag validation and returns a field->problem map, or
// nil when the value is valid. Used for the per-field 400 responses.
func Check(s any) map[string]string {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				out[field] = "required"
			case "email":
				out[field] = "must be a valid email"
			default:
				out[field] = "invalid (" + fe.Tag() + ")"
			}
		}
	} else {
		out["_"] = err.Error()
	}
	return out
}

// ID validates a simple resource identifier (product/category/order ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Qty parses a quantity, clamping abusive values.
func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	if n > 50 {
		return 50
	}
	return n
}

// Password enforces the login password policy.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		}
	}
	return hasLower && hasUpper && hasDigit
}
