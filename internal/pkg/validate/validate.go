package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	// Usernames are validated after lower-casing.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
