package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type usernameHolder struct {
	Username *string `validate:"omitnil,username"`
}

func TestStruct_Username(t *testing.T) {
	cases := map[string]bool{
		"jane":        true,
		"jane_doe.99": true,
		"ja":          false,
		"Jane":        false,
		"jane doe":    false,
		"jane!":       false,
		"":            false,
	}
	for name, ok := range cases {
		t.Run(name, func(t *testing.T) {
			n := name
			err := Struct(usernameHolder{Username: &n})
			if ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, "failed 'username'")
			}
		})
	}
}

func TestStruct_NilUsernameSkipped(t *testing.T) {
	assert.NoError(t, Struct(usernameHolder{}))
}
