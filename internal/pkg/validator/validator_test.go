package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email    string `json:"email" validate:"required,emailish"`
	Username string `json:"username" validate:"required,min=3"`
}

func TestValidate_OK(t *testing.T) {
	assert.Nil(t, Validate(sample{Email: "a@x.com", Username: "alice"}))
}

func TestValidate_EmailShape(t *testing.T) {
	cases := map[string]bool{
		"a@x.com":         true,
		"first.last@x.io": true,
		"a@b.co.uk":       true,
		"no-at-sign.com":  false,
		"a@localhost":     false,
		"a@x.":            false,
		"a b@x.com":       false,
		"a@@x.com":        false,
	}
	for email, valid := range cases {
		errs := Validate(sample{Email: email, Username: "alice"})
		if valid {
			assert.Nil(t, errs, email)
		} else {
			if assert.Len(t, errs, 1, email) {
				assert.Equal(t, "email", errs[0].Field)
				assert.Equal(t, "emailish", errs[0].Tag)
			}
		}
	}
}

func TestValidate_OrderAndJSONNames(t *testing.T) {
	errs := Validate(sample{Email: "", Username: "al"})
	if assert.Len(t, errs, 2) {
		assert.Equal(t, FieldError{Field: "email", Tag: "required"}, errs[0])
		assert.Equal(t, FieldError{Field: "username", Tag: "min"}, errs[1])
	}
}
