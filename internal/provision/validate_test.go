package provision

import (
	"errors"
	"regexp"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestCustomTagsEnforced(t *testing.T) {
	spec := jdoe
	spec.Username = "bad user!"
	wp := WPOptions{Path: "/shop?x"}

	var ve ValidationError
	if err := check(spec, wp); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	rules := map[string]string{}
	for _, p := range ve.Problems {
		rules[p.Field] = p.Rule
	}
	if rules["username"] != "cpuser" || rules["path"] != "wppath" {
		t.Fatalf("problems = %+v", ve.Problems)
	}

	if err := check(jdoe, WPOptions{Path: "/blog"}); err != nil {
		t.Fatalf("valid input refused: %v", err)
	}
}

func TestMustRegister_PanicsWhenRefused(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for an empty tag")
		}
	}()
	mustRegister(validator.New(), "", regexp.MustCompile(`.*`))
}
