package provision

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AccountSpec describes the hosting account to create.
type AccountSpec struct {
	Username string `json:"username" validate:"required,min=3,max=16,cpuser"`
	Domain   string `json:"domain"   validate:"required,fqdn"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email"    validate:"required,email"`
	Plan     string `json:"plan"`
	ClientID int64  `json:"client_id" validate:"gte=0"`
}

// WPOptions controls the WordPress part of provisioning.  Zero values fall
// back to the account and to config.Provision.
type WPOptions struct {
	AutoInstall    bool   `json:"auto_install"`
	Domain         string `json:"domain"          validate:"omitempty,fqdn"`
	Path           string `json:"path"            validate:"omitempty,max=200,excludes=..,wppath"`
	Title          string `json:"title"           validate:"max=200"`
	AdminUser      string `json:"admin_user"      validate:"omitempty,min=3,max=60,cpuser"`
	AdminEmail     string `json:"admin_email"     validate:"omitempty,email"`
	Version        string `json:"version"         validate:"omitempty,max=20"`
	Language       string `json:"language"        validate:"omitempty,max=10"`
	SSL            *bool  `json:"ssl"`
	BackupSchedule string `json:"backup_schedule" validate:"omitempty,oneof=daily weekly monthly"`
}

var (
	userPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	pathPattern = regexp.MustCompile(`^/?[A-Za-z0-9._/-]*$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "cpuser", userPattern)
	mustRegister(v, "wppath", pathPattern)
	return v
}

// mustRegister adds a pattern tag to v and panics if v refuses it.  A
// missing tag would otherwise pass every value.
func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("provision: register %q validator: %v", tag, err))
	}
}

// check validates each struct and folds every failure into one
// ValidationError.
func check(structs ...any) error {
	var problems []Problem
	for _, s := range structs {
		err := validate.Struct(s)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, Problem{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	if len(problems) > 0 {
		return ValidationError{Problems: problems}
	}
	return nil
}

func invalid(field, rule string) error {
	return ValidationError{Problems: []Problem{{Field: field, Rule: rule}}}
}
