// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` right after defaults are applied.  Any
// failure aborts startup so the binary never runs against a half-configured
// WHM endpoint or without a sealing key.
//
// Notes
// -----
//   • validator parses `gte=60s` style params on time.Duration fields as
//     durations, so the cPanel timeout floor reads naturally in the tag.

package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns a single error listing every failed field, or nil.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}
