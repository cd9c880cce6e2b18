package application

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-ballot/internal/domain"
)

// maxItemNameLength bounds an item name in runes.
const maxItemNameLength = 100

// registerCustomValidators registers domain-specific validation functions
// with the validator instance.
// registerCustomValidators returns an error if any validator registration fails.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("itemname", validateItemName); err != nil {
		return fmt.Errorf("failed to register itemname validator: %w", err)
	}
	return nil
}

// validateSemver checks that a field holds a MAJOR.MINOR.PATCH version.
func validateSemver(fl validator.FieldLevel) bool {
	version := fl.Field().String()
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 1 && p[0] == '0' {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// validateItemName accepts a non-blank name of printable characters with no
// surrounding whitespace.
func validateItemName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || strings.TrimSpace(name) != name {
		return false
	}
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) > maxItemNameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// normalizeItemName brings a name into the canonical form used for
// comparisons: NFC with surrounding whitespace removed. Korean item names
// typed on different systems can arrive decomposed.
func normalizeItemName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// validateSemantics checks rules that struct tags cannot express.
// All failures are collected into one ValidationError.
func validateSemantics(config *SurveyConfig) error {
	verr := domain.NewValidationError("survey")

	seen := make(map[string]int, len(config.Items))
	for i, item := range config.Items {
		if prev, dup := seen[item]; dup {
			verr.AddError(fmt.Sprintf("item %q at index %d duplicates index %d", item, i, prev))
			continue
		}
		seen[item] = i
	}

	rl := config.Server.RateLimit
	if rl.RequestsPerSecond > 0 && rl.Burst == 0 {
		verr.AddError("server.rate_limit.burst must be positive when requests_per_second is set")
	}

	if verr.HasErrors() {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, verr)
	}
	return nil
}
