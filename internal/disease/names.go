// Package disease decides which disease type an image classification maps to
// and formats disease type names for display.
package disease

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/plantcare-go/plantcare/internal/errors"
)

// UnknownDiseaseName is the reserved type assigned to low-confidence results.
const UnknownDiseaseName = "Unknown Disease"

// nameSeparator splits a raw type name into species and condition.
const nameSeparator = "___"

// ErrInvalidImageFormat is returned for uploads that are not JPEG or PNG.
var ErrInvalidImageFormat = errors.NewStd("invalid file format")

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// FormatName renders "Species___Condition_Name" as "Species - Condition Name".
// Names without the separator are returned unchanged.
func FormatName(raw string) string {
	parts := strings.Split(raw, nameSeparator)
	if len(parts) < 2 {
		return raw
	}
	return parts[0] + " - " + strings.ReplaceAll(parts[1], "_", " ")
}

// speciesOf returns the species prefix of a raw type name.
func speciesOf(raw string) (string, bool) {
	species, _, ok := strings.Cut(raw, nameSeparator)
	return species, ok
}

var nonWordOrSpace = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)

// NormalizeName strips punctuation, trims and title-cases a user supplied
// plant or species name.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	clean := strings.TrimSpace(nonWordOrSpace.ReplaceAllString(name, ""))
	// Casers carry state and must not be shared across goroutines.
	return cases.Title(language.Und).String(clean)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// ValidateImageFormat accepts .jpg, .jpeg and .png file names in any case.
func ValidateImageFormat(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedImageExtensions[ext]; ok && strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) != "" {
		return nil
	}
	return errors.New(ErrInvalidImageFormat).
		Component("disease").
		Category(errors.CategoryValidation).
		Context("extension", ext).
		Build()
}
