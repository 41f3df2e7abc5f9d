// Package validate holds the field validators used by the CLI before any request is sent.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Result is the outcome of a field validation.
type Result struct {
	Valid   bool
	Message string
}

func ok() Result { return Result{Valid: true} }

func fail(format string, args ...any) Result {
	return Result{Valid: false, Message: fmt.Sprintf(format, args...)}
}

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	fullNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 ]*$`)
	yearPattern     = regexp.MustCompile(`^\d{4}$`)
)

// Email checks length 5..255 and then format.
func Email(email string) Result {
	return EmailWithBounds(email, 5, 255)
}

// EmailWithBounds is Email with explicit length bounds.
func EmailWithBounds(email string, minLength, maxLength int) Result {
	n := utf8.RuneCountInString(email)
	if n < minLength {
		return fail("Email must be at least %d characters long.", minLength)
	}
	if n > maxLength {
		return fail("Email cannot exceed %d characters.", maxLength)
	}
	if !emailPattern.MatchString(email) {
		return fail("Invalid email format.")
	}
	return ok()
}

// Password requires at least 8 characters.
func Password(password string) Result {
	return PasswordWithMin(password, 8)
}

// PasswordWithMin checks, in order: minimum length, the four character classes, and whitespace.
// Characters outside every class are neither counted nor rejected.
func PasswordWithMin(password string, minLength int) Result {
	var hasUpper, hasLower, hasNumber, hasSpecial, hasSpace bool

	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case isSpecial(r):
			hasSpecial = true
		case unicode.IsSpace(r):
			hasSpace = true
		}
	}

	if utf8.RuneCountInString(password) < minLength {
		return fail("Password must be at least %d characters long.", minLength)
	}
	if !(hasUpper && hasLower && hasNumber && hasSpecial) {
		return fail("Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character.")
	}
	if hasSpace {
		return fail("Password cannot contain spaces.")
	}
	return ok()
}

const specialChars = `!@#$%^&*()_+{}[]:;<>,.?~\-`

func isSpecial(r rune) bool {
	for _, c := range specialChars {
		if r == c {
			return true
		}
	}
	return false
}

// FullName checks length 5..55 and then that the name starts with a letter.
func FullName(name string) Result {
	return FullNameWithBounds(name, 5, 55)
}

// FullNameWithBounds is FullName with explicit length bounds.
func FullNameWithBounds(name string, minLength, maxLength int) Result {
	n := utf8.RuneCountInString(name)
	if n < minLength {
		return fail("Full Name must be at least %d characters long.", minLength)
	}
	if n > maxLength {
		return fail("Full Name cannot exceed %d characters.", maxLength)
	}
	if !fullNamePattern.MatchString(name) {
		return fail("Invalid full name format.")
	}
	return ok()
}

// Year checks a four-digit year string.
func Year(year string) Result {
	if !yearPattern.MatchString(year) {
		return fail("Invalid year format. Please enter a valid four-digit year.")
	}
	return ok()
}

// Title checks length 3..255.
func Title(title string) Result {
	return TitleWithBounds(title, 3, 255)
}

// TitleWithBounds is Title with explicit length bounds.
func TitleWithBounds(title string, minLength, maxLength int) Result {
	n := utf8.RuneCountInString(title)
	if n < minLength {
		return fail("Title must be at least %d characters long.", minLength)
	}
	if n > maxLength {
		return fail("Title cannot exceed %d characters.", maxLength)
	}
	return ok()
}

// MovieYear checks a release year between 1900 and 2050.
func MovieYear(year int) Result {
	return MovieYearWithBounds(year, 2050, 1900)
}

// MovieYearWithBounds checks digit count, then the upper bound, then the lower bound.
func MovieYearWithBounds(year, maxYear, minYear int) Result {
	if len(strconv.Itoa(year)) > 4 {
		return fail("Year must be a four-digit number.")
	}
	if year > maxYear {
		return fail("Year cannot exceed %d.", maxYear)
	}
	if year < minYear {
		return fail("Year cannot be less than %d.", minYear)
	}
	return ok()
}

// Runtime checks a runtime in minutes between 50 and 400.
func Runtime(runtime int) Result {
	return RuntimeWithBounds(runtime, 400, 50)
}

// RuntimeWithBounds checks the upper bound before the lower bound.
func RuntimeWithBounds(runtime, maxRuntime, minRuntime int) Result {
	if runtime > maxRuntime {
		return fail("Runtime cannot exceed %d.", maxRuntime)
	}
	if runtime < minRuntime {
		return fail("Runtime cannot be less than %d.", minRuntime)
	}
	return ok()
}

// ImageFile describes an image picked for upload.
type ImageFile struct {
	Name        string
	ContentType string
}

// Image requires a JPEG or PNG file.
func Image(img *ImageFile) Result {
	if img == nil {
		return fail("Please upload an image.")
	}
	if img.ContentType != "image/jpeg" && img.ContentType != "image/png" {
		return fail("Please upload a valid image file in JPEG and PNG.")
	}
	return ok()
}
