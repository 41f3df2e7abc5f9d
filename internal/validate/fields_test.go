package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alt-project/flixctl/internal/domain"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		msg   string
	}{
		{"valid", "jane@example.com", true, ""},
		{"shortest valid", "a@b.c", true, ""},
		{"too short", "a@b", false, "Email must be at least 5 characters long."},
		{"too short and malformed reports length", "abcd", false, "Email must be at least 5 characters long."},
		{"too long", strings.Repeat("a", 250) + "@b.com", false, "Email cannot exceed 255 characters."},
		{"no at", "janeexample.com", false, "Invalid email format."},
		{"no dot after at", "jane@example", false, "Invalid email format."},
		{"whitespace", "jane doe@example.com", false, "Invalid email format."},
		{"two ats", "jane@@example.com", false, "Invalid email format."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Email(tt.input)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.msg, got.Message)
		})
	}
}

func TestEmail_BoundaryLengths(t *testing.T) {
	max := strings.Repeat("a", 249) + "@b.com"
	require.Len(t, max, 255)
	assert.True(t, Email(max).Valid)
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		msg   string
	}{
		{"valid", "Secr3t!pw", true, ""},
		{"too short beats classes", "aB1!", false, "Password must be at least 8 characters long."},
		{"too short beats whitespace", "a B", false, "Password must be at least 8 characters long."},
		{"missing upper", "secr3t!pw", false, "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character."},
		{"missing lower", "SECR3T!PW", false, "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character."},
		{"missing digit", "Secret!pw", false, "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character."},
		{"missing special", "Secr3tpwd", false, "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character."},
		{"classes beat whitespace", "secret pw", false, "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character."},
		{"whitespace", "Secr3t! pw", false, "Password cannot contain spaces."},
		{"tab", "Secr3t!\tpw", false, "Password cannot contain spaces."},
		{"hyphen is special", "Secr3t-pw", true, ""},
		{"backslash is special", `Secr3t\pw`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Password(tt.input)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.msg, got.Message)
		})
	}
}

func TestPasswordWithMin(t *testing.T) {
	assert.True(t, PasswordWithMin("aB1!", 4).Valid)
	assert.Equal(t, "Password must be at least 12 characters long.", PasswordWithMin("Secr3t!pw", 12).Message)
}

func TestFullName(t *testing.T) {
	assert.True(t, FullName("Jane Doe").Valid)
	assert.True(t, FullName("Agent 007").Valid)
	assert.Equal(t, "Full Name must be at least 5 characters long.", FullName("Jan").Message)
	assert.Equal(t, "Full Name cannot exceed 55 characters.", FullName(strings.Repeat("a", 56)).Message)
	assert.Equal(t, "Invalid full name format.", FullName("1Jane Doe").Message)
	assert.Equal(t, "Invalid full name format.", FullName("Jane-Doe").Message)
}

func TestYear(t *testing.T) {
	assert.True(t, Year("1999").Valid)
	assert.False(t, Year("99").Valid)
	assert.False(t, Year("19999").Valid)
	assert.Equal(t, "Invalid year format. Please enter a valid four-digit year.", Year("abcd").Message)
}

func TestTitle(t *testing.T) {
	assert.True(t, Title("Heat").Valid)
	assert.Equal(t, "Title must be at least 3 characters long.", Title("It").Message)
	assert.Equal(t, "Title cannot exceed 255 characters.", Title(strings.Repeat("x", 256)).Message)
}

func TestMovieYear(t *testing.T) {
	assert.True(t, MovieYear(1999).Valid)
	assert.True(t, MovieYear(1900).Valid)
	assert.True(t, MovieYear(2050).Valid)
	assert.Equal(t, "Year must be a four-digit number.", MovieYear(20500).Message)
	assert.Equal(t, "Year cannot exceed 2050.", MovieYear(2051).Message)
	assert.Equal(t, "Year cannot be less than 1900.", MovieYear(1899).Message)
}

func TestRuntime(t *testing.T) {
	assert.True(t, Runtime(120).Valid)
	assert.True(t, Runtime(50).Valid)
	assert.True(t, Runtime(400).Valid)
	assert.Equal(t, "Runtime cannot exceed 400.", Runtime(401).Message)
	assert.Equal(t, "Runtime cannot be less than 50.", Runtime(49).Message)
}

func TestImage(t *testing.T) {
	assert.Equal(t, "Please upload an image.", Image(nil).Message)
	assert.True(t, Image(&ImageFile{Name: "a.png", ContentType: "image/png"}).Valid)
	assert.True(t, Image(&ImageFile{Name: "a.jpg", ContentType: "image/jpeg"}).Valid)
	assert.Equal(t, "Please upload a valid image file in JPEG and PNG.", Image(&ImageFile{Name: "a.gif", ContentType: "image/gif"}).Message)
}

func TestStruct_MovieInput(t *testing.T) {
	err := Struct(domain.MovieInput{})
	require.Error(t, err)

	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "is required", fe["title"])
	assert.Equal(t, "is required", fe["image_id"])
	assert.Contains(t, err.Error(), "release_date")

	valid := domain.MovieInput{
		Title:       "Heat",
		Description: "A heist film",
		Runtime:     "170",
		ReleaseDate: "1995-12-15",
		Genres:      map[string]string{"3": "Action"},
		ImageID:     "9",
		Year:        "1995",
	}
	assert.NoError(t, Struct(valid))

	valid.ReleaseDate = "15/12/1995"
	err = Struct(valid)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "must match 2006-01-02", fe["release_date"])
}

func TestStruct_RatingInput(t *testing.T) {
	assert.NoError(t, Struct(domain.RatingInput{MovieID: 1, Rating: 10}))

	var fe FieldErrors
	require.ErrorAs(t, Struct(domain.RatingInput{MovieID: 1, Rating: 11}), &fe)
	assert.Equal(t, "must be at most 10", fe["rating"])
}
