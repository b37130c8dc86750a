package disease

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"Apple___Black_rot", "Apple - Black rot"},
		{"Tomato___Tomato_Yellow_Leaf_Curl_Virus", "Tomato - Tomato Yellow Leaf Curl Virus"},
		{"Corn_(maize)___Common_rust_", "Corn_(maize) - Common rust "},
		{"Unknown Disease", "Unknown Disease"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatName(tt.raw))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  cherry tomato!! ", "Cherry Tomato"},
		{"ALOE-VERA", "Aloevera"},
		{"basil", "Basil"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestCapitalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Apple", Capitalize("aPPLE"))
	assert.Equal(t, "Corn_(maize)", Capitalize("corn_(MAIZE)"))
	assert.Equal(t, "", Capitalize(""))
}

func TestValidateImageFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		valid    bool
	}{
		{"leaf.jpg", true},
		{"leaf.JPEG", true},
		{"scan.Png", true},
		{"notes.txt", false},
		{"archive.png.zip", false},
		{"noextension", false},
		{".png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()
			err := ValidateImageFormat(tt.filename)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidImageFormat)
		})
	}
}
