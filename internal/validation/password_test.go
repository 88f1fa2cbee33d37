package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"Signup Fixture", "SecurePass12!@", ""},
		{"Twelve Characters", "Yatube-2024x", ""},
		{"At Max Length", "Y" + strings.Repeat("a", 125) + "7?", ""},
		{"Non ASCII Letters", "ÉcrivainPost9#", ""},
		{"Seed Demo Password", "yatube-demo-123", "uppercase"},
		{"Eleven Characters", "Yatube-2024", "at least 12"},
		{"Over Max Length", "Y" + strings.Repeat("a", 126) + "7?", "128"},
		{"All Lower", "bloggerpost7!", "uppercase"},
		{"All Upper", "BLOGGERPOST7!", "lowercase"},
		{"No Digit", "BloggerPost!!", "digit"},
		{"No Special", "BloggerPost77", "special"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  string
	}{
		{"Plain", "leo", ""},
		{"Inner Separators", "leo_tolstoy-1828", ""},
		{"At Max Length", strings.Repeat("a", 30), ""},
		{"Two Characters", "lt", "at least 3"},
		{"Over Max Length", strings.Repeat("a", 31), "30"},
		{"Space", "no spaces", "only contain"},
		{"At Sign", "leo@home", "only contain"},
		{"Slash Breaks Profile URL", "leo/posts", "only contain"},
		{"Leading Hyphen", "-leo", "start or end"},
		{"Trailing Underscore", "leo_", "start or end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	// 64 local + "@" + 185 label + ".com" = 254
	longest := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Plain", "leo@example.com", false},
		{"Plus Tag And Subdomain", "leo+yatube@mail.example.org", false},
		{"At Max Length", longest, false},
		{"Over Max Length", "a" + longest, true},
		{"No At", "leo.example.com", true},
		{"No Domain", "leo@", true},
		{"Double At", "leo@@example.com", true},
		{"Single Letter TLD", "leo@example.c", true},
		{"Trailing Dot", "leo@example.com.", true},
		{"Space", "leo tolstoy@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
