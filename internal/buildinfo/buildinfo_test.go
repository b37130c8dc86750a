package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextGetters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ctx     *Context
		version string
		date    string
		commit  string
	}{
		{"nil context", nil, UnknownValue, UnknownValue, UnknownValue},
		{"empty values", NewContext("", "", ""), UnknownValue, UnknownValue, UnknownValue},
		{"populated", NewContext("1.2.0", "2026-01-01", "abc1234"), "1.2.0", "2026-01-01", "abc1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.date, tt.ctx.GetBuildDate())
			assert.Equal(t, tt.commit, tt.ctx.GetCommit())
		})
	}
}

func TestRelease(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plantcare@1.2.0", NewContext("1.2.0", "", "").Release())
	assert.Equal(t, "plantcare@unknown", (*Context)(nil).Release())
}

func TestCurrentIsStable(t *testing.T) {
	t.Parallel()

	first := Current()
	assert.Same(t, first, Current())
	assert.NotEmpty(t, first.GoVersion)
}
