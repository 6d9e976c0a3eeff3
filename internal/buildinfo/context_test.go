package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{name: "nil context", ctx: nil, want: UnknownValue},
		{name: "empty version", ctx: &Context{}, want: UnknownValue},
		{name: "tagged build", ctx: &Context{Version: "v1.2.0"}, want: "v1.2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.GetVersion())
		})
	}
}

func TestContext_StringAndRelease(t *testing.T) {
	t.Parallel()
	c := &Context{Version: "v1.2.0", BuildDate: "2024-05-01T10:00:00Z"}

	assert.Equal(t, "gallery-migrate v1.2.0 (built 2024-05-01T10:00:00Z)", c.String())
	assert.Equal(t, "gallery-migrate@v1.2.0", c.Release())
	assert.Equal(t, UnknownValue, (&Context{}).GetBuildDate())
}
