package adns

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigWithDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, 1, c.NDots)
	assert.Equal(t, 15, c.UDPRetries)
	assert.Equal(t, 2000000000, int(c.UDPRetryInterval))
	assert.NotNil(t, c.Logger)
}

func TestConfigWithDefaultsPreservesSetFields(t *testing.T) {
	c := Config{NDots: 3, UDPRetries: 5}.withDefaults()
	assert.Equal(t, 3, c.NDots)
	assert.Equal(t, 5, c.UDPRetries)
}

func TestConfigWithDefaultsGatesLoggingByInitFlags(t *testing.T) {
	ctx := context.Background()

	plain := Config{}.withDefaults()
	assert.False(t, plain.Logger.Enabled(ctx, slog.LevelDebug), "debug off unless InitDebug is set")
	assert.True(t, plain.Logger.Enabled(ctx, slog.LevelWarn))

	debug := Config{Flags: InitDebug}.withDefaults()
	assert.True(t, debug.Logger.Enabled(ctx, slog.LevelDebug))

	quiet := Config{Flags: InitNoErrPrint | InitNoServerWarn}.withDefaults()
	assert.False(t, quiet.Logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, quiet.Logger.Enabled(ctx, slog.LevelWarn))
	assert.True(t, quiet.Logger.Enabled(ctx, slog.LevelError))
}
