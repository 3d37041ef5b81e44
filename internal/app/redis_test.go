package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestKeyNamespace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cmd  redis.Cmder
		want string
	}{
		{redis.NewStatusCmd(ctx, "set", "lock:payment:pay-1", "1"), "lock"},
		{redis.NewStringCmd(ctx, "get", "cache:fx:rates"), "cache"},
		{redis.NewStringCmd(ctx, "get", "plainkey"), "plainkey"},
		{redis.NewStatusCmd(ctx, "ping"), "redis"},
	}

	for _, tt := range tests {
		if got := keyNamespace(tt.cmd); got != tt.want {
			t.Errorf("keyNamespace(%v) = %q, want %q", tt.cmd.Args(), got, tt.want)
		}
	}
}
