package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func Test_FromContext(t *testing.T) {
	t.Run("returns the logger stored in the context", func(t *testing.T) {
		stored := zap.NewNop().Sugar()
		ctx := AddToContext(context.Background(), stored)
		require.Same(t, stored, FromContext(ctx))
	})

	t.Run("falls back to a fresh logger", func(t *testing.T) {
		require.NotNil(t, FromContext(context.Background()))
	})
}
