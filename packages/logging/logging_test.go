package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		verbosity int
		wantInfo  bool
		wantDebug bool
	}{
		{verbosity: 0},
		{verbosity: 1, wantInfo: true},
		{verbosity: 2, wantInfo: true, wantDebug: true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		l := New(&buf, tt.verbosity)
		l.Debug("debug-line")
		l.Info("info-line")
		l.Warn("warn-line")

		out := buf.String()
		assert.Contains(t, out, "warn-line")
		assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info-line")))
		assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug-line")))
	}
}

func TestContextLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	var buf bytes.Buffer
	l := New(&buf, 1)
	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), "hello")
}
