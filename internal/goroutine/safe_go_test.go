package goroutine

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newBufferLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, buf
}

func TestRecoveryHandler_Run(t *testing.T) {
	l, buf := newBufferLogger()
	rh := NewRecoveryHandler(l)

	assert.NotPanics(t, func() {
		rh.Run("sweep", func() { panic("boom") })
	})
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), `"task":"sweep"`)
}

func TestRecoveryHandler_SafeGo(t *testing.T) {
	l, _ := newBufferLogger()
	rh := NewRecoveryHandler(l)

	done := make(chan struct{})
	rh.SafeGo(func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("горутина не завершилась")
	}
}

func TestSafeGoWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)

	SafeGoWithContext(ctx, func(ctx context.Context) {
		<-ctx.Done()
		got <- ctx.Err()
	})
	cancel()

	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("горутина не получила отмену контекста")
	}
}
