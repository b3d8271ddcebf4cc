// File: cmd/slidejig/main_test.go
package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/slidejig/cmd"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
	stdin = os.Stdin
	stdout = os.Stdout
	stderr = os.Stderr
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes the panic log and exits", func(t *testing.T) {
		var written string
		var exitCode int
		var errBuf bytes.Buffer
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = string(data)
			return nil
		}
		osExit = func(code int) { exitCode = code }
		stderr = &errBuf

		func() {
			defer handlePanic()
			panic("canvas vanished")
		}()

		assert.True(t, strings.HasPrefix(written, "panic: canvas vanished"))
		assert.Contains(t, written, "goroutine")
		assert.Equal(t, 2, exitCode)
		assert.Contains(t, errBuf.String(), panicLogFile)
	})

	t.Run("falls back to stderr when the log cannot be written", func(t *testing.T) {
		var exitCode int
		var errBuf bytes.Buffer
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
		osExit = func(code int) { exitCode = code }
		stderr = &errBuf

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, 2, exitCode)
		assert.Contains(t, errBuf.String(), "CRITICAL: Failed to write panic log: read-only fs")
		assert.Contains(t, errBuf.String(), "panic: boom")
	})

	t.Run("no panic is a no-op", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }
		func() {
			defer handlePanic()
		}()
		assert.False(t, called)
	})
}

func TestRunInteractive(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SLIDEJIG_LOGGER_LEVEL", "fatal")

	var out bytes.Buffer
	in := strings.NewReader("\n--version\nnot-a-command\nexit\nconfig\n")
	require.NoError(t, runInteractive(context.Background(), in, &out))

	got := out.String()
	assert.Contains(t, got, "slidejig "+cmd.Version)
	assert.Contains(t, got, cmd.Version+"\n")
	assert.Contains(t, got, "Error:")
	assert.Contains(t, got, "Exiting slidejig.")
	assert.NotContains(t, got, "challenge:", "lines after exit must not run")
}

func TestRunInteractive_EOF(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runInteractive(context.Background(), strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Exiting slidejig.")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestRunInteractive_ReadError(t *testing.T) {
	err := runInteractive(context.Background(), failingReader{}, io.Discard)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
