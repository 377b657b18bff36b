package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// runHandler redirects stdin/stdout around a single Handler call, calling
// Handler directly rather than spawning the binary as a subprocess.
func runHandler(t *testing.T, src string) (string, int) {
	t.Helper()

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	origStdin := os.Stdin
	os.Stdin = stdinR
	defer func() { os.Stdin = origStdin }()

	go func() {
		io.WriteString(stdinW, src)
		stdinW.Close()
	}()

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	origStdout := os.Stdout
	os.Stdout = stdoutW

	status := Handler(nil, nil)

	stdoutW.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	io.Copy(&buf, stdoutR)
	return buf.String(), status
}

func TestHandlerEmitsAssemblyForValidProgram(t *testing.T) {
	out, status := runHandler(t, "int main(){int a;a=42;a;}")
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	if !strings.Contains(out, ".global main") {
		t.Errorf("output missing .global main directive:\n%s", out)
	}
	if !strings.Contains(out, "main:") {
		t.Errorf("output missing main: label:\n%s", out)
	}
}

func TestHandlerExitsOneOnSyntaxError(t *testing.T) {
	_, status := runHandler(t, "int main(){int a")
	if status != 1 {
		t.Fatalf("status = %d, want 1", status)
	}
}

func TestHandlerExitsOneOnUndeclaredIdentifier(t *testing.T) {
	_, status := runHandler(t, "int main(){a;}")
	if status != 1 {
		t.Fatalf("status = %d, want 1", status)
	}
}
