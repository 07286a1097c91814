package chatlog

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestAppend_WritesTranscriptLine(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	l.Append("12345", "user", "Hello there")
	l.Flush()

	data, err := os.ReadFile(filepath.Join(dir, "chat_12345.txt"))
	if err != nil {
		t.Fatalf("transcript file: %v", err)
	}

	line := strings.TrimRight(string(data), "\n")
	pattern := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z\] USER: Hello there$`)
	if !pattern.MatchString(line) {
		t.Errorf("transcript line: %q", line)
	}
}

func TestAppend_AccumulatesInOrderPerChat(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	l.Append("1", "user", "first")
	l.Flush()
	l.Append("1", "assistant", "second")
	l.Append("2", "user", "other chat")
	l.Flush()

	data, err := os.ReadFile(filepath.Join(dir, "chat_1.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines in chat_1: %d", len(lines))
	}
	if !strings.Contains(lines[0], "USER: first") || !strings.Contains(lines[1], "ASSISTANT: second") {
		t.Errorf("lines: %q", lines)
	}

	if _, err := os.Stat(filepath.Join(dir, "chat_2.txt")); err != nil {
		t.Errorf("chat_2 transcript: %v", err)
	}
}

func TestAppend_SanitizesChatID(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	l.Append("cli:local/../x", "user", "hi")
	l.Flush()

	if _, err := os.Stat(filepath.Join(dir, "chat_cli_local____x.txt")); err != nil {
		t.Errorf("sanitized transcript: %v", err)
	}
}

func TestAppend_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "deep")
	l := New(dir)

	l.Append("1", "user", "hi")
	l.Flush()

	if _, err := os.Stat(filepath.Join(dir, "chat_1.txt")); err != nil {
		t.Errorf("transcript in created dir: %v", err)
	}
}
