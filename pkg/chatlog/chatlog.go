// Package chatlog appends per-chat transcript lines to flat files, one
// file per chat. Writes are fire-and-forget: a failed write is logged and
// never blocks or fails the message flow.
package chatlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tinyland-inc/tinyrelay/pkg/logger"
)

type Logger struct {
	dir string
	wg  sync.WaitGroup
}

func New(dir string) *Logger {
	return &Logger{dir: dir}
}

// Append writes one transcript line for chatID in the background.
func (l *Logger) Append(chatID, role, content string) {
	line := fmt.Sprintf("[%s] %s: %s\n",
		time.Now().UTC().Format(time.RFC3339),
		strings.ToUpper(role),
		content,
	)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.write(chatID, line); err != nil {
			logger.ErrorCF("chatlog", "Error writing to log", map[string]any{
				"chat_id": chatID,
				"error":   err.Error(),
			})
		}
	}()
}

// Flush waits for in-flight writes. Called on shutdown and by tests.
func (l *Logger) Flush() {
	l.wg.Wait()
}

func (l *Logger) write(chatID, line string) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(l.dir, fmt.Sprintf("chat_%s.txt", sanitize(chatID)))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line)
	return err
}

// sanitize keeps chat ids filesystem-safe (cli session keys contain ':').
func sanitize(chatID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, chatID)
}
