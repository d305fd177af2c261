package shared

import (
	"io"
	"os"
	"regexp"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const redacted = "[REDACTED]"

var sensitiveKeys = []string{"client_secret", "access_token", "refresh_token", "code_verifier"}

var redactPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(sensitiveKeys)+1)
	for _, key := range sensitiveKeys {
		patterns = append(patterns, regexp.MustCompile(`(['"]?`+key+`['"]?\s*[:=]\s*['"]?)([^,'"&\s]+)`))
	}
	patterns = append(patterns, regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`))
	return patterns
}()

// Redact replaces the values of credential-like keys and bearer tokens in s.
func Redact(s string) string {
	for _, re := range redactPatterns {
		s = re.ReplaceAllString(s, "${1}"+redacted)
	}
	return s
}

// RedactingWriter scrubs credentials from every write before passing it on.
//
// [log.Logger] emits one write per entry, so patterns never straddle writes.
type RedactingWriter struct {
	w io.Writer
}

// NewRedactingWriter wraps w.
func NewRedactingWriter(w io.Writer) *RedactingWriter {
	return &RedactingWriter{w: w}
}

func (r *RedactingWriter) Write(p []byte) (int, error) {
	if _, err := r.w.Write([]byte(Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// LogOptions configures [SetupLogging].
type LogOptions struct {
	Level      string    // debug, info, warn, error
	File       string    // rotating log file; empty disables file output
	MaxSizeMB  int       // rotate after this many megabytes
	MaxBackups int       // rotated files to keep
	Console    io.Writer // defaults to [os.Stderr]
}

// SetupLogging builds the application logger: console output teed into a rotating
// [lumberjack.Logger] file, both behind a [RedactingWriter].
//
// The returned closer releases the log file and is never nil.
func SetupLogging(opts LogOptions) (*log.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var out io.Writer = console
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if opts.MaxSizeMB <= 0 {
			opts.MaxSizeMB = 10
		}
		if opts.MaxBackups <= 0 {
			opts.MaxBackups = 5
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	logger := NewLogger(NewRedactingWriter(out))
	SetLogLevel(logger, ParseLogLevel(opts.Level))
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
