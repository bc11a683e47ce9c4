package process

import "time"

// DefaultStderrLimit caps the stderr kept per run. ffmpeg can write progress
// lines for the whole length of a recording.
const DefaultStderrLimit = 64 << 10

// Command is one invocation of an external tool.
type Command struct {
	// Binary is the executable path or a name resolved via PATH.
	Binary string
	Args   []string
	// GracePeriod is the wait between SIGTERM and SIGKILL on cancellation.
	// Defaults to 5 seconds.
	GracePeriod time.Duration
	// StderrLimit is how many trailing stderr bytes to keep. Zero means
	// DefaultStderrLimit.
	StderrLimit int
}
