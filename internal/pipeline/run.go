package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// shortToken returns an 8-character random hex token for folder names and
// synthesized filenames.
func shortToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// runFolder builds the run's unique folder token, e.g.
// "pdf_20250114_153000_a1b2c3d4". The timestamp keeps folders human-readable;
// the random suffix keeps concurrent runs apart.
func runFolder(prefix string, now time.Time) (folder, timestamp string) {
	timestamp = now.Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, shortToken()), timestamp
}
