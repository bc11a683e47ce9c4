package transcription

import (
	"strconv"
	"strings"

	"github.com/kbukum/meetscribe/util"
)

// Unknown is the name used when a speaker could not be identified.
const Unknown = "Unknown"

// SpeakerLabel returns the label for the i-th speaker: "Speaker A" for 0,
// "Speaker B" for 1, and numeric labels past Z.
func SpeakerLabel(i int) string {
	if i >= 0 && i < 26 {
		return "Speaker " + string(rune('A'+i))
	}
	return "Speaker " + strconv.Itoa(i+1)
}

// UniqueSpeakers returns the distinct non-empty speaker labels in order of
// first appearance.
func UniqueSpeakers(segs []Segment) []string {
	labels := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Speaker != "" {
			labels = append(labels, s.Speaker)
		}
	}
	return util.Unique(labels)
}

// HasSpeakerLabels reports whether any segment is labeled.
func HasSpeakerLabels(segs []Segment) bool {
	for _, s := range segs {
		if s.Speaker != "" {
			return true
		}
	}
	return false
}

// MergeConsecutive joins adjacent segments with the same speaker. The merged
// segment keeps the first start and the last end.
func MergeConsecutive(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if n := len(out); n > 0 && out[n-1].Speaker == s.Speaker {
			last := &out[n-1]
			last.Text = strings.TrimSpace(last.Text + " " + s.Text)
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// Labeled renders segments as "Speaker A: text" lines.
func Labeled(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if s.Speaker != "" {
			b.WriteString(s.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(s.Text)
	}
	return b.String()
}
