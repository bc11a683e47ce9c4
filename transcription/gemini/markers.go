package gemini

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kbukum/meetscribe/transcription"
)

const tsPattern = `(\d{1,2}:\d{2}(?::\d{2})?)`

// markerPatterns are tried in order; the first match on a line wins.
var markerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[Speaker\s+([A-Z]),?\s*` + tsPattern + `\]`),
	regexp.MustCompile(`\*\*Speaker\s+([A-Z])\s*\(` + tsPattern + `\):\*\*`),
	regexp.MustCompile(`Speaker\s+([A-Z])\s*\(` + tsPattern + `\):`),
	regexp.MustCompile(`\[Speaker\s+([A-Z])\]`),
	regexp.MustCompile(`\*\*Speaker\s+([A-Z]):\*\*`),
	regexp.MustCompile(`Speaker\s+([A-Z]):`),
}

// ParseMarkers rebuilds speaker segments from speaker markers in the model
// output. Lines without a marker continue the current segment. Text before
// the first marker becomes an unlabeled segment. Each segment ends where the
// next one starts and the last ends at duration. It returns nil when the text
// has no markers at all.
func ParseMarkers(text string, duration float64) []transcription.Segment {
	var (
		segs   []transcription.Segment
		cur    *transcription.Segment
		buf    []string
		found  bool
		lastTS float64
	)
	flush := func() {
		if cur != nil && len(buf) > 0 {
			cur.Text = strings.Join(buf, " ")
			segs = append(segs, *cur)
		}
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		speaker, start, rest, ok := matchMarker(line)
		if !ok {
			if cur == nil {
				cur = &transcription.Segment{}
			}
			buf = append(buf, line)
			continue
		}
		found = true
		flush()
		if start < 0 {
			start = lastTS
		}
		lastTS = start
		cur = &transcription.Segment{Speaker: speaker, Start: start}
		if rest != "" {
			buf = append(buf, rest)
		}
	}
	flush()

	if !found {
		return nil
	}

	segs = transcription.MergeConsecutive(segs)
	for i := range segs {
		switch {
		case i+1 < len(segs):
			segs[i].End = segs[i+1].Start
		case duration > segs[i].Start:
			segs[i].End = duration
		default:
			segs[i].End = segs[i].Start
		}
	}
	return segs
}

// matchMarker strips the first recognized marker from line. start is -1 when
// the marker carries no timestamp.
func matchMarker(line string) (speaker string, start float64, rest string, ok bool) {
	for _, re := range markerPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		start = -1
		if len(m) > 2 {
			if ts, valid := parseTimestamp(m[2]); valid {
				start = ts
			}
		}
		rest = strings.TrimSpace(re.ReplaceAllString(line, ""))
		return "Speaker " + m[1], start, rest, true
	}
	return "", 0, "", false
}

// parseTimestamp accepts M:SS and H:MM:SS.
func parseTimestamp(ts string) (float64, bool) {
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, false
		}
		total = total*60 + n
	}
	return float64(total), true
}
