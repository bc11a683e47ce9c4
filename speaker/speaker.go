// Package speaker infers real names and roles for diarized speaker labels.
//
// The Identifier builds a labeled excerpt of the meeting, adds the meeting
// title and known participants, and asks a primary language model for one
// entry per label. When the primary call fails the fallback model is asked
// the same question. Identification is an enrichment: when neither model is
// usable it is skipped and the raw labels remain.
package speaker

import (
	"context"
	"strings"

	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/transcription"
	"github.com/kbukum/meetscribe/util"
)

const (
	// HeadExcerpt is the number of leading transcript characters sent.
	HeadExcerpt = 3000
	// SampleAfterSegments is the segment count above which middle and end
	// samples are added.
	SampleAfterSegments = 20

	sampleSegments = 10
	sampleChars    = 1000
)

const systemPrompt = `You identify the people speaking in a meeting transcript.
Speakers are labeled generically ("Speaker A", "Speaker B", ...). Use
introductions, people addressing each other by name, the known participant
list and the meeting title to infer each speaker's name and role. Only use a
name when the transcript supports it; otherwise answer "Unknown" with low
confidence.

Return {"speakers":[{"speakerId":"Speaker A","inferredName":"...","confidence":0.0-1.0,"evidence":"short quote","role":"optional role"}]}
with exactly one entry per speaker label.`

// Input is what identification needs from the pipeline.
type Input struct {
	Segments     []transcription.Segment
	MeetingTitle string
	Participants []string
}

// Result is the outcome of one identification run.
type Result struct {
	Speakers  []transcription.InferredSpeaker
	Model     string
	CostCents int
}

// Identifier infers speaker identities with a primary and fallback model.
type Identifier struct {
	primary  llm.Client
	fallback llm.Client
	log      *logger.Logger
}

// New creates an identifier. Either client may be nil.
func New(primary, fallback llm.Client) *Identifier {
	return &Identifier{primary: primary, fallback: fallback, log: logger.Get("speaker")}
}

// Identify returns nil without calling a model unless the segments carry
// more than one distinct speaker label. When every model call fails the
// result has no speakers but still carries the cost spent.
func (i *Identifier) Identify(ctx context.Context, in Input) *Result {
	labels := transcription.UniqueSpeakers(in.Segments)
	if len(labels) < 2 {
		return nil
	}
	log := i.log.WithContext(ctx)
	user := BuildContext(in, labels)

	res := &Result{}
	for _, client := range []llm.Client{i.primary, i.fallback} {
		if client == nil || !client.IsAvailable(ctx) {
			continue
		}
		resp, err := llm.Complete(ctx, client, systemPrompt, user)
		res.CostCents += resp.CostCents
		if err != nil {
			log.Warn("speaker identification call failed", logger.Fields(
				logger.FieldModel, client.Name(), logger.FieldError, err.Error()))
			continue
		}
		res.Model = resp.Model
		speakers, perr := Parse(resp.Content, labels)
		if perr != nil {
			log.Warn("speaker identification answer unusable", logger.ErrorFields("parse_speakers", perr))
			speakers = unknownFor(labels)
		}
		res.Speakers = speakers
		log.Debug("speakers identified", logger.Fields(
			"speakers", len(speakers), logger.FieldCost, res.CostCents))
		return res
	}
	if res.CostCents == 0 {
		return nil
	}
	return res
}

// BuildContext renders the prompt: title, participants, the labels to
// identify and a labeled excerpt of the transcript.
func BuildContext(in Input, labels []string) string {
	var b strings.Builder
	if t := strings.TrimSpace(in.MeetingTitle); t != "" {
		b.WriteString("Meeting title: " + t + "\n")
	}
	if len(in.Participants) > 0 {
		b.WriteString("Known participants: " + strings.Join(in.Participants, ", ") + "\n")
	}
	b.WriteString("Speaker labels: " + strings.Join(labels, ", ") + "\n\n")
	b.WriteString("Transcript (beginning):\n")
	b.WriteString(util.Truncate(transcription.Labeled(in.Segments), HeadExcerpt))

	if n := len(in.Segments); n > SampleAfterSegments {
		mid := n/2 - sampleSegments/2
		b.WriteString("\n\nTranscript (middle):\n")
		b.WriteString(util.Truncate(transcription.Labeled(in.Segments[mid:mid+sampleSegments]), sampleChars))
		b.WriteString("\n\nTranscript (end):\n")
		end := transcription.Labeled(in.Segments[n-sampleSegments:])
		if r := []rune(end); len(r) > sampleChars {
			end = string(r[len(r)-sampleChars:])
		}
		b.WriteString(end)
	}
	return b.String()
}

// NameFor returns the inferred name for label, or transcription.Unknown.
func NameFor(speakers []transcription.InferredSpeaker, label string) string {
	for _, s := range speakers {
		if s.SpeakerID == label && s.Name != "" {
			return s.Name
		}
	}
	return transcription.Unknown
}

func unknownFor(labels []string) []transcription.InferredSpeaker {
	out := make([]transcription.InferredSpeaker, 0, len(labels))
	for _, l := range labels {
		out = append(out, transcription.InferredSpeaker{SpeakerID: l, Name: transcription.Unknown})
	}
	return out
}
