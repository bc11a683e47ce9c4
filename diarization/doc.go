// Package diarization attributes an unlabeled transcript to speakers.
//
// Backends without native speaker separation return plain text. A Provider
// turns that text into labeled, time-estimated segments. The Normalizer
// implementation asks a language model to split the transcript by speaker
// turns.
//
// # Usage
//
//	n := diarization.NewNormalizer(llmClient)
//	resp, err := n.Diarize(ctx, diarization.Request{Transcript: text, Duration: 1800})
package diarization
