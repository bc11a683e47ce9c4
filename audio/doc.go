// Package audio prepares recordings for dispatch: optional silence cropping
// and a single size-driven compression pass, both through ffmpeg.
//
//	pre := audio.New(audio.NewFFmpeg(audio.FFmpegConfig{}, nil), audio.Config{})
//	out, err := pre.Prepare(ctx, path, backend.Descriptor(), opts)
//	defer out.Cleanup()
package audio
