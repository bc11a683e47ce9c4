package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/meetscribe/calllog"
	apperrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/provider"
	"github.com/kbukum/meetscribe/transcription"
	"github.com/kbukum/meetscribe/version"
)

const (
	defaultCallLimit = 50
	maxCallLimit     = 500
)

// Transcriber runs the pipeline.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error)
}

// API holds the route handlers and their dependencies.
type API struct {
	Transcriber Transcriber
	Registry    *transcription.Registry
	// Calls is optional; without it /v1/calls answers 503.
	Calls calllog.Lister
	// Checks are reported by /health.
	Checks    []provider.Provider
	UploadDir string
	Logger    *logger.Logger
}

// BackendStatus is one row of GET /v1/backends.
type BackendStatus struct {
	transcription.Descriptor
	Configured bool `json:"configured"`
}

// transcribeForm mirrors transcription.Options as multipart form fields.
type transcribeForm struct {
	Backend           string   `form:"backend"`
	Model             string   `form:"model"`
	Language          string   `form:"language"`
	Diarize           bool     `form:"diarize"`
	AutoCompress      *bool    `form:"auto_compress"`
	CropSilence       bool     `form:"crop_silence"`
	MinSilenceSeconds float64  `form:"min_silence_seconds"`
	GenerateTitle     bool     `form:"generate_title"`
	ValidateQuality   bool     `form:"validate_quality"`
	IdentifySpeakers  bool     `form:"identify_speakers"`
	MeetingTitle      string   `form:"meeting_title"`
	Participants      []string `form:"participants"`
}

func (f transcribeForm) options() transcription.Options {
	autoCompress := true
	if f.AutoCompress != nil {
		autoCompress = *f.AutoCompress
	}
	return transcription.Options{
		Backend:           f.Backend,
		Model:             f.Model,
		Language:          f.Language,
		Diarize:           f.Diarize,
		AutoCompress:      autoCompress,
		CropSilence:       f.CropSilence,
		MinSilenceSeconds: f.MinSilenceSeconds,
		GenerateTitle:     f.GenerateTitle,
		ValidateQuality:   f.ValidateQuality,
		IdentifySpeakers:  f.IdentifySpeakers,
		MeetingTitle:      f.MeetingTitle,
		Participants:      f.Participants,
	}
}

// Register mounts the routes on engine.
func (a *API) Register(engine *gin.Engine) {
	engine.GET("/health", a.health)
	v1 := engine.Group("/v1")
	v1.POST("/transcriptions", a.transcribe)
	v1.GET("/backends", a.backends)
	v1.GET("/calls", a.calls)
}

func (a *API) log() *logger.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return logger.Get("server")
}

func (a *API) transcribe(c *gin.Context) {
	var form transcribeForm
	if err := c.ShouldBind(&form); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			RespondWithError(c, apperrors.New(apperrors.ErrCodeFileTooLarge,
				"Upload exceeds the server limit.", http.StatusRequestEntityTooLarge).
				WithDetail("limit_bytes", tooBig.Limit))
			return
		}
		RespondWithError(c, apperrors.Validation("invalid form: "+err.Error()))
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		RespondWithError(c, apperrors.Validation("multipart field \"file\" is required"))
		return
	}

	dir, err := os.MkdirTemp(a.UploadDir, "meetscribe-upload-*")
	if err != nil {
		RespondWithError(c, apperrors.Internal(err))
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			a.log().WithContext(c.Request.Context()).Warn("upload cleanup failed", logger.ErrorFields("cleanup", err))
		}
	}()

	path := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		RespondWithError(c, apperrors.Internal(err))
		return
	}

	res, err := a.Transcriber.Transcribe(c.Request.Context(), transcription.Request{
		AudioPath: path,
		Options:   form.options(),
	})
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, res)
}

func (a *API) backends(c *gin.Context) {
	if a.Registry == nil {
		RespondOK(c, []BackendStatus{})
		return
	}
	descs := a.Registry.Descriptors()
	out := make([]BackendStatus, 0, len(descs))
	for _, d := range descs {
		b, ok := a.Registry.Get(d.ID)
		out = append(out, BackendStatus{
			Descriptor: d,
			Configured: ok && b.IsAvailable(c.Request.Context()),
		})
	}
	RespondOK(c, out)
}

func (a *API) calls(c *gin.Context) {
	if a.Calls == nil {
		RespondWithError(c, apperrors.ServiceUnavailable("call log"))
		return
	}
	limit := defaultCallLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondWithError(c, apperrors.Validation("limit must be a positive integer"))
			return
		}
		limit = min(n, maxCallLimit)
	}
	entries, err := a.Calls.List(c.Request.Context(), limit)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOKWithMeta(c, entries, &Meta{Count: len(entries), Limit: limit})
}

func (a *API) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string, len(a.Checks))
	for _, p := range a.Checks {
		if p.IsAvailable(ctx) {
			checks[p.Name()] = "up"
			continue
		}
		checks[p.Name()] = "down"
		status = "degraded"
	}
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "version": version.Get().String(), "checks": checks})
}
