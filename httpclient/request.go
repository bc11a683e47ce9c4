package httpclient

import (
	"fmt"
	"io"
	"os"
)

// Request describes an outbound HTTP request.
type Request struct {
	Method string
	// Path is appended to the client's BaseURL, or used as is when absolute.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body accepts *FileBody, io.Reader, []byte, string, or any value that
	// is JSON-encoded. Only *FileBody, []byte, string and JSON bodies can be
	// replayed on retry.
	Body any
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
	// NoRetry sends the request once even when the client retries. Set it
	// for calls that are not idempotent.
	NoRetry bool
}

// Response is the result of an HTTP request.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// FileBody streams a file from disk as the request body. The file is opened
// per attempt so that retried uploads start from the beginning.
type FileBody struct {
	Path        string
	ContentType string
}

// File returns a request body that streams path.
func File(path, contentType string) *FileBody {
	return &FileBody{Path: path, ContentType: contentType}
}

func (f *FileBody) open() (io.ReadCloser, int64, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", f.Path, err)
	}
	info, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", f.Path, err)
	}
	return fh, info.Size(), nil
}
