package transcription

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/httpclient"
)

// ClassifyError maps a transport failure of backend onto the error taxonomy.
// AppErrors pass through unchanged.
func ClassifyError(backend string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := goerrors.AsAppError(err); ok {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || httpclient.IsTimeout(err) {
		return goerrors.Timeout(backend + " request").WithCause(err)
	}

	var httpErr *httpclient.Error
	if errors.As(err, &httpErr) && httpErr.StatusCode > 0 {
		if httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden {
			return goerrors.InvalidCredentials(backend).WithCause(err)
		}
		return goerrors.BackendError(httpErr.StatusCode, httpErr.Message).WithCause(err)
	}
	if httpclient.IsConnection(err) {
		return goerrors.NetworkError(err)
	}
	return goerrors.TranscriptionFailed(err.Error()).WithCause(err)
}
