// Package httpclient is the outbound HTTP layer for every backend and model
// call. It resolves paths against a base URL, applies authentication, encodes
// request bodies (JSON values, raw bytes, or files re-opened on every attempt)
// and classifies failures into typed *Error values. Retry and circuit breaking
// come from the resilience package and are enabled per client.
//
//	client, _ := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.deepgram.com",
//	    Auth:    httpclient.TokenAuth("Token", key),
//	})
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/v1/listen",
//	    Body:   httpclient.File(path, "audio/mp4"),
//	})
package httpclient
