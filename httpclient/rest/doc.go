// Package rest is a JSON convenience layer over httpclient with typed
// request helpers:
//
//	resp, err := rest.Post[transcriptJob](ctx, client, "/v2/transcript", body)
package rest
