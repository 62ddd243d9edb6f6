package provider_test

import (
	"bytes"
	"io"
	"net/http"
)

type capture struct {
	method string
	url    string
	header http.Header
	body   []byte
}

// fakeTransport answers every request with a canned response and records the
// last request it saw.
type fakeTransport struct {
	respStatus int
	respBody   []byte
	captured   *capture
	calls      int
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if f.captured != nil {
		f.captured.method = req.Method
		f.captured.url = req.URL.String()
		f.captured.header = req.Header.Clone()
		f.captured.body = b
	}
	resp := &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func httpClient(rt http.RoundTripper) *http.Client { return &http.Client{Transport: rt} }
