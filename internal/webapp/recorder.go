package webapp

import (
	"bytes"
	"io"
	"net/http"
)

// recorder captures a handler's output as a complete *http.Response.
// It is the in-process stand-in for a network connection: the bridges
// consume the response object, not a live writer.
type recorder struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{status: http.StatusOK, header: make(http.Header)}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) Write(p []byte) (int, error) { return r.body.Write(p) }

func (r *recorder) WriteHeader(status int) { r.status = status }

func (r *recorder) response(req *http.Request) *http.Response {
	body := r.body.Bytes()
	return &http.Response{
		StatusCode:    r.status,
		Status:        http.StatusText(r.status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        r.header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
