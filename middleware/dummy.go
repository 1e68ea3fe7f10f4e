package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Event is one server-sent event of a fake stream.
// An empty Name omits the event line.
type Event struct {
	Name string
	Data any
}

// JSONResponse returns a fake 200 response carrying v as JSON.
func JSONResponse(req *http.Request, v any) (*http.Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return newResponse(req, "application/json", data), nil
}

// SSEResponse returns a fake 200 event stream. A string Data is written
// verbatim, anything else as JSON.
func SSEResponse(req *http.Request, events []Event) (*http.Response, error) {
	var buf bytes.Buffer
	for _, e := range events {
		if e.Name != "" {
			buf.WriteString("event: " + e.Name + "\n")
		}
		var data []byte
		switch v := e.Data.(type) {
		case string:
			data = []byte(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			data = b
		}
		buf.WriteString("data: ")
		buf.Write(data)
		buf.WriteString("\n\n")
	}
	return newResponse(req, "text/event-stream", buf.Bytes()), nil
}

func newResponse(req *http.Request, contentType string, body []byte) *http.Response {
	headers := make(http.Header)
	headers.Set("Content-Type", contentType)
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
		Header:        headers,
	}
}

// Chunks splits content into word sized pieces for fake streams.
func Chunks(content string) []string {
	if content == "" {
		return nil
	}
	var chunks []string
	words := strings.SplitAfter(content, " ")
	for _, w := range words {
		if w != "" {
			chunks = append(chunks, w)
		}
	}
	return chunks
}
