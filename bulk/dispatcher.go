// Package bulk serves batched requests: a multipart/mixed envelope of
// independent sub-requests is replayed through the regular HTTP handler and
// the sub-responses are returned as one multipart/mixed response.
package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/response"
	"github.com/gaborage/routekit/trace"
)

const (
	mediaTypeMultipartMixed = "multipart/mixed"
	defaultProto            = "HTTP/1.1"
	// BoundaryPrefix starts every response boundary.
	BoundaryPrefix = "batch_"
)

// EnvelopeError rejects a whole bulk request before any part is replayed.
type EnvelopeError struct {
	Status  int
	Message string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("bulk envelope rejected (%d): %s", e.Status, e.Message)
}

// Options configures a Dispatcher.
type Options struct {
	// MaxParts limits the parts per envelope; 0 means unlimited.
	MaxParts int
	// MaxBytes limits the envelope body; 0 means unlimited.
	MaxBytes int64
	// OnPart is called after every replayed part.
	OnPart func(ctx context.Context, index, status int, elapsed time.Duration)
}

// Dispatcher replays bulk parts through a handler, strictly in order.
type Dispatcher struct {
	handler http.Handler
	opts    Options
	log     logger.Logger
}

// New creates a Dispatcher replaying parts through handler, which is
// normally the same router that serves the bulk endpoint.
func New(handler http.Handler, opts Options, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{handler: handler, opts: opts, log: log}
}

// Dispatch validates the envelope of r, replays each part and assembles the
// multipart response. Envelope problems are returned as *EnvelopeError;
// failures inside a part only affect that part's response.
func (d *Dispatcher) Dispatch(r *http.Request) (*response.Response, error) {
	boundary, err := envelopeBoundary(r)
	if err != nil {
		return nil, err
	}

	body, err := d.readBody(r)
	if err != nil {
		return nil, err
	}

	parts := Split(body, boundary)
	if d.opts.MaxParts > 0 && len(parts) > d.opts.MaxParts {
		return nil, &EnvelopeError{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("envelope has %d parts, at most %d allowed", len(parts), d.opts.MaxParts),
		}
	}

	respBoundary := BoundaryPrefix + uuid.NewString()
	var out bytes.Buffer
	for i, part := range parts {
		start := time.Now()
		rec := d.replay(r, part)
		elapsed := time.Since(start)

		logger.IncrementBulkCounter(r.Context())
		d.log.WithContext(r.Context()).Debug().
			Int("part", i).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("Bulk part replayed")
		if d.opts.OnPart != nil {
			d.opts.OnPart(r.Context(), i, rec.status, elapsed)
		}

		out.WriteString("--" + respBoundary + "\n")
		rec.writeTo(&out)
	}
	out.WriteString("--" + respBoundary + "--\n")

	resp := response.New(http.StatusOK)
	resp.Header.Set("Content-Type", mediaTypeMultipartMixed+"; boundary="+respBoundary)
	resp.Body = out.Bytes()
	return resp, nil
}

func envelopeBoundary(r *http.Request) (string, error) {
	if r.Method != http.MethodPost {
		return "", &EnvelopeError{Status: http.StatusMethodNotAllowed, Message: "bulk requests must use POST"}
	}
	mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != mediaTypeMultipartMixed {
		return "", &EnvelopeError{Status: http.StatusUnsupportedMediaType, Message: "content type must be multipart/mixed"}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", &EnvelopeError{Status: http.StatusBadRequest, Message: "missing multipart boundary"}
	}
	return boundary, nil
}

func (d *Dispatcher) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	reader := io.Reader(r.Body)
	if d.opts.MaxBytes > 0 {
		reader = io.LimitReader(r.Body, d.opts.MaxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &EnvelopeError{Status: http.StatusBadRequest, Message: "unreadable body"}
	}
	if d.opts.MaxBytes > 0 && int64(len(body)) > d.opts.MaxBytes {
		return nil, &EnvelopeError{Status: http.StatusRequestEntityTooLarge, Message: "envelope too large"}
	}
	return body, nil
}

// Split normalizes line endings, cuts the closing delimiter and returns the
// non-empty fragments between "--boundary" lines.
func Split(body []byte, boundary string) []string {
	text := strings.ReplaceAll(string(body), "\r\n", "\n")
	if i := strings.Index(text, "--"+boundary+"--"); i >= 0 {
		text = text[:i]
	}

	var parts []string
	for _, fragment := range strings.Split(text, "--"+boundary+"\n") {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		parts = append(parts, fragment)
	}
	return parts
}

// Part is one parsed sub-request.
type Part struct {
	Header      http.Header // part header, not used for routing
	Method      string
	Target      string
	Proto       string
	ProtoMajor  int
	ProtoMinor  int
	RequestHead http.Header
	Body        string
}

// ParsePart parses "<part header>\n\n<request line>\n<headers>\n\n<body>".
func ParsePart(fragment string) (*Part, error) {
	sections := strings.SplitN(fragment, "\n\n", 3)
	if len(sections) < 2 {
		return nil, fmt.Errorf("part has no request line")
	}

	p := &Part{Header: parseHeaderLines(strings.Split(sections[0], "\n"))}

	lines := strings.Split(strings.TrimLeft(sections[1], "\n"), "\n")
	fields := strings.Fields(lines[0])
	switch len(fields) {
	case 2:
		p.Method, p.Target, p.Proto = fields[0], fields[1], defaultProto
	case 3:
		p.Method, p.Target, p.Proto = fields[0], fields[1], fields[2]
	default:
		return nil, fmt.Errorf("malformed request line %q", lines[0])
	}

	major, minor, ok := http.ParseHTTPVersion(p.Proto)
	if !ok {
		return nil, fmt.Errorf("malformed protocol %q", p.Proto)
	}
	p.ProtoMajor, p.ProtoMinor = major, minor
	p.RequestHead = parseHeaderLines(lines[1:])

	if len(sections) == 3 {
		p.Body = strings.TrimSuffix(sections[2], "\n")
	}
	return p, nil
}

func parseHeaderLines(lines []string) http.Header {
	h := http.Header{}
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		h.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return h
}

// Request builds the standalone request for the part. The outer request's
// Authorization header and trace correlation are used when the part carries
// none.
func (p *Part) Request(outer *http.Request) (*http.Request, error) {
	req, err := http.NewRequestWithContext(outer.Context(), p.Method, p.Target, strings.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	req.Proto, req.ProtoMajor, req.ProtoMinor = p.Proto, p.ProtoMajor, p.ProtoMinor
	req.Header = p.RequestHead.Clone()
	if req.Header.Get("Authorization") == "" {
		if auth := outer.Header.Get("Authorization"); auth != "" {
			req.Header.Set("Authorization", auth)
		}
	}
	trace.Propagate(outer.Context(), req.Header)
	req.Host = outer.Host
	req.RemoteAddr = outer.RemoteAddr
	req.RequestURI = p.Target
	return req, nil
}

func (d *Dispatcher) replay(outer *http.Request, fragment string) (rec *recorder) {
	part, err := ParsePart(fragment)
	if err != nil {
		return errorRecorder(defaultProto, http.StatusBadRequest, err.Error())
	}
	req, err := part.Request(outer)
	if err != nil {
		return errorRecorder(part.Proto, http.StatusBadRequest, err.Error())
	}

	rec = newRecorder(part.Proto)
	defer func() {
		if p := recover(); p != nil {
			d.log.Error().
				Str("method", part.Method).
				Str("target", part.Target).
				Interface("panic", p).
				Msg("Bulk part panicked")
			rec = errorRecorder(part.Proto, http.StatusInternalServerError, "internal server error")
		}
	}()
	d.handler.ServeHTTP(rec, req)
	return rec
}

// recorder captures one sub-response.
type recorder struct {
	proto  string
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder(proto string) *recorder {
	return &recorder{proto: proto, header: http.Header{}}
}

func errorRecorder(proto string, status int, message string) *recorder {
	rec := newRecorder(proto)
	rec.header.Set("Content-Type", "application/json; charset=utf-8")
	rec.WriteHeader(status)
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"code":    strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_")),
			"message": message,
		},
	})
	rec.body.Write(body)
	return rec
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *recorder) Write(b []byte) (int, error) {
	r.WriteHeader(http.StatusOK)
	return r.body.Write(b)
}

// writeTo serializes "HTTP/x.y <status> <reason>\n<headers>\n\n<body>\n".
func (r *recorder) writeTo(w *bytes.Buffer) {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	fmt.Fprintf(w, "%s %d %s\n", r.proto, status, http.StatusText(status))

	keys := make([]string, 0, len(r.header))
	for key := range r.header {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		for _, v := range r.header[key] {
			fmt.Fprintf(w, "%s: %s\n", key, v)
		}
	}
	w.WriteString("\n")
	w.Write(r.body.Bytes())
	w.WriteString("\n")
}
