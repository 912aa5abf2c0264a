package http

import (
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"
)

const redacted = "REDACTED"

// secretParams are query parameters that never reach the access log.
var secretParams = []string{"access_token"}

type logFormatter struct {
	*middleware.DefaultLogFormatter
}

// NewLogFormatter returns chi's request log format written to w, with
// secret query parameters masked.
func NewLogFormatter(w io.Writer) middleware.LogFormatter {
	return &logFormatter{&middleware.DefaultLogFormatter{
		Logger:  log.New(w, "", log.LstdFlags),
		NoColor: true,
	}}
}

func (f *logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	uri := redactURI(r.RequestURI)
	if uri != r.RequestURI {
		r = r.WithContext(r.Context())
		r.RequestURI = uri
	}

	return f.DefaultLogFormatter.NewLogEntry(r)
}

func redactURI(uri string) string {
	u, err := url.ParseRequestURI(uri)
	if err != nil || u.RawQuery == "" {
		return uri
	}

	q := u.Query()
	changed := false

	for _, name := range secretParams {
		if q.Has(name) {
			q.Set(name, redacted)
			changed = true
		}
	}

	if !changed {
		return uri
	}

	u.RawQuery = q.Encode()

	return u.RequestURI()
}
