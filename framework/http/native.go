package http

import (
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"
)

// Framework-native carrier types. Handlers and injected constructors may
// declare parameters of these types; the routing layer fills them from the
// live request. The container never tries to satisfy them itself.

// PathParams holds the URL route parameters of the current request.
type PathParams map[string]string

// Query holds the parsed query string of the current request.
type Query url.Values

// Headers holds the request headers.
type Headers http.Header

// Form holds the parsed form body (urlencoded or multipart values).
type Form url.Values

// Get returns the first value for key, or "".
func (p PathParams) Get(key string) string { return p[key] }

// Get returns the first query value for key, or "".
func (q Query) Get(key string) string { return url.Values(q).Get(key) }

// Get returns the first header value for key, or "".
func (h Headers) Get(key string) string { return http.Header(h).Get(key) }

// Get returns the first form value for key, or "".
func (f Form) Get(key string) string { return url.Values(f).Get(key) }

// ── Extraction from the live request ─────────────────────────────────────────

// PathParamsOf collects chi route parameters for r.
func PathParamsOf(r *http.Request) PathParams {
	out := PathParams{}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			out[key] = rctx.URLParams.Values[i]
		}
	}
	return out
}

// QueryOf parses the query string of r.
func QueryOf(r *http.Request) Query { return Query(r.URL.Query()) }

// HeadersOf returns the headers of r.
func HeadersOf(r *http.Request) Headers { return Headers(r.Header) }

// FormOf parses and returns the form values of r.
func FormOf(r *http.Request) Form {
	_ = r.ParseForm()
	return Form(r.PostForm)
}

// maxUploadMemory bounds how much of a multipart body is held in memory;
// larger files spill to temp files (net/http's default threshold).
const maxUploadMemory = 32 << 20

// FilesOf parses the multipart body of r and returns every uploaded file,
// ordered by field name. Nil for non-multipart requests.
func FilesOf(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil
		}
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		return nil
	}
	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	var out []*multipart.FileHeader
	for _, field := range fields {
		out = append(out, r.MultipartForm.File[field]...)
	}
	return out
}

// FileOf returns the first uploaded file of r, or nil.
func FileOf(r *http.Request) *multipart.FileHeader {
	files := FilesOf(r)
	if len(files) == 0 {
		return nil
	}
	return files[0]
}
