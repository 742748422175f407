package slack

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// fakeSlack serves canned Web API responses keyed by method name.
type fakeSlack struct {
	mu        sync.Mutex
	responses map[string][]string
	requests  map[string][]*http.Request
	forms     map[string][]map[string][]string
	uploads   []upload
}

// upload is a multipart file body received by the fake.
type upload struct {
	Path     string
	Filename string
	Content  string
}

func newFakeSlack(t *testing.T) (*fakeSlack, *httptest.Server) {
	t.Helper()
	f := &fakeSlack{
		responses: map[string][]string{},
		requests:  map[string][]*http.Request{},
		forms:     map[string][]map[string][]string{},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

// respond queues body for method. The last queued body is reused.
func (f *fakeSlack) respond(method string, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var raw string
	switch v := body.(type) {
	case string:
		raw = v
	default:
		b, _ := json.Marshal(v)
		raw = string(b)
	}
	f.responses[method] = append(f.responses[method], raw)
}

func (f *fakeSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/")
	var received []upload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for _, headers := range r.MultipartForm.File {
				for _, h := range headers {
					received = append(received, readUpload(r.URL.Path, h))
				}
			}
		}
	} else {
		_ = r.ParseForm()
	}

	f.mu.Lock()
	f.requests[method] = append(f.requests[method], r)
	f.forms[method] = append(f.forms[method], r.Form)
	f.uploads = append(f.uploads, received...)
	queue := f.responses[method]
	var body string
	switch len(queue) {
	case 0:
		body = `{"ok":false,"error":"unknown_method"}`
	case 1:
		body = queue[0]
	default:
		body = queue[0]
		f.responses[method] = queue[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *fakeSlack) formsFor(method string) []map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[method]
}

func (f *fakeSlack) headerOf(method string, i int, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method][i].Header.Get(key)
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{Token: "xoxb-test", APIURL: srv.URL + "/api/"}, nopLogger{})
}

func readUpload(path string, h *multipart.FileHeader) upload {
	u := upload{Path: path, Filename: h.Filename}
	file, err := h.Open()
	if err != nil {
		return u
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	u.Content = string(data)
	return u
}

func (f *fakeSlack) received() []upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upload(nil), f.uploads...)
}
