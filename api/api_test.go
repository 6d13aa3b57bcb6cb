package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"xdccd/agent"
	"xdccd/search"
)

type fakeBackend struct {
	mu        sync.Mutex
	downloads []agent.DownloadInfo
	requests  []DownloadRequest
	aborted   []agent.DownloadID
	results   []search.Result
	err       error
	events    chan agent.Event
}

func (b *fakeBackend) Downloads() []agent.DownloadInfo { return b.downloads }

func (b *fakeBackend) Request(network, fileName, nick, command string) (agent.DownloadID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, DownloadRequest{network, fileName, nick, command})
	return 7, b.err
}

func (b *fakeBackend) Abort(id agent.DownloadID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aborted = append(b.aborted, id)
}

func (b *fakeBackend) Search(ctx context.Context, query string) ([]search.Result, error) {
	return b.results, b.err
}

func (b *fakeBackend) Subscribe() (<-chan agent.Event, func()) {
	return b.events, func() {}
}

func newServer(t *testing.T, b *fakeBackend, opts Options) *httptest.Server {
	t.Helper()
	if opts.CORSOrigins == nil {
		opts.CORSOrigins = []string{"*"}
	}
	srv := httptest.NewServer(SetupRouter(b, opts))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	srv := newServer(t, &fakeBackend{}, Options{})
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestListDownloads(t *testing.T) {
	b := &fakeBackend{downloads: []agent.DownloadInfo{{
		ID: 1, Network: "rizon", FileName: "a.mkv", Nick: "Bot",
		Status: agent.Status{State: agent.StateProgress, Transferred: 10, FileSize: 20},
	}}}
	srv := newServer(t, b, Options{})

	resp, err := http.Get(srv.URL + "/downloads")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["server"] != "rizon" || got[0]["fileName"] != "a.mkv" {
		t.Fatalf("unexpected body %+v", got)
	}
	if _, ok := got[0]["requestCommand"]; ok {
		t.Fatal("request command must not be exposed")
	}
	status := got[0]["status"].(map[string]any)
	if status["state"] != "Progress" || status["transferred"] != float64(10) {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestEmptyDownloadsIsArray(t *testing.T) {
	srv := newServer(t, &fakeBackend{downloads: []agent.DownloadInfo{}}, Options{})
	resp, err := http.Get(srv.URL + "/downloads")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body []any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body == nil {
		t.Fatalf("expected an empty array, got %v (%v)", body, err)
	}
}

func TestRequestDownload(t *testing.T) {
	b := &fakeBackend{}
	srv := newServer(t, b, Options{})

	body := `{"server":"rizon","fileName":"a.mkv","nick":"Bot","command":"xdcc send #1"}`
	resp, err := http.Post(srv.URL+"/download", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created DownloadCreated
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID != 7 {
		t.Fatalf("unexpected response %+v (%v)", created, err)
	}
	want := DownloadRequest{"rizon", "a.mkv", "Bot", "xdcc send #1"}
	if len(b.requests) != 1 || b.requests[0] != want {
		t.Fatalf("unexpected requests %+v", b.requests)
	}
}

func TestRequestDownloadErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed", `{`, nil, http.StatusBadRequest},
		{"missing fields", `{"server":"rizon"}`, nil, http.StatusBadRequest},
		{"unknown network", `{"server":"x","fileName":"a","nick":"b","command":"c"}`, fmt.Errorf("%w: x", agent.ErrUnknownNetwork), http.StatusNotFound},
		{"send failed", `{"server":"x","fileName":"a","nick":"b","command":"c"}`, errors.New("not connected"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, &fakeBackend{err: tc.err}, Options{})
			resp, err := http.Post(srv.URL+"/download", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			var p Payload
			if err := json.NewDecoder(resp.Body).Decode(&p); err != nil || p.Success || p.Message == "" {
				t.Fatalf("unexpected error payload %+v (%v)", p, err)
			}
		})
	}
}

func TestAbortDownload(t *testing.T) {
	b := &fakeBackend{}
	srv := newServer(t, b, Options{})

	for _, path := range []string{"/download/3", "/download/3"} {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}
	if len(b.aborted) != 2 || b.aborted[0] != 3 {
		t.Fatalf("unexpected aborts %v", b.aborted)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/download/abc", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", resp.StatusCode)
	}
}

func TestSearch(t *testing.T) {
	b := &fakeBackend{results: []search.Result{{Network: "rizon", FileName: "a.mkv", Nick: "Bot", Command: "xdcc send #1"}}}
	srv := newServer(t, b, Options{})

	resp, err := http.Get(srv.URL + "/search?query=a")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got []search.Result
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil || len(got) != 1 || got[0] != b.results[0] {
		t.Fatalf("unexpected results %+v (%v)", got, err)
	}

	resp2, err := http.Get(srv.URL + "/search")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", resp2.StatusCode)
	}
}

func TestEventsStream(t *testing.T) {
	b := &fakeBackend{events: make(chan agent.Event, 4)}
	srv := newServer(t, b, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	b.events <- agent.Event{Kind: agent.EventMessage, Network: "rizon",
		Message: &agent.MessageInfo{Prefix: "bot!b@h", Message: "PRIVMSG #news hi"}}

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if lines[0] != "event: irc-message" {
		t.Fatalf("unexpected event line %q", lines[0])
	}
	if lines[1] != `data: {"prefix":"bot!b@h","message":"PRIVMSG #news hi"}` {
		t.Fatalf("unexpected data line %q", lines[1])
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>xdccd</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := newServer(t, &fakeBackend{}, Options{StaticDir: dir})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var sb strings.Builder
	bufio.NewReader(resp.Body).WriteTo(&sb)
	if !strings.Contains(sb.String(), "xdccd") {
		t.Fatalf("index not served: %q", sb.String())
	}
}
