// Package api serves the download engine over HTTP: download control,
// IRC search and a server-sent event stream.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"xdccd/agent"
	"xdccd/search"
)

var log = logrus.WithField("component", "api")

// Backend is the download engine behind the API.
type Backend interface {
	Downloads() []agent.DownloadInfo
	Request(network, fileName, nick, command string) (agent.DownloadID, error)
	Abort(id agent.DownloadID)
	Search(ctx context.Context, query string) ([]search.Result, error)
	Subscribe() (<-chan agent.Event, func())
}

type Options struct {
	// StaticDir is served at / when set.
	StaticDir   string
	CORSOrigins []string
}

func SetupRouter(backend Backend, opts Options) http.Handler {
	h := &handlers{backend: backend}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("GET /downloads", h.listDownloads)
	mux.HandleFunc("POST /download", h.requestDownload)
	mux.HandleFunc("DELETE /download/{id}", h.abortDownload)
	mux.HandleFunc("GET /search", h.search)
	mux.HandleFunc("GET /events", h.events)

	if opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})

	log.Debug("router initialized")
	handler := c.Handler(mux)
	handler = Logger(handler)
	return handler
}
