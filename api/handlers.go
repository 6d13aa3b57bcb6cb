package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"xdccd/agent"
)

type handlers struct {
	backend Backend
}

// DownloadRequest is the body of POST /download.
type DownloadRequest struct {
	Network  string `json:"server"`
	FileName string `json:"fileName"`
	Nick     string `json:"nick"`
	Command  string `json:"command"`
}

type DownloadCreated struct {
	ID agent.DownloadID `json:"id"`
}

// GET /downloads
func (h *handlers) listDownloads(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, h.backend.Downloads())
}

// POST /download
func (h *handlers) requestDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Network == "" || req.FileName == "" || req.Nick == "" || req.Command == "" {
		errorResponse(w, http.StatusBadRequest, "server, fileName, nick and command are required")
		return
	}

	id, err := h.backend.Request(req.Network, req.FileName, req.Nick, req.Command)
	switch {
	case errors.Is(err, agent.ErrUnknownNetwork):
		errorResponse(w, http.StatusNotFound, err.Error())
	case err != nil:
		// The download exists and is marked failed.
		log.WithError(err).Warn("request failed")
		errorResponse(w, http.StatusBadGateway, err.Error())
	default:
		JSONResponse(w, http.StatusCreated, DownloadCreated{ID: id})
	}
}

// DELETE /download/{id}
func (h *handlers) abortDownload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid download id")
		return
	}
	h.backend.Abort(agent.DownloadID(id))
	JSONResponse(w, http.StatusOK, Payload{Success: true, Message: "aborted"})
}

// GET /search?query=
func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		errorResponse(w, http.StatusBadRequest, "query is required")
		return
	}
	results, err := h.backend.Search(r.Context(), query)
	if err != nil {
		errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}
	JSONResponse(w, http.StatusOK, results)
}

// GET /events streams engine events as server-sent events named after their
// kind.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		errorResponse(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	events, unsubscribe := h.backend.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			var data any = e.Download
			if e.Kind == agent.EventMessage {
				data = e.Message
			}
			body, err := json.Marshal(data)
			if err != nil {
				log.WithError(err).Warn("encode event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, body); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
