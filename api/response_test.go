package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestJSONResponseLogsEncodeError(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	rec := httptest.NewRecorder()
	JSONResponse(rec, http.StatusOK, make(chan int))

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "encode response" || entry.Data["error"] == nil {
		t.Fatalf("expected the encode error to be logged, got %+v", entry)
	}
}
