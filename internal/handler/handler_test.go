package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/dukerupert/tripkeep/internal/auth"
	"github.com/dukerupert/tripkeep/internal/database"
	"github.com/dukerupert/tripkeep/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestDB(t *testing.T, users ...string) (*sql.DB, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := store.NewUserStore(db)
	for _, u := range users {
		if err := us.Ensure(u); err != nil {
			t.Fatalf("ensure user %q: %v", u, err)
		}
	}
	return db, us
}

// serve runs h for user and returns the recorded response.
func serve(h http.HandlerFunc, user string, req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{Username: user}))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func withID(req *http.Request, id string) *http.Request {
	req.SetPathValue("id", id)
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rec)["error"]
}

// uploadRequest builds a multipart import request whose "file" part
// declares contentType.
func uploadRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/settings/backups/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
