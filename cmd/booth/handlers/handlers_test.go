package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/tintypelabs/tintype/pkg/printer"
	"github.com/tintypelabs/tintype/pkg/session"
	"github.com/tintypelabs/tintype/pkg/storage"
	"github.com/tintypelabs/tintype/pkg/template"
)

type testEnv struct {
	router     *gin.Engine
	store      *session.Store
	root       *storage.Root
	dispatcher *printer.MockDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	root, err := storage.NewRoot(filepath.Join(dir, "storage"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := session.Open(filepath.Join(dir, "booth.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	dispatcher := printer.NewMockDispatcher()
	layout := template.DefaultLayout()
	layout.FontPath = "" // text skipped, keeps the test hermetic

	sessionHandler := &SessionHandler{Store: store}
	printHandler := &PrintHandler{
		Store:      store,
		Root:       root,
		Dispatcher: dispatcher,
		Compositor: template.NewCompositor(layout),
		PaperSize:  "w288h432",
		Resolution: "300x300dpi",
	}

	router := gin.New()
	router.Use(sessions.Sessions("booth", cookie.NewStore([]byte("test"))))
	router.POST("/api/sessions", sessionHandler.Create)
	router.GET("/api/sessions/:id", sessionHandler.Get)
	router.PATCH("/api/sessions/:id", sessionHandler.Update)
	router.POST("/api/sessions/:id/story", sessionHandler.Story)
	router.POST("/api/print", printHandler.Print)
	router.POST("/api/print/preview", printHandler.Preview)

	return &testEnv{router: router, store: store, root: root, dispatcher: dispatcher}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var parsed map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return w, parsed
}

// writePhoto stores a decodable JPEG for a session and records it.
func (e *testEnv) writePhoto(t *testing.T, sessionID string) {
	t.Helper()
	path, err := e.root.Resolve("cap_test.jpg")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30)), nil); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.store.RecordCapture(t.Context(), sessionID, path); err != nil {
		t.Fatal(err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/sessions", gin.H{"group_name": "The Daltons"})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	id := resp["session"].(map[string]any)["id"].(string)

	w, _ = env.do(t, http.MethodPatch, "/api/sessions/"+id, gin.H{"weapon": 1, "land": 2, "companion": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}

	w, resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%s/story", id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("story status = %d: %s", w.Code, w.Body.String())
	}
	if resp["story_text"] == nil || resp["headline"] == nil {
		t.Fatalf("story response missing fields: %v", resp)
	}

	w, resp = env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	sess := resp["session"].(map[string]any)
	if sess["story_text"] == nil {
		t.Fatal("story not persisted")
	}
}

func TestUpdateRejectsChoiceOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodPost, "/api/sessions", nil)
	id := resp["session"].(map[string]any)["id"].(string)

	w, _ := env.do(t, http.MethodPatch, "/api/sessions/"+id, gin.H{"weapon": 4})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpdateRejectsEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodPost, "/api/sessions", nil)
	id := resp["session"].(map[string]any)["id"].(string)

	w, resp := env.do(t, http.MethodPatch, "/api/sessions/"+id, gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp["ok"] != false {
		t.Fatalf("ok = %v, want false", resp["ok"])
	}
}

func TestGetUnknownSessionIs404(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodGet, "/api/sessions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestPrintFlow(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodPost, "/api/sessions", gin.H{"group_name": "Posse"})
	id := resp["session"].(map[string]any)["id"].(string)

	// No photo yet.
	w, _ := env.do(t, http.MethodPost, "/api/print", gin.H{"session_id": id})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("print without photo = %d, want 400", w.Code)
	}

	env.do(t, http.MethodPatch, "/api/sessions/"+id, gin.H{"weapon": 0, "land": 0, "companion": 0})
	env.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%s/story", id), nil)
	env.writePhoto(t, id)

	w, resp = env.do(t, http.MethodPost, "/api/print/preview", gin.H{"session_id": id})
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d: %s", w.Code, w.Body.String())
	}
	if len(env.dispatcher.Jobs) != 0 {
		t.Fatal("preview must not submit a job")
	}

	w, resp = env.do(t, http.MethodPost, "/api/print", gin.H{"session_id": id, "copies": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("print = %d: %s", w.Code, w.Body.String())
	}
	if resp["copies_printed"].(float64) != 1 {
		t.Fatalf("copies_printed = %v, want 1", resp["copies_printed"])
	}
	if len(env.dispatcher.Jobs) != 1 {
		t.Fatalf("submitted jobs = %d, want 1", len(env.dispatcher.Jobs))
	}
	if env.dispatcher.Submissions[0].Copies != 2 {
		t.Fatalf("copies = %d, want 2", env.dispatcher.Submissions[0].Copies)
	}
}
