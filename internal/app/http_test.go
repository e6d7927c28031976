package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jijisauti/api/internal/store"
)

func newTestServer(fs *fakeStore) (*HTTPServer, *Service) {
	svc := newTestService(fs)
	return NewHTTPServer(svc, "*"), svc
}

func bearerFor(t *testing.T, svc *Service, user store.User) string {
	t.Helper()
	session, err := svc.issueSession(context.Background(), user)
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}
	return "Bearer " + session.Token
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok true, got %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("responses must carry a request id")
	}
}

func TestPreflightRequest(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodOptions, "/api/issues", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("CORS origin header missing")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestProtectedRouteRequiresBearer(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodPut, "/api/tasks/tsk-1", strings.NewReader(`{"status":"completed"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]any
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %v", body)
	}
}

func TestSessionEndpoint(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			return store.User{ID: id, DisplayName: "Achieng", Role: "resident", IsVerified: true}, nil
		},
	}
	server, svc := newTestServer(fs)

	t.Run("signed out", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		var body map[string]any
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body["authenticated"] != false {
			t.Fatalf("expected unauthenticated, got %v", body)
		}
	})

	t.Run("signed in", func(t *testing.T) {
		bearer := bearerFor(t, svc, store.User{ID: "usr-1", DisplayName: "Achieng", Role: "resident", IsVerified: true})
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Header.Set("Authorization", bearer)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		var body map[string]any
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body["authenticated"] != true || body["userName"] != "Achieng" {
			t.Fatalf("unexpected session body: %v", body)
		}
	})
}

func TestReportIssueOverHTTP(t *testing.T) {
	var inserted store.Issue
	fs := &fakeStore{
		insertIssueFn: func(_ context.Context, item store.Issue) error {
			inserted = item
			return nil
		},
	}
	server, svc := newTestServer(fs)
	bearer := bearerFor(t, svc, store.User{ID: "usr-1", DisplayName: "Achieng", Role: "resident", IsVerified: true})

	payload := `{"title":"Burst pipe on Moi Avenue","description":"Water flooding the walkway since morning","category":"water","address":"Moi Avenue, stage 14"}`
	req := httptest.NewRequest(http.MethodPost, "/api/issues", strings.NewReader(payload))
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if inserted.ReportedBy == nil || *inserted.ReportedBy != "usr-1" {
		t.Fatalf("reporter not stamped, got %v", inserted.ReportedBy)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "reported" {
		t.Fatalf("expected a reported issue, got %v", body["status"])
	}
}

func TestReportIssueValidationOverHTTP(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	payload := `{"title":"x","description":"y","category":"volcanoes","address":"z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/issues", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["details"] == nil {
		t.Fatal("category errors should list the known categories")
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Categories []map[string]any `json:"categories"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Categories) != 7 {
		t.Fatalf("expected the full category catalog, got %d entries", len(body.Categories))
	}
}

func TestSearchEndpointIsPublic(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=water&type=issue", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := body["results"]; !ok {
		t.Fatalf("expected a results field, got %v", body)
	}
}

func TestVoteRouteRejectsAnonymous(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/proposals/prp-1/votes", strings.NewReader(`{"tokens":3}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
