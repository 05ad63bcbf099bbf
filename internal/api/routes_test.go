package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/tagrush/backend/internal/api/handlers"
	"github.com/tagrush/backend/internal/auth"
	"github.com/tagrush/backend/internal/claim"
	"github.com/tagrush/backend/internal/config"
	"github.com/tagrush/backend/internal/issuance"
	"github.com/tagrush/backend/internal/leaderboard"
	"github.com/tagrush/backend/internal/matches"
	"github.com/tagrush/backend/internal/metrics"
	"github.com/tagrush/backend/internal/middleware"
	"github.com/tagrush/backend/internal/operator"
	"github.com/tagrush/backend/internal/qr"
	"github.com/tagrush/backend/internal/testutil"
	"github.com/tagrush/backend/internal/ws"
)

const (
	staffEmail    = "staff@example.com"
	staffPassword = "hunter22"
)

type failingRenderer struct{}

func (failingRenderer) Render(string, int) ([]byte, error) {
	return nil, errors.New("encoder exploded")
}

type testServer struct {
	router *gin.Engine
	db     *sqlx.DB
}

func newTestServer(t *testing.T, renderer qr.Renderer) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	if err := operator.CreateOperatorAccount(context.Background(), db, staffEmail, "Staff", staffPassword); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Environment:        "test",
		FrontendURL:        "http://localhost:5173",
		PublicOrigin:       "https://tag.example",
		RecentMatchesLimit: 10,
	}

	ranker := leaderboard.NewRanker(leaderboard.Ascending, 50)
	store := matches.NewStore(db, ranker)
	m := metrics.New()
	tokens := auth.NewPlayerTokens("test-secret", 0)
	feed := ws.NewFeed(ws.NewHub(), nil, handlers.LeaderboardSnapshot(store, ranker))

	router := gin.New()
	SetupRoutes(router, Deps{
		DB:           db,
		Config:       cfg,
		Store:        store,
		Ranker:       ranker,
		Claims:       claim.NewService(store, tokens, feed, m),
		Issuer:       issuance.NewService(store, renderer, 0),
		Sessions:     operator.NewMemorySessionStore(0),
		PlayerTokens: tokens,
		Feed:         feed,
		Metrics:      m,
	})

	return &testServer{router: router, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/operator/login", map[string]string{"email": staffEmail, "password": staffPassword}, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.OperatorCookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (s *testServer) issue(t *testing.T, cookie *http.Cookie, duration interface{}) map[string]interface{} {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/operator/matches", map[string]interface{}{"duration_ms": duration}, cookie, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue: expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)
}

func sessionToken(t *testing.T, issued map[string]interface{}) string {
	t.Helper()

	match, ok := issued["match"].(map[string]interface{})
	if !ok {
		t.Fatalf("no match in %v", issued)
	}
	return match["session_token"].(string)
}

func TestOperatorRoutesRequireSession(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())

	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/operator/me"},
		{http.MethodPost, "/api/v1/operator/matches"},
		{http.MethodGet, "/api/v1/operator/matches"},
		{http.MethodGet, "/api/v1/operator/matches/1/qr.png"},
		{http.MethodGet, "/api/v1/operator/audit"},
	}

	for _, v := range cases {
		rec := s.do(t, v.method, v.path, nil, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 got %d", v.method, v.path, rec.Code)
		}
	}
	if n := testutil.CountRows(t, s.db, "matches"); n != 0 {
		t.Errorf("expected no matches, got %d", n)
	}
}

func TestOperatorLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())

	for _, body := range []map[string]string{
		{"email": staffEmail, "password": "wrong"},
		{"email": "nobody@example.com", "password": staffPassword},
	} {
		rec := s.do(t, http.MethodPost, "/api/v1/operator/login", body, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%v: expected 401 got %d", body, rec.Code)
		}
	}

	rec := s.do(t, http.MethodPost, "/api/v1/operator/login", map[string]string{"email": staffEmail}, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password: expected 400 got %d", rec.Code)
	}
}

func TestOperatorLogoutEndsSession(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())
	cookie := s.login(t)

	if rec := s.do(t, http.MethodGet, "/api/v1/operator/me", nil, cookie, nil); rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200 got %d", rec.Code)
	} else if got := decode(t, rec)["email"]; got != staffEmail {
		t.Errorf("me: unexpected email %v", got)
	}

	if rec := s.do(t, http.MethodPost, "/api/v1/operator/logout", nil, cookie, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200 got %d", rec.Code)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/operator/me", nil, cookie, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401 got %d", rec.Code)
	}
}

func TestIssueAndClaimFlow(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())
	cookie := s.login(t)

	issued := s.issue(t, cookie, 500)
	token := sessionToken(t, issued)

	if want := "https://tag.example/claim?token=" + token; issued["claim_url"] != want {
		t.Errorf("expected claim_url %s got %v", want, issued["claim_url"])
	}
	if url, _ := issued["qr_code_data_url"].(string); !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("unexpected qr_code_data_url %.40q", url)
	}
	if _, ok := issued["qr_error"]; ok {
		t.Error("unexpected qr_error")
	}

	rec := s.do(t, http.MethodGet, "/api/v1/claim?token="+token, nil, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check: expected 200 got %d", rec.Code)
	}
	if body := decode(t, rec); body["valid"] != true || body["time"] != float64(500) {
		t.Errorf("check: unexpected body %v", body)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/claim", map[string]string{"token": token, "nickname": "Alice"}, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	claimed := decode(t, rec)
	if claimed["success"] != true || claimed["nickname"] != "Alice" || claimed["time"] != float64(500) {
		t.Errorf("claim: unexpected body %v", claimed)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/claim", map[string]string{"token": token, "nickname": "Bob"}, nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second claim: expected 409 got %d", rec.Code)
	}
	if body := decode(t, rec); body["time"] != float64(500) {
		t.Errorf("second claim: expected time 500, got %v", body)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/claim?token="+token, nil, nil, nil); rec.Code != http.StatusConflict {
		t.Errorf("check after claim: expected 409 got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/leaderboard", nil, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: expected 200 got %d", rec.Code)
	}
	board := decode(t, rec)
	entries := board["entries"].([]interface{})
	if board["direction"] != "asc" || len(entries) != 1 {
		t.Fatalf("leaderboard: unexpected body %v", board)
	}
	if e := entries[0].(map[string]interface{}); e["nickname"] != "Alice" || e["rank"] != float64(1) {
		t.Errorf("leaderboard: unexpected entry %v", e)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/player/me", nil, nil, map[string]string{
		"Authorization": "Bearer " + claimed["player_token"].(string),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("player/me: expected 200 got %d", rec.Code)
	}
	if got := decode(t, rec)["matches"].([]interface{}); len(got) != 1 {
		t.Errorf("player/me: expected 1 match, got %d", len(got))
	}

	rec = s.do(t, http.MethodGet, "/api/v1/operator/matches", nil, cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recent: expected 200 got %d", rec.Code)
	}
	recent := decode(t, rec)["matches"].([]interface{})
	if len(recent) != 1 || recent[0].(map[string]interface{})["nickname"] != "Alice" {
		t.Errorf("recent: unexpected body %v", recent)
	}
}

func TestClaimErrors(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())
	token := sessionToken(t, s.issue(t, s.login(t), "1200"))

	cases := []struct {
		method string
		path   string
		body   interface{}
		status int
	}{
		{http.MethodGet, "/api/v1/claim", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/claim?token=nope", nil, http.StatusNotFound},
		{http.MethodPost, "/api/v1/claim", map[string]string{"token": "nope", "nickname": "Alice"}, http.StatusNotFound},
		{http.MethodPost, "/api/v1/claim", map[string]string{"token": "nope", "nickname": ""}, http.StatusNotFound},
		{http.MethodPost, "/api/v1/claim", map[string]string{"token": token, "nickname": "   "}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/claim", map[string]string{"token": token, "nickname": strings.Repeat("x", 33)}, http.StatusBadRequest},
	}

	for k, v := range cases {
		rec := s.do(t, v.method, v.path, v.body, nil, nil)
		if rec.Code != v.status {
			t.Errorf("case #%d: expected %d got %d: %s", k, v.status, rec.Code, rec.Body.String())
		}
	}

	if n := testutil.CountRows(t, s.db, "players"); n != 0 {
		t.Errorf("expected no players after failed claims, got %d", n)
	}
}

func TestCreateMatchRejectsBadDuration(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())
	cookie := s.login(t)

	for _, d := range []interface{}{nil, "", "-5", -5, "abc", 1.5} {
		rec := s.do(t, http.MethodPost, "/api/v1/operator/matches", map[string]interface{}{"duration_ms": d}, cookie, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("duration %v: expected 400 got %d", d, rec.Code)
		}
	}

	if n := testutil.CountRows(t, s.db, "matches"); n != 0 {
		t.Errorf("expected no matches, got %d", n)
	}
}

func TestCreateMatchKeepsMatchWhenQRFails(t *testing.T) {
	s := newTestServer(t, failingRenderer{})
	issued := s.issue(t, s.login(t), 700)

	if _, ok := issued["qr_error"]; !ok {
		t.Errorf("expected qr_error in %v", issued)
	}
	if issued["qr_code_data_url"] != "" {
		t.Errorf("expected empty data url, got %v", issued["qr_code_data_url"])
	}
	if n := testutil.CountRows(t, s.db, "matches"); n != 1 {
		t.Errorf("expected the match to be persisted, got %d rows", n)
	}
}

func TestMatchQRReprint(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())
	cookie := s.login(t)
	issued := s.issue(t, cookie, 900)
	id := int64(issued["match"].(map[string]interface{})["id"].(float64))

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/operator/matches/%d/qr.png", id), nil, cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("unexpected content type %s", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/operator/matches/9999/qr.png", nil, cookie, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown match: expected 404 got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/operator/matches/abc/qr.png", nil, cookie, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400 got %d", rec.Code)
	}
}

func TestAuditLogRecordsOperatorActions(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())
	s.do(t, http.MethodPost, "/api/v1/operator/login", map[string]string{"email": staffEmail, "password": "wrong"}, nil, nil)
	cookie := s.login(t)
	s.issue(t, cookie, 100)

	rec := s.do(t, http.MethodGet, "/api/v1/operator/audit?limit=10", nil, cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	logs := decode(t, rec)["logs"].([]interface{})
	if len(logs) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(logs))
	}
	if newest := logs[0].(map[string]interface{}); newest["action"] != "create_match" || newest["success"] != true {
		t.Errorf("unexpected newest entry %v", newest)
	}
}

func TestLeaderboardRejectsBadLimit(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())

	for _, q := range []string{"0", "-1", "ten"} {
		if rec := s.do(t, http.MethodGet, "/api/v1/leaderboard?limit="+q, nil, nil, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400 got %d", q, rec.Code)
		}
	}

	rec := s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=5", nil, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if entries := decode(t, rec)["entries"].([]interface{}); len(entries) != 0 {
		t.Errorf("expected an empty board, got %v", entries)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, qr.NewPNGRenderer())

	if rec := s.do(t, http.MethodGet, "/api/v1/health", nil, nil, nil); rec.Code != http.StatusOK {
		t.Errorf("health: expected 200 got %d", rec.Code)
	}

	s.do(t, http.MethodGet, "/api/v1/leaderboard", nil, nil, nil)
	rec := s.do(t, http.MethodGet, "/metrics", nil, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tagrush_leaderboard_reads_total 1") {
		t.Error("leaderboard read was not counted")
	}
}
