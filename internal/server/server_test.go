package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/adeleeuw3/NLVreport/internal/audit"
	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/dashboard"
	"github.com/adeleeuw3/NLVreport/internal/store"
)

type testClient struct {
	t     *testing.T
	srv   *httptest.Server
	token string
}

func newTestClient(t *testing.T) (*testClient, *audit.Logger) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "api.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	cat := catalog.Default()
	auditLog := audit.NewLogger(filepath.Join(dir, "audit.sqlite"))
	s := New(st, cat, dashboard.NewBuilder(cat, []string{"gen_csat"}, nil), auditLog)
	s.Auth.Cost = bcrypt.MinCost
	s.Quiet = true
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testClient{t: t, srv: srv}, auditLog
}

func (c *testClient) do(method, path string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (c *testClient) signUp(email string) {
	c.t.Helper()
	var sess struct {
		Token string `json:"token"`
	}
	if code := c.do("POST", "/api/auth/signup", map[string]string{"email": email, "password": "secret1"}, &sess); code != http.StatusCreated {
		c.t.Fatalf("signup status = %d", code)
	}
	c.token = sess.Token
}

func TestRequiresBearerToken(t *testing.T) {
	c, _ := newTestClient(t)
	if code := c.do("GET", "/api/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("me without token = %d", code)
	}
	c.token = "bogus"
	if code := c.do("GET", "/api/reports/2025", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("bogus token = %d", code)
	}
	if code := c.do("GET", "/api/catalog", nil, nil); code != http.StatusOK {
		t.Fatalf("catalog is public, got %d", code)
	}
}

func TestSignUpValidation(t *testing.T) {
	c, _ := newTestClient(t)
	if code := c.do("POST", "/api/auth/signup", map[string]string{"email": "nope", "password": "secret1"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad email = %d", code)
	}
	if code := c.do("POST", "/api/auth/signup", map[string]string{"email": "a@b.nl", "password": "123"}, nil); code != http.StatusBadRequest {
		t.Fatalf("weak password = %d", code)
	}
	c.signUp("a@b.nl")
	if code := c.do("POST", "/api/auth/signup", map[string]string{"email": "A@b.nl", "password": "secret1"}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate = %d", code)
	}
	if code := c.do("POST", "/api/auth/signin", map[string]string{"email": "a@b.nl", "password": "wrong!"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", code)
	}
}

func TestReportAndStoryFlow(t *testing.T) {
	c, auditLog := newTestClient(t)
	c.signUp("owner@nlv.nl")

	for month, v := range map[string]string{"jan": "7", "Mar": "9"} {
		body := map[string]any{"data": map[string]any{"gen_csat": map[string]any{"data": v}}}
		if code := c.do("PUT", "/api/reports/2025/"+month, body, nil); code != http.StatusOK {
			t.Fatalf("save %s = %d", month, code)
		}
	}
	if code := c.do("PUT", "/api/reports/2025/Smarch", map[string]any{}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad month = %d", code)
	}

	var months struct {
		Months []string `json:"months"`
	}
	c.do("GET", "/api/reports/2025", nil, &months)
	if len(months.Months) != 2 || months.Months[0] != "Jan" || months.Months[1] != "Mar" {
		t.Fatalf("months = %v", months.Months)
	}

	var report reportResponse
	c.do("GET", "/api/reports/2025/Mar", nil, &report)
	if !report.Found || report.ID != "2025-Mar" || report.Data["gen_csat"]["data"] != "9" {
		t.Fatalf("report = %+v", report)
	}

	var prev struct {
		Found bool `json:"found"`
	}
	c.do("GET", "/api/reports/2025/Mar/previous", nil, &prev)
	if prev.Found {
		t.Fatalf("Feb was never saved")
	}

	var story storyResponse
	code := c.do("POST", "/api/stories", map[string]any{"year": 2025, "preset": "q1", "save": true}, &story)
	if code != http.StatusOK {
		t.Fatalf("story status = %d", code)
	}
	if story.ID == "" || story.Title != "2025 Performance Story" {
		t.Fatalf("story = %+v", story)
	}
	if len(story.Missing) != 1 || story.Missing[0] != "Feb" {
		t.Fatalf("missing = %v", story.Missing)
	}
	if got := story.FormData.Data["gen_csat"]["data"]; got != "7,,9" {
		t.Fatalf("stitched = %q", got)
	}
	if len(story.Dashboard.Overview.Headlines) != 1 {
		t.Fatalf("overview = %+v", story.Dashboard.Overview)
	}

	if code := c.do("POST", "/api/stories", map[string]any{"year": 2025, "start": "Jun", "end": "Jan"}, nil); code != http.StatusBadRequest {
		t.Fatalf("reversed range = %d", code)
	}

	var rendered dashboard.Dashboard
	if code := c.do("GET", "/api/dashboards/"+story.ID+"/render", nil, &rendered); code != http.StatusOK {
		t.Fatalf("render = %d", code)
	}
	if rendered.RangeLabel != "Jan - Mar 2025" {
		t.Fatalf("rendered = %+v", rendered)
	}
	if code := c.do("DELETE", "/api/dashboards/"+story.ID, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete = %d", code)
	}
	if code := c.do("GET", "/api/dashboards/"+story.ID, nil, nil); code != http.StatusNotFound {
		t.Fatalf("get deleted = %d", code)
	}

	events, err := auditLog.Recent(20)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	counts := map[string]int{}
	for _, ev := range events {
		counts[ev.Type]++
	}
	if counts["report_saved"] != 2 || counts["dashboard_saved"] != 1 || counts["dashboard_deleted"] != 1 {
		t.Fatalf("audit counts = %v", counts)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	c, _ := newTestClient(t)
	c.signUp("one@nlv.nl")
	var created map[string]string
	if code := c.do("POST", "/api/dashboards", map[string]any{"title": "Mine", "formData": map[string]any{}}, &created); code != http.StatusCreated {
		t.Fatalf("create = %d", code)
	}

	c.signUp("two@nlv.nl")
	var list []map[string]any
	c.do("GET", "/api/dashboards", nil, &list)
	if len(list) != 0 {
		t.Fatalf("user two sees %v", list)
	}
	if code := c.do("GET", "/api/dashboards/"+created["id"], nil, nil); code != http.StatusNotFound {
		t.Fatalf("cross-user get = %d", code)
	}
}

func TestViewTransitions(t *testing.T) {
	c, _ := newTestClient(t)
	c.signUp("nav@nlv.nl")

	var v struct {
		State string `json:"state"`
	}
	c.do("GET", "/api/view", nil, &v)
	if v.State != "library" {
		t.Fatalf("initial = %s", v.State)
	}
	if code := c.do("POST", "/api/view", map[string]any{"action": "back"}, nil); code != http.StatusConflict {
		t.Fatalf("back from library = %d", code)
	}
	if code := c.do("POST", "/api/view", map[string]any{"action": "start_wizard", "payload": map[string]any{"year": 2025}}, &v); code != http.StatusOK || v.State != "wizard" {
		t.Fatalf("start_wizard = %d %s", code, v.State)
	}
	if code := c.do("POST", "/api/view", map[string]any{"action": "generate", "payload": map[string]any{"start": "Mar", "end": "Jan"}}, nil); code != http.StatusBadRequest {
		t.Fatalf("reversed generate = %d", code)
	}
	if code := c.do("POST", "/api/view", map[string]any{"action": "fly"}, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown action = %d", code)
	}

	if code := c.do("POST", "/api/auth/signout", nil, nil); code != http.StatusNoContent {
		t.Fatalf("signout = %d", code)
	}
	if code := c.do("GET", "/api/view", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("view after signout = %d", code)
	}
}

func TestPreview(t *testing.T) {
	c, _ := newTestClient(t)
	c.signUp("p@nlv.nl")
	var card dashboard.Card
	body := map[string]any{"kpiId": "ppl_sat", "fields": map[string]any{"score": 120}}
	if code := c.do("POST", "/api/preview", body, &card); code != http.StatusOK {
		t.Fatalf("preview = %d", code)
	}
	if card.Gauge == nil || *card.Gauge != 100 {
		t.Fatalf("gauge = %v", card.Gauge)
	}
	if code := c.do("POST", "/api/preview", map[string]any{"kpiId": "nope"}, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown kpi = %d", code)
	}
}
