//go:build integration || !unit

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "reviewtrust/internal/adapters/http_server"
	"reviewtrust/internal/analysis"
	"reviewtrust/internal/app"
	mysqlrepo "reviewtrust/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startStack(t *testing.T) (*sql.DB, *httptest.Server) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviewtrust",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "reviewtrust")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	svc := app.NewReviewService(
		repo, repo,
		analysis.NewAnalyzer(nil),
		analysis.NewSpamDetector(nil, nil),
		nil,
		app.NewSubmitLimiter(20, 20),
		time.Minute,
	)
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Svc: svc})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return db, ts
}

func doJSON(t *testing.T, method, url, actor string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return res
}

func decode(t *testing.T, res *http.Response, dst any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHTTP_EndToEnd_ReviewLifecycle(t *testing.T) {
	db, ts := startStack(t)

	// engagement backs the author's booking
	if _, err := db.Exec(
		`INSERT INTO engagements (booking_id, author_id, supplier_id) VALUES (?, ?, ?)`,
		"bk-1", "auth-1", "sup-1",
	); err != nil {
		t.Fatalf("seed engagement: %v", err)
	}

	// a verified, clean, positive review publishes immediately
	res := doJSON(t, "POST", ts.URL+"/v1/reviews", "auth-1", map[string]any{
		"supplier_id": "sup-1",
		"booking_id":  "bk-1",
		"rating":      5,
		"title":       "Lovely day",
		"text":        "Amazing and wonderful experience! The service was excellent.",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", res.StatusCode)
	}
	var created struct {
		ReviewID     string
		Status       string
		AutoApproved bool
	}
	decode(t, res, &created)
	if created.Status != "approved" || !created.AutoApproved {
		t.Fatalf("expected auto-approval, got %+v", created)
	}

	// no actor header
	res = doJSON(t, "POST", ts.URL+"/v1/reviews", "", map[string]any{"supplier_id": "sup-1"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing actor status = %d", res.StatusCode)
	}
	res.Body.Close()

	// same author, same supplier: cooldown applies
	res = doJSON(t, "POST", ts.URL+"/v1/reviews", "auth-1", map[string]any{
		"supplier_id": "sup-1",
		"rating":      4,
		"text":        "A second attempt well inside the cooldown window.",
	})
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("cooldown status = %d", res.StatusCode)
	}
	res.Body.Close()

	// eligibility endpoint agrees
	res = doJSON(t, "GET", ts.URL+"/v1/reviews/eligibility?supplier_id=sup-1", "auth-1", nil)
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("eligibility status = %d", res.StatusCode)
	}
	res.Body.Close()

	// votes: one per user
	voteURL := ts.URL + "/v1/reviews/" + created.ReviewID + "/votes"
	res = doJSON(t, "POST", voteURL, "voter-1", map[string]any{"helpful": true})
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("vote status = %d", res.StatusCode)
	}
	res.Body.Close()
	res = doJSON(t, "POST", voteURL, "voter-1", map[string]any{"helpful": false})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate vote status = %d", res.StatusCode)
	}
	res.Body.Close()

	// supplier response: identity must match the reviewed supplier
	respURL := ts.URL + "/v1/reviews/" + created.ReviewID + "/response"
	res = doJSON(t, "PUT", respURL, "sup-2", map[string]any{"text": "thanks for the lovely review!"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("mismatched responder status = %d", res.StatusCode)
	}
	res.Body.Close()
	res = doJSON(t, "PUT", respURL, "sup-1", map[string]any{"text": "thanks for the lovely review!"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("response status = %d", res.StatusCode)
	}
	res.Body.Close()

	// dispute the published review and resolve in the author's favor
	res = doJSON(t, "POST", ts.URL+"/v1/reviews/"+created.ReviewID+"/dispute", "sup-1", map[string]any{
		"reason":   "the review overstates the delay",
		"evidence": []string{"timeline.pdf"},
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dispute status = %d", res.StatusCode)
	}
	res.Body.Close()
	res = doJSON(t, "POST", ts.URL+"/v1/reviews/"+created.ReviewID+"/dispute/resolution", "admin-1", map[string]any{
		"resolution": "approve",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("resolution status = %d", res.StatusCode)
	}
	res.Body.Close()

	var full struct {
		Moderation struct {
			State          string
			PreviousStates []struct{ PriorState string }
		}
	}
	res = doJSON(t, "GET", ts.URL+"/v1/reviews/"+created.ReviewID, "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", res.StatusCode)
	}
	decode(t, res, &full)
	if full.Moderation.State != "dispute_approved" {
		t.Fatalf("state = %s, want dispute_approved", full.Moderation.State)
	}
	// auto-approval and dispute filing log nothing; the resolution is the
	// only audited transition
	if len(full.Moderation.PreviousStates) != 1 || full.Moderation.PreviousStates[0].PriorState != "disputed" {
		t.Fatalf("audit trail wrong: %+v", full.Moderation.PreviousStates)
	}
}

func TestHTTP_EndToEnd_ModerationAndListing(t *testing.T) {
	_, ts := startStack(t)

	// unverified review stays pending
	res := doJSON(t, "POST", ts.URL+"/v1/reviews", "auth-2", map[string]any{
		"supplier_id": "sup-1",
		"rating":      2,
		"text":        "Setup ran late and communication was poor throughout.",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", res.StatusCode)
	}
	var created struct {
		ReviewID string
		Status   string
	}
	decode(t, res, &created)
	if created.Status != "pending" {
		t.Fatalf("expected pending, got %+v", created)
	}

	// it shows up for moderators but not in the public listing
	res = doJSON(t, "GET", ts.URL+"/v1/moderation/queue?sort=priority", "mod-1", nil)
	var queue []struct{ ID string }
	decode(t, res, &queue)
	if len(queue) != 1 || queue[0].ID != created.ReviewID {
		t.Fatalf("queue = %+v", queue)
	}

	res = doJSON(t, "GET", ts.URL+"/v1/suppliers/sup-1/reviews", "", nil)
	var page struct {
		Items []struct{ ID string }
		Total int
	}
	decode(t, res, &page)
	if page.Total != 0 {
		t.Fatalf("pending review leaked into public listing: %+v", page)
	}

	// approve it over the API
	res = doJSON(t, "POST", ts.URL+"/v1/reviews/"+created.ReviewID+"/moderation", "mod-1", map[string]any{
		"action": "approve",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("moderation status = %d", res.StatusCode)
	}
	res.Body.Close()

	// now it lists publicly, with a usable ETag
	req, _ := http.NewRequest("GET", ts.URL+"/v1/suppliers/sup-1/reviews", nil)
	first, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	etag := first.Header.Get("ETag")
	decode(t, first, &page)
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("approved review missing from listing: %+v", page)
	}
	if etag == "" {
		t.Fatal("missing ETag on listing")
	}

	req, _ = http.NewRequest("GET", ts.URL+"/v1/suppliers/sup-1/reviews", nil)
	req.Header.Set("If-None-Match", etag)
	second, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional list: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want 304", second.StatusCode)
	}

	// request_changes without a reason is rejected
	res = doJSON(t, "POST", ts.URL+"/v1/reviews/"+created.ReviewID+"/moderation", "mod-1", map[string]any{
		"action": "request_changes",
	})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("missing reason status = %d", res.StatusCode)
	}
	res.Body.Close()
}
