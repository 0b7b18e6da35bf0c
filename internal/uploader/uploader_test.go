package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loykin/artipost/internal/common"
)

func testLogger(buf *bytes.Buffer) *common.Logger {
	h := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return common.FromSlog(slog.New(h), common.LogLevelDebug)
}

func writeArtifact(t *testing.T, dir, name, content string) Artifact {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return Artifact{FileName: name, Path: p}
}

func testBuild(arts ...Artifact) Build {
	return Build{
		JobName:   "demo",
		Number:    7,
		Timestamp: time.UnixMilli(1700000000000),
		Result:    ResultSuccess,
		Artifacts: arts,
	}
}

func TestUpload_SkipOnFailureOrWorse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	for _, result := range []Result{ResultFailure, ResultNotBuilt, ResultAborted} {
		var buf bytes.Buffer
		u := &Uploader{Config: Config{URL: srv.URL}, Logger: testLogger(&buf)}
		b := testBuild(Artifact{FileName: "a.txt", Path: "nonexistent"})
		b.Result = result

		res, err := u.Upload(context.Background(), b)
		if err != nil {
			t.Fatalf("result=%v: unexpected error: %v", result, err)
		}
		if !res.Skipped || res.SkipReason != "Skipping because of FAILURE" {
			t.Fatalf("result=%v: unexpected result: %+v", result, res)
		}
		if !strings.Contains(buf.String(), "Skipping because of FAILURE") {
			t.Fatalf("result=%v: skip line not logged: %s", result, buf.String())
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no network calls, got %d", calls)
	}
}

func TestUpload_SkipWithoutArtifacts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	u := &Uploader{Config: Config{URL: srv.URL}, Logger: testLogger(&buf)}
	res, err := u.Upload(context.Background(), testBuild())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Skipped || res.SkipReason != "No artifacts to POST" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("expected no network call")
	}
}

func TestUpload_SkipWithoutURL(t *testing.T) {
	var buf bytes.Buffer
	u := &Uploader{Logger: testLogger(&buf)}
	res, err := u.Upload(context.Background(), testBuild(Artifact{FileName: "a.txt", Path: "nonexistent"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Skipped || res.SkipReason != "No URL specified" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(buf.String(), "No URL specified") {
		t.Fatalf("skip line not logged: %s", buf.String())
	}
}

func TestUpload_EndToEndMultipart(t *testing.T) {
	dir := t.TempDir()
	a := writeArtifact(t, dir, "a.txt", "alpha")
	b := writeArtifact(t, dir, "b.zip", "beta-bytes")

	type part struct {
		field, filename, content string
	}
	var gotParts []part
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, err.Error(), 400)
			return
		}
		for field, fhs := range r.MultipartForm.File {
			for _, fh := range fhs {
				f, _ := fh.Open()
				data, _ := io.ReadAll(f)
				_ = f.Close()
				gotParts = append(gotParts, part{field: field, filename: fh.Filename, content: string(data)})
			}
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"id":"upl-42"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	u := &Uploader{
		// job-level URL empty: the global default must be used
		Config:   Config{Headers: "X-Env: staging\nJob-Name: should-lose"},
		Defaults: Config{URL: srv.URL, Headers: "ignored: because job headers win", ResultPath: "id"},
		Logger:   testLogger(&buf),
		Getenv: func(key string) string {
			if key == SvnRevisionEnv {
				return "r1234"
			}
			return ""
		},
	}

	res, err := u.Upload(context.Background(), testBuild(a, b))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Skipped || res.StatusCode != 200 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(gotParts) != 2 {
		t.Fatalf("expected 2 multipart parts, got %d", len(gotParts))
	}
	byField := map[string]part{}
	for _, p := range gotParts {
		byField[p.field] = p
	}
	if p := byField["a.txt"]; p.filename != "a.txt" || p.content != "alpha" {
		t.Fatalf("unexpected part a.txt: %+v", p)
	}
	if p := byField["b.zip"]; p.filename != "b.zip" || p.content != "beta-bytes" {
		t.Fatalf("unexpected part b.zip: %+v", p)
	}

	// configured header
	if got := gotHeader.Get("X-Env"); got != "staging" {
		t.Fatalf("X-Env: %q", got)
	}
	// standard headers, set after config headers so they win collisions
	if got := gotHeader.Get("Job-Name"); got != "demo" {
		t.Fatalf("Job-Name should win collision: %q", got)
	}
	if got := gotHeader.Get("Build-Number"); got != "7" {
		t.Fatalf("Build-Number: %q", got)
	}
	if got := gotHeader.Get("Build-Timestamp"); got != "1700000000000" {
		t.Fatalf("Build-Timestamp: %q", got)
	}
	if got := gotHeader.Get(SvnRevisionEnv); got != "r1234" {
		t.Fatalf("SVN_REVISION: %q", got)
	}
	if ct := gotHeader.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
		t.Fatalf("content type: %q", ct)
	}

	// job headers replace defaults wholesale, not line by line
	if gotHeader.Get("ignored") != "" {
		t.Fatal("default headers must not merge when job headers are set")
	}

	// result path extraction from the response body
	if res.ServerResult != "upl-42" {
		t.Fatalf("server result: %q", res.ServerResult)
	}
	if res.Body != `{"id":"upl-42"}` {
		t.Fatalf("body: %q", res.Body)
	}

	// logging sequence
	log := buf.String()
	for _, want := range []string{"SVN_REVISION", "POST", "request headers", "200 OK", "response body"} {
		if !strings.Contains(log, want) {
			t.Fatalf("log missing %q:\n%s", want, log)
		}
	}
}

func TestUpload_ServerError_NoUploadError(t *testing.T) {
	dir := t.TempDir()
	a := writeArtifact(t, dir, "a.txt", "alpha")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	u := &Uploader{Config: Config{URL: srv.URL}, Logger: testLogger(&buf)}
	res, err := u.Upload(context.Background(), testBuild(a))
	if err != nil {
		t.Fatalf("a 500 response is not an upload error: %v", err)
	}
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status: %d", res.StatusCode)
	}
	if !strings.Contains(buf.String(), "500") {
		t.Fatalf("status line not logged: %s", buf.String())
	}
}

func TestUpload_MalformedHeaderLineSkipped(t *testing.T) {
	dir := t.TempDir()
	a := writeArtifact(t, dir, "a.txt", "alpha")
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
	}))
	defer srv.Close()

	var buf bytes.Buffer
	u := &Uploader{
		Config: Config{URL: srv.URL, Headers: "X-Good: ok\nmalformed line"},
		Logger: testLogger(&buf),
	}
	if _, err := u.Upload(context.Background(), testBuild(a)); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotHeader.Get("X-Good") != "ok" {
		t.Fatal("valid header missing")
	}
	if !strings.Contains(buf.String(), "malformed header line") {
		t.Fatalf("expected warning about malformed line: %s", buf.String())
	}
}

func TestUpload_MissingArtifactFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	var buf bytes.Buffer
	u := &Uploader{Config: Config{URL: srv.URL}, Logger: testLogger(&buf)}
	_, err := u.Upload(context.Background(), testBuild(Artifact{FileName: "gone.txt", Path: filepath.Join(t.TempDir(), "gone.txt")}))
	if err == nil {
		t.Fatal("expected error for unreadable artifact")
	}
	if !strings.Contains(err.Error(), "gone.txt") {
		t.Fatalf("error should name the artifact: %v", err)
	}
}

type fakeRecorder struct {
	res *UploadResult
	err error
	n   int
}

func (f *fakeRecorder) Record(res *UploadResult, uploadErr error) error {
	f.res = res
	f.err = uploadErr
	f.n++
	return nil
}

func TestRun_NeverFails(t *testing.T) {
	// unreachable endpoint: Upload errors, Run must not
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	dir := t.TempDir()
	a := writeArtifact(t, dir, "a.txt", "alpha")

	var buf bytes.Buffer
	rec := &fakeRecorder{}
	u := &Uploader{
		Config:         Config{URL: url},
		Logger:         testLogger(&buf),
		Recorder:       rec,
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
	}
	res := u.Run(context.Background(), testBuild(a))
	if res == nil {
		t.Fatal("expected a result")
	}
	if !strings.Contains(buf.String(), "artifact upload failed") {
		t.Fatalf("failure not logged: %s", buf.String())
	}
	if rec.n != 1 || rec.err == nil {
		t.Fatalf("recorder not invoked with error: n=%d err=%v", rec.n, rec.err)
	}
}

func TestRun_SkippedNotRecorded(t *testing.T) {
	var buf bytes.Buffer
	rec := &fakeRecorder{}
	u := &Uploader{Logger: testLogger(&buf), Recorder: rec}
	res := u.Run(context.Background(), testBuild())
	if !res.Skipped {
		t.Fatalf("expected skip: %+v", res)
	}
	if rec.n != 0 {
		t.Fatalf("skips must not be recorded, got %d", rec.n)
	}
}

func TestUpload_ElapsedMeasured(t *testing.T) {
	dir := t.TempDir()
	a := writeArtifact(t, dir, "a.txt", "alpha")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	u := &Uploader{Config: Config{URL: srv.URL}, Logger: testLogger(&buf)}
	res, err := u.Upload(context.Background(), testBuild(a))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Elapsed < 20*time.Millisecond {
		t.Fatalf("elapsed too small: %v", res.Elapsed)
	}
	if !strings.Contains(buf.String(), fmt.Sprintf("(%dms)", res.Elapsed.Milliseconds())) {
		t.Fatalf("elapsed not logged: %s", buf.String())
	}
}
