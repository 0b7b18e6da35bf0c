// Package uploader posts build artifacts to a configured HTTP endpoint as a
// single multipart/form-data request, attaching build metadata headers. The
// operation is best effort: Run never propagates a failure to the caller.
package uploader

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/loykin/artipost/internal/common"
	"github.com/loykin/artipost/internal/headers"
	"github.com/loykin/artipost/internal/httpc"
)

// SvnRevisionEnv is the environment variable forwarded verbatim as the
// SVN_REVISION request header. It may be absent or empty.
const SvnRevisionEnv = "SVN_REVISION"

// UploadResult is the ephemeral outcome of one upload invocation. It is
// logged and optionally recorded, never persisted by this package.
type UploadResult struct {
	Skipped    bool
	SkipReason string

	JobName     string
	BuildNumber int
	URL         string

	StatusCode     int
	Status         string
	Elapsed        time.Duration
	Body           string
	ServerResult   string
	RequestHeaders map[string]string
}

// Recorder receives the outcome of each attempted upload. The history store
// implements it; a nil Recorder disables recording.
type Recorder interface {
	Record(res *UploadResult, uploadErr error) error
}

// Uploader performs the artifact upload. Config is the job-level tier,
// Defaults the global fallback; both may be zero.
type Uploader struct {
	Config   Config
	Defaults Config

	TlsConfig      *tls.Config
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	Logger   *common.Logger
	Masker   *common.Masker
	Recorder Recorder

	// Getenv is swappable for tests; nil means os.Getenv.
	Getenv func(string) string
}

func (u *Uploader) logger() *common.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return common.GetLogger()
}

func (u *Uploader) masker() *common.Masker {
	if u.Masker != nil {
		return u.Masker
	}
	return common.NewMasker()
}

func (u *Uploader) getenv(key string) string {
	if u.Getenv != nil {
		return u.Getenv(key)
	}
	return os.Getenv(key)
}

// Upload sends all artifacts of the build in one multipart POST and returns
// the outcome. Skip conditions (failed build, no artifacts, no URL) yield a
// Skipped result and nil error without any network activity. A non-nil error
// always comes with a partial result describing how far the attempt got.
func (u *Uploader) Upload(ctx context.Context, build Build) (*UploadResult, error) {
	logger := u.logger().WithComponent("uploader").WithJob(build.JobName, build.Number)
	res := &UploadResult{JobName: build.JobName, BuildNumber: build.Number}

	if build.Result.FailureOrWorse() {
		res.Skipped = true
		res.SkipReason = "Skipping because of FAILURE"
		logger.Info(res.SkipReason, "result", build.Result.String())
		return res, nil
	}
	if len(build.Artifacts) == 0 {
		res.Skipped = true
		res.SkipReason = "No artifacts to POST"
		logger.Info(res.SkipReason)
		return res, nil
	}

	cfg := u.Config.Resolve(u.Defaults)
	if cfg.URL == "" {
		res.Skipped = true
		res.SkipReason = "No URL specified"
		logger.Info(res.SkipReason)
		return res, nil
	}
	res.URL = cfg.URL

	client := (&httpc.Httpc{
		TlsConfig:      u.TlsConfig,
		ConnectTimeout: u.ConnectTimeout,
		ReadTimeout:    u.ReadTimeout,
	}).New()
	req := client.R().SetContext(ctx)

	// Config headers first; lines without a colon were already rejected by
	// validation, so they are only warned about and skipped here.
	hdrs, skipped := headers.Parse(cfg.Headers)
	for _, line := range skipped {
		logger.Warn("skipping malformed header line", "line", line)
	}
	requestHeaders := make(map[string]string, len(hdrs)+4)
	for _, h := range hdrs {
		req.SetHeader(h.Name, h.Value)
		requestHeaders[h.Name] = h.Value
	}

	// Standard headers are set last so they win any name collision.
	svn := u.getenv(SvnRevisionEnv)
	standard := map[string]string{
		SvnRevisionEnv:    svn,
		"Job-Name":        build.JobName,
		"Build-Number":    strconv.Itoa(build.Number),
		"Build-Timestamp": strconv.FormatInt(build.Timestamp.UnixMilli(), 10),
	}
	for name, value := range standard {
		req.SetHeader(name, value)
		requestHeaders[name] = value
	}
	res.RequestHeaders = requestHeaders

	// One part per artifact: field name and filename are both the artifact's
	// file name, content is the raw bytes with no per-part content type.
	files := make([]*os.File, 0, len(build.Artifacts))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	fields := make([]*resty.MultipartField, 0, len(build.Artifacts))
	for _, a := range build.Artifacts {
		f, err := os.Open(a.Path)
		if err != nil {
			return res, fmt.Errorf("open artifact %s: %w", a.FileName, err)
		}
		files = append(files, f)
		fields = append(fields, &resty.MultipartField{
			Param:    a.FileName,
			FileName: a.FileName,
			Reader:   f,
		})
	}
	req.SetMultipartFields(fields...)

	logger.Info("SVN_REVISION", "value", svn)
	logger.Info("POST", "url", cfg.URL, "artifacts", len(build.Artifacts))
	logger.Info("request headers", "headers", fmt.Sprintf("%v", u.masker().MaskHeaderMap(requestHeaders)))

	start := time.Now()
	resp, err := req.Post(cfg.URL)
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("POST %s: %w", cfg.URL, err)
	}

	res.StatusCode = resp.StatusCode()
	res.Status = resp.Status()
	res.Body = string(resp.Body())
	logger.Info(fmt.Sprintf("%s (%dms)", res.Status, res.Elapsed.Milliseconds()))
	logger.Info("response body", "body", res.Body)

	if cfg.ResultPath != "" && res.Body != "" {
		if v := gjson.Get(res.Body, cfg.ResultPath); v.Exists() {
			res.ServerResult = v.String()
			logger.Info("server result", "path", cfg.ResultPath, "value", res.ServerResult)
		}
	}
	return res, nil
}

// Run is the best-effort wrapper around Upload: any error is logged with its
// diagnostics and swallowed, so the enclosing build never fails because of an
// upload problem. The attempt is handed to the Recorder when one is set.
func (u *Uploader) Run(ctx context.Context, build Build) *UploadResult {
	logger := u.logger().WithComponent("uploader")
	res, err := u.Upload(ctx, build)
	if err != nil {
		logger.Error("artifact upload failed", "error", err, "job", build.JobName, "build", build.Number)
	}
	if u.Recorder != nil && !res.Skipped {
		if rerr := u.Recorder.Record(res, err); rerr != nil {
			logger.Warn("failed to record upload history", "error", rerr)
		}
	}
	return res
}
