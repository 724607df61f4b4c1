package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ymzk/threadpilot/config"
	domainRunner "github.com/ymzk/threadpilot/domains/runner"
	"github.com/ymzk/threadpilot/ui/rest/middleware"
)

type stubRunner struct {
	summary domainRunner.RunSummary
	err     error
	calls   int
	lastDry bool
}

func (s *stubRunner) RunDue(_ context.Context, dryRun bool) (domainRunner.RunSummary, error) {
	s.calls++
	s.lastDry = dryRun
	return s.summary, s.err
}

func newJobsApp(runner domainRunner.IRunnerUsecase) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestJobs(app, runner)
	return app
}

func withJobsSecret(t *testing.T, secret string) {
	t.Helper()
	previous := config.JobsSecret
	config.JobsSecret = secret
	t.Cleanup(func() { config.JobsSecret = previous })
}

func TestJobsRunRejectsWrongKey(t *testing.T) {
	withJobsSecret(t, "s3cret")
	runner := &stubRunner{}
	app := newJobsApp(runner)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs/run?key=wrong", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, runner.calls)
}

func TestJobsRunRejectsWhenSecretUnset(t *testing.T) {
	withJobsSecret(t, "")
	runner := &stubRunner{}
	app := newJobsApp(runner)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs/run", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, runner.calls)
}

func TestJobsRunReturnsSummary(t *testing.T) {
	withJobsSecret(t, "s3cret")
	runner := &stubRunner{summary: domainRunner.RunSummary{
		Ran:     1,
		Results: []domainRunner.RunResult{{ScheduleID: "sch-1", OK: true, PostID: "post-1"}},
	}}
	app := newJobsApp(runner)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/jobs/run?key=s3cret", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, runner.calls)
	require.False(t, runner.lastDry)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope struct {
		Code    string                 `json:"code"`
		Results domainRunner.RunSummary `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.Equal(t, "SUCCESS", envelope.Code)
	require.Equal(t, 1, envelope.Results.Ran)
	require.Equal(t, "post-1", envelope.Results.Results[0].PostID)
}

func TestJobsRunDryFlag(t *testing.T) {
	withJobsSecret(t, "s3cret")
	runner := &stubRunner{}
	app := newJobsApp(runner)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs/run?key=s3cret&dry=1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, runner.lastDry)
}

func TestJobsRunHeaderKey(t *testing.T) {
	withJobsSecret(t, "s3cret")
	runner := &stubRunner{}
	app := newJobsApp(runner)

	req := httptest.NewRequest(http.MethodGet, "/jobs/run", nil)
	req.Header.Set("X-Jobs-Key", "s3cret")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, runner.calls)
}

func TestJobsRunConflictWhileRunning(t *testing.T) {
	withJobsSecret(t, "s3cret")
	runner := &stubRunner{err: domainRunner.ErrRunInProgress}
	app := newJobsApp(runner)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs/run?key=s3cret", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}
