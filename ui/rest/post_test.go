package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	domainPost "github.com/ymzk/threadpilot/domains/post"
	domainRunner "github.com/ymzk/threadpilot/domains/runner"
	pkgError "github.com/ymzk/threadpilot/pkg/error"
	"github.com/ymzk/threadpilot/ui/rest/middleware"
)

type stubPostService struct {
	response domainPost.PublishResponse
	err      error
	lastReq  domainPost.PublishRequest
}

func (s *stubPostService) Publish(_ context.Context, req domainPost.PublishRequest) (domainPost.PublishResponse, error) {
	s.lastReq = req
	return s.response, s.err
}

func newPostApp(service domainPost.IPostUsecase) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestPost(app, service)
	return app
}

func TestPostPublishSuccess(t *testing.T) {
	service := &stubPostService{response: domainPost.PublishResponse{
		Step:      "text",
		AccountID: "acct-1",
		Result:    domainRunner.PublishResult{PostID: "post-1"},
	}}
	app := newPostApp(service)

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hello", service.lastReq.Text)
}

func TestPostPublishValidationErrorMapsTo400(t *testing.T) {
	service := &stubPostService{err: pkgError.ValidationError("text: cannot be blank.")}
	app := newPostApp(service)

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"text":""}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostPublishNotFoundMapsTo404(t *testing.T) {
	service := &stubPostService{err: pkgError.NotFoundError("no enabled account available")}
	app := newPostApp(service)

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
