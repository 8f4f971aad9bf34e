package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	serviceMocks "molrelay/internal/service/mocks"
)

type fakeRegistrar struct {
	tenantID string
	token    string
}

func (f *fakeRegistrar) Register(ctx context.Context, tenantID, token string) {
	f.tenantID = tenantID
	f.token = token
}

func postForm(app *fiber.App, path string, form url.Values) (*http.Response, error) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return app.Test(req)
}

func TestViewMolecule(t *testing.T) {
	mockSvc := new(serviceMocks.MockLinkService)
	app := fiber.New()
	app.Post("/view", ViewMolecule(mockSvc))

	t.Run("returns the service text verbatim", func(t *testing.T) {
		mockSvc.On("View", mock.Anything, "T123", "https://example.com/model.pdb").
			Return("http://3dmol.csb.pitt.edu/viewer.html?url=x&style=stick").Once()

		resp, err := postForm(app, "/view", url.Values{
			"team_id": {"T123"},
			"text":    {"https://example.com/model.pdb"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body slashResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "in_channel", body.ResponseType)
		assert.Equal(t, "http://3dmol.csb.pitt.edu/viewer.html?url=x&style=stick", body.Text)
	})

	t.Run("error strings still answer with 200", func(t *testing.T) {
		mockSvc.On("View", mock.Anything, "T123", "junk").
			Return("Sorry, that is not a URL to a file.").Once()

		resp, err := postForm(app, "/view", url.Values{
			"team_id": {"T123"},
			"text":    {"junk"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body slashResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Sorry, that is not a URL to a file.", body.Text)
	})

	mockSvc.AssertExpectations(t)
}

func TestOAuthCallback(t *testing.T) {
	t.Run("registers the workspace token", func(t *testing.T) {
		reg := &fakeRegistrar{}
		exchange := func(ctx context.Context, code string) (string, string, error) {
			assert.Equal(t, "tmp-code", code)
			return "T777", "xoxb-new", nil
		}

		app := fiber.New()
		app.Get("/oauth/callback", OAuthCallback(exchange, reg))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/oauth/callback?code=tmp-code", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "T777", reg.tenantID)
		assert.Equal(t, "xoxb-new", reg.token)
	})

	t.Run("missing code", func(t *testing.T) {
		app := fiber.New()
		app.Get("/oauth/callback", OAuthCallback(nil, &fakeRegistrar{}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/oauth/callback", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("exchange failure does not register", func(t *testing.T) {
		reg := &fakeRegistrar{}
		exchange := func(ctx context.Context, code string) (string, string, error) {
			return "", "", fmt.Errorf("invalid_code")
		}

		app := fiber.New()
		app.Get("/oauth/callback", OAuthCallback(exchange, reg))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/oauth/callback?code=bad", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Empty(t, reg.tenantID)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndex(t *testing.T) {
	app := fiber.New()
	app.Get("/", Index())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
