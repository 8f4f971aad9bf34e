package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/slack-go/slack"

	"molrelay/internal/config"
	"molrelay/internal/service"
)

// CredentialRegistrar stores a tenant token obtained from the OAuth
// exchange. Satisfied by *credstore.Store.
type CredentialRegistrar interface {
	Register(ctx context.Context, tenantID, token string)
}

// OAuthExchange swaps a temporary OAuth code for a workspace token.
type OAuthExchange func(ctx context.Context, code string) (teamID, token string, err error)

// Deps carries the collaborators the HTTP layer needs.
type Deps struct {
	Links    service.LinkService
	Creds    CredentialRegistrar
	Exchange OAuthExchange
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay thin; all molecule logic lives in the service layer.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/", Index())
	app.Get("/healthz", LivenessProbe())
	app.Post("/view", ViewMolecule(d.Links))
	app.Get("/oauth/callback", OAuthCallback(d.Exchange, d.Creds))
}

// slashResponse is the fixed Slack slash-command response shape.
type slashResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// ViewMolecule handles the slash command. The response is always 200 with
// either a viewer link or one of the fixed error strings; Slack renders both
// the same way. Any byte transfer happens after this handler returns.
func ViewMolecule(svc service.LinkService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		text := c.FormValue("text")
		teamID := c.FormValue("team_id")

		return c.JSON(slashResponse{
			ResponseType: "in_channel",
			Text:         svc.View(c.UserContext(), teamID, text),
		})
	}
}

// NewSlackOAuthExchange performs the Slack OAuth v2 code exchange.
func NewSlackOAuthExchange(cfg config.SlackConfig) OAuthExchange {
	client := &http.Client{Timeout: 10 * time.Second}
	return func(ctx context.Context, code string) (string, string, error) {
		resp, err := slack.GetOAuthV2ResponseContext(ctx, client,
			cfg.ClientID, cfg.ClientSecret, code, "")
		if err != nil {
			return "", "", err
		}
		return resp.Team.ID, resp.AccessToken, nil
	}
}

// OAuthCallback completes an app installation: it exchanges the code and
// registers the workspace token so private files from that workspace can be
// resolved from now on.
func OAuthCallback(exchange OAuthExchange, creds CredentialRegistrar) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Query("code")
		if code == "" {
			return writeError(c, fiber.StatusBadRequest, "CODE_REQUIRED", "missing oauth code")
		}

		teamID, token, err := exchange(c.UserContext(), code)
		if err != nil {
			return writeError(c, fiber.StatusBadGateway, "OAUTH_FAILED", "could not complete installation")
		}

		creds.Register(c.UserContext(), teamID, token)
		return c.Type("html").SendString(installedPage)
	}
}

// LivenessProbe is a trivial liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Index serves the landing page.
func Index() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Type("html").SendString(indexPage)
	}
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>molrelay</title>
</head>
<body>
  <h1>molrelay</h1>
  <p>Share a molecule file (pdb, sdf, mol2, xyz or cube) in Slack and run
  <code>/view &lt;file link&gt;</code> to get a 3D viewer link.</p>
</body>
</html>`

const installedPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>molrelay installed</title>
</head>
<body>
  <h1>All set!</h1>
  <p>molrelay is installed. Head back to Slack and try <code>/view</code>.</p>
</body>
</html>`
