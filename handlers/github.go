package handlers

import (
	"bounty-board-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGitHubRoutes(app *fiber.App, githubService *services.GitHubService, installationService *services.InstallationService, auth fiber.Handler) {
	secured := app.Group("/github", auth)

	// Installation status for the repo onboarding flow
	secured.Get("/installation", installationService.GetInstallation)
	secured.Post("/installation", installationService.RegisterInstallation)
	secured.Delete("/installation", installationService.RemoveInstallation)

	// Proxy endpoints so the API token never reaches the browser
	secured.Get("/search/issues", githubService.SearchIssues)
	secured.Get("/issues/details", githubService.GetIssueDetails)
	secured.Post("/issues/labels", githubService.AddIssueLabels)
	secured.Get("/commits", githubService.GetCommits)
}
