package handlers

import (
	"bounty-board-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBountyRoutes(app *fiber.App, bountyService *services.BountyService, submissionService *services.SubmissionService, userService *services.UserService, auth fiber.Handler) {
	// 🔓 Public listings
	app.Get("/bounties", bountyService.GetBounties)
	app.Get("/bounties/solved", bountyService.GetSolvedBounties)

	// 🔐 /bounties/my must register before /bounties/:id
	app.Get("/bounties/my", auth, bountyService.GetMyBounties)
	app.Get("/bounties/:id", bountyService.GetBountyByID)

	secured := app.Group("/", auth)
	secured.Post("/bounties", bountyService.CreateBounty)
	secured.Post("/submissions", submissionService.CreateSubmission)
	secured.Get("/submissions", submissionService.GetSubmissions)
	secured.Get("/user/me", userService.GetMe)
}
