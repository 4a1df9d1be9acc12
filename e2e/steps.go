package e2e

import (
	"github.com/cucumber/godog"

	"compass/e2e/steps/auth"
	"compass/e2e/steps/common"
	"compass/e2e/steps/retention"
)

// RegisterSteps wires every step package into the scenario context. Each
// feature area keeps its own package so step definitions stay close to the
// vocabulary they implement.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)    // background, generic HTTP, shared assertions
	auth.RegisterSteps(ctx, tc)      // login and session vocabulary
	retention.RegisterSteps(ctx, tc) // deletion-lifecycle vocabulary
}
