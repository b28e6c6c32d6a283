package routes

import (
	"net/http"

	"goally/handlers"
	"goally/middlewares"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupGoalRoutes(goalHandler *handlers.GoalHandler, jwtSecret string, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	// Every API route resolves the acting principal first
	identity := middlewares.IdentityMiddleware(jwtSecret)
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, identity(fn))
	}

	// Goals
	handle("GET /api/goals", goalHandler.GetGoals)
	handle("POST /api/goals", goalHandler.CreateGoal)
	handle("POST /api/goals/suggest", goalHandler.SuggestTitle)
	handle("GET /api/goals/{id}", goalHandler.GetGoal)
	handle("PUT /api/goals/{id}", goalHandler.UpdateGoal)
	handle("DELETE /api/goals/{id}", goalHandler.DeleteGoal)
	// Key results
	handle("POST /api/goals/{id}/krs", goalHandler.CreateKr)
	handle("GET /api/krs/{id}", goalHandler.GetKr)
	handle("PUT /api/krs/{id}", goalHandler.UpdateKr)
	handle("DELETE /api/krs/{id}", goalHandler.DeleteKr)
	// Initiatives
	handle("POST /api/krs/{id}/initiatives", goalHandler.CreateInitiative)
	handle("GET /api/initiatives/{id}", goalHandler.GetInitiative)
	handle("PATCH /api/initiatives/{id}", goalHandler.UpdateInitiative)
	handle("PUT /api/initiatives/{id}/status", goalHandler.SetInitiativeStatus)
	handle("DELETE /api/initiatives/{id}", goalHandler.DeleteInitiative)
	// Whole hierarchy and analytics
	handle("GET /api/snapshot", goalHandler.GetSnapshot)
	handle("GET /api/analytics/tiers", goalHandler.GetTierStats)

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}
