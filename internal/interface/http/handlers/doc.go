// Package handlers holds the building blocks the practice API server is
// assembled from.
//
// # Health Checks
//
// Named checks run in parallel, each under its own timeout. Optional checks
// mark the server unhealthy but keep it ready, so a lost Redis does not pull
// the instance out of rotation:
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddOptionalCheck("cache", handlers.NewPingCheck(cache))
//
// A detailed check reports what it saw, such as pool statistics, in place of
// "OK".
//
// # Authentication
//
// BearerAuth verifies the session token issued at login and exposes the
// learner id to handlers:
//
//	auth := handlers.NewBearerAuth(sessions, writeError)
//	mux.Handle("GET /api/v1/exercises/next", auth.Middleware(next))
//
//	learnerID, _ := handlers.LearnerIDFromContext(r.Context())
package handlers
