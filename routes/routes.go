package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"dtracker/handler"
	"dtracker/middleware"
)

// Services are the behaviours the HTTP surface is built on.
type Services struct {
	Tickets       handler.TicketService
	Workflows     handler.WorkflowService
	Scanner       handler.BreachScanner
	Notifications handler.NotificationLog
	Users         handler.UserService
	DB            handler.Pinger
}

// SetupRoutes configures all API routes and wraps them in the common middleware chain.
func SetupRoutes(svc Services, auth *middleware.AuthMiddleware, logger zerolog.Logger) http.Handler {
	router := mux.NewRouter()

	ticketHandler := handler.NewTicketHandler(svc.Tickets)
	workflowHandler := handler.NewWorkflowHandler(svc.Workflows)
	slaHandler := handler.NewSLAHandler(svc.Scanner, svc.Notifications)
	authHandler := handler.NewAuthHandler(svc.Users)

	protected := func(fn http.HandlerFunc) http.Handler {
		return auth.Authenticate(fn)
	}

	// Accounts
	router.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	router.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	router.Handle("/update-token", protected(authHandler.UpdateToken)).Methods(http.MethodPost)

	// Dashboards
	router.HandleFunc("/people", ticketHandler.ListPeople).Methods(http.MethodGet)
	router.HandleFunc("/people-summary-authorization", ticketHandler.ListSummaryAuthorization).Methods(http.MethodGet)

	// Tickets. The assign aliases are kept for older clients.
	for _, path := range []string{"/assign", "/assign_task", "/assign_process"} {
		router.Handle(path, protected(ticketHandler.Assign)).Methods(http.MethodPost)
	}
	router.Handle("/close-ticket", protected(ticketHandler.Close)).Methods(http.MethodPost)

	// SLA
	router.HandleFunc("/check-sla", slaHandler.CheckSLA).Methods(http.MethodGet)
	router.HandleFunc("/notifications/{department}/today", slaHandler.TodayNotifications).Methods(http.MethodGet)

	// Department workflows, e.g. /api/getnursingdischargeStatus and /api/UPDATE_PHARMACY_WORKFLOW
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/get{department:[A-Za-z_]+}dischargeStatus", workflowHandler.GetStatus).Methods(http.MethodPost)
	api.Handle("/UPDATE_{department:[A-Za-z_]+}_WORKFLOW", protected(workflowHandler.Update)).Methods(http.MethodPost)

	router.HandleFunc("/health", handler.Health(svc.DB)).Methods(http.MethodGet)

	// CORS sits outside the router so preflight requests never reach method matching.
	var h http.Handler = router
	h = middleware.Recovery(logger)(h)
	h = middleware.Logger(logger)(h)
	h = middleware.RequestID(h)
	return middleware.CORS(h)
}
