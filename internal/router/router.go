package router

import (
	"net/http"

	"github.com/skillsvault/backend/internal/admin"
	"github.com/skillsvault/backend/internal/auth"
	"github.com/skillsvault/backend/internal/messages"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/ratings"
	"github.com/skillsvault/backend/internal/requests"
	"github.com/skillsvault/backend/internal/skills"
	"github.com/skillsvault/backend/internal/transactions"
)

const base = "/api/v1"

// Handlers bundles the per-domain HTTP handlers served under /api/v1.
type Handlers struct {
	Auth         *auth.Handler
	Skills       *skills.Handler
	Requests     *requests.Handler
	Transactions *transactions.Handler
	Messages     *messages.Handler
	Ratings      *ratings.Handler
	Admin        *admin.Handler
}

// New returns an http.Handler that serves the API under /api/v1. Everything
// except register and login requires a bearer token.
func New(h Handlers, tokens middleware.TokenValidator) *http.ServeMux {
	mux := http.NewServeMux()
	authed := middleware.RequireAuth(tokens)
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authed(fn))
	}
	adminRoute := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authed(middleware.RequireAdmin(fn)))
	}

	mux.HandleFunc("POST "+base+"/auth/register", h.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)

	route("GET "+base+"/profile/me", h.Auth.Me)
	route("PUT "+base+"/profile", h.Auth.UpdateProfile)
	route("GET "+base+"/profile/{id}", h.Auth.GetProfile)

	route("POST "+base+"/skills", h.Skills.CreateSkill)
	route("GET "+base+"/skills", h.Skills.ListSkills)
	route("GET "+base+"/skills/{id}", h.Skills.GetSkill)
	route("PUT "+base+"/skills/{id}", h.Skills.UpdateSkill)
	route("DELETE "+base+"/skills/{id}", h.Skills.DeleteSkill)

	mux.Handle("POST "+base+"/requests", authed(middleware.NormalizeSkillRequest(http.HandlerFunc(h.Requests.CreateRequest))))
	route("GET "+base+"/requests", h.Requests.ListRequests)
	route("GET "+base+"/requests/{id}", h.Requests.GetRequest)
	route("PUT "+base+"/requests/{id}", h.Requests.ResolveRequest)
	route("DELETE "+base+"/requests/{id}", h.Requests.DeleteRequest)

	route("GET "+base+"/transactions", h.Transactions.ListTransactions)
	route("GET "+base+"/transactions/{id}", h.Transactions.GetTransaction)

	route("POST "+base+"/messages", h.Messages.SendMessage)
	route("GET "+base+"/messages", h.Messages.ListMessages)
	route("GET "+base+"/messages/conversations", h.Messages.ListConversations)

	route("POST "+base+"/ratings", h.Ratings.Rate)
	route("GET "+base+"/ratings/{user_id}", h.Ratings.ListForUser)

	adminRoute("GET "+base+"/admin/stats", h.Admin.GetStats)
	adminRoute("GET "+base+"/admin/users", h.Admin.ListUsers)
	adminRoute("POST "+base+"/admin/users/{id}/balance", h.Admin.AdjustBalance)
	adminRoute("GET "+base+"/admin/skills", h.Admin.ListPendingSkills)
	adminRoute("PATCH "+base+"/admin/skills/{id}", h.Admin.VerifySkill)

	return mux
}
