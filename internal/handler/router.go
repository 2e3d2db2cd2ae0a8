package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/leo/leo-picture-client/internal/handler/chat"
	"github.com/leo/leo-picture-client/internal/handler/edit"
	"github.com/leo/leo-picture-client/internal/handler/stream"
	"github.com/leo/leo-picture-client/internal/handler/user"
	"github.com/leo/leo-picture-client/internal/middleware"
	"github.com/leo/leo-picture-client/internal/model/response"
	accountService "github.com/leo/leo-picture-client/internal/service/account"
	aiService "github.com/leo/leo-picture-client/internal/service/ai"
	editService "github.com/leo/leo-picture-client/internal/service/edit"
	"github.com/leo/leo-picture-client/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(accounts *accountService.Service, aiSvc *aiService.Service, hub *editService.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)
	r.Use(middleware.Authenticate(accounts))

	r.Route("/api", func(api chi.Router) {
		user.New(accounts).RegisterRoutes(api)

		if aiSvc != nil {
			chat.New(aiSvc).RegisterRoutes(api)
			stream.New(aiSvc).RegisterRoutes(api)
		} else {
			api.HandleFunc("/ai/chat", func(w http.ResponseWriter, r *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, response.CodeSystemError, "ai unavailable")
			})
		}

		edit.New(hub).RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondSuccess(w, "ok")
	})

	return r
}
