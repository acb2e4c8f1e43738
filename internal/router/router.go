package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"alalim-backend/internal/handlers"
	"alalim-backend/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *handlers.AuthHandler
	User      *handlers.UserHandler
	Chat      *handlers.ChatHandler
	Reading   *handlers.ReadingHandler
	Media     *handlers.MediaHandler
	Tasbih    *handlers.TasbihHandler
	Feedback  *handlers.FeedbackHandler
	Catalog   *handlers.CatalogHandler
	Dashboard *handlers.DashboardHandler

	// Updates serves the job status websocket; Live the voice conversation.
	Updates http.HandlerFunc
	Live    http.Handler
}

func New(
	jwtAuth *middleware.JWTAuth,
	authLimiter *middleware.RateLimiter,
	h Handlers,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.Refresh)
			r.Post("/logout", h.Auth.Logout)
		})

		// ──── Catalog Routes (public) ────
		r.Get("/catalog/languages", h.Catalog.Languages)
		r.Get("/catalog/translations/{language}", h.Catalog.Translations)
		r.Get("/quran/surahs", h.Catalog.Surahs)
		r.Get("/hadith/books", h.Catalog.HadithBooks)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			// ──── User & Settings Routes ────
			r.Route("/user", func(r chi.Router) {
				r.Get("/me", h.User.GetMe)
				r.Put("/me", h.User.UpdateMe)
				r.Delete("/me", h.User.DeleteMe)
				r.Get("/settings", h.User.GetSettings)
				r.Put("/settings", h.User.UpdateSettings)
			})

			// ──── Chat Routes ────
			r.Route("/chat", func(r chi.Router) {
				r.Get("/messages", h.Chat.Messages)
				r.Post("/messages", h.Chat.Send)
				r.Delete("/messages", h.Chat.Clear)
				r.Post("/stream", h.Chat.Stream)
				r.Post("/transcribe", h.Media.Dictate)
			})

			// ──── Reading Routes ────
			r.Post("/quran/surahs/{number}/read", h.Reading.ReadSurah)
			r.Post("/hadith/search", h.Reading.SearchHadith)
			r.Post("/tafsir", h.Reading.Tafsir)
			r.Post("/books/read", h.Reading.ReadBook)

			// ──── Job Routes ────
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/{id}", h.Reading.GetJob)
				r.Delete("/{id}", h.Reading.CancelJob)
			})

			// ──── Media & Audio Routes ────
			r.Route("/media", func(r chi.Router) {
				r.Post("/analyze", h.Media.Analyze)
				r.Post("/youtube", h.Media.YouTube)
				r.Post("/images", h.Media.Images)
			})
			r.Route("/audio", func(r chi.Router) {
				r.Post("/speech", h.Media.Speech)
				r.Post("/transcribe", h.Media.Transcribe)
			})

			// ──── Tasbih Routes ────
			r.Route("/tasbih", func(r chi.Router) {
				r.Get("/", h.Tasbih.Get)
				r.Post("/increment", h.Tasbih.Increment)
				r.Post("/reset", h.Tasbih.Reset)
				r.Put("/target", h.Tasbih.SetTarget)
			})

			r.Post("/feedback", h.Feedback.Submit)
			r.Get("/dashboard/daily-verse", h.Dashboard.DailyVerse)
		})

		// ──── WebSockets (token in query) ────
		r.Get("/ws", h.Updates)
		r.Get("/live", h.Live.ServeHTTP)
	})

	return r
}
