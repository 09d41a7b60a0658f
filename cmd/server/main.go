package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/huddlechat/huddle/internal/ai"
	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/config"
	"github.com/huddlechat/huddle/internal/handlers"
	appMiddleware "github.com/huddlechat/huddle/internal/middleware"
	"github.com/huddlechat/huddle/internal/media"
	"github.com/huddlechat/huddle/internal/session"
	"github.com/huddlechat/huddle/internal/store"
	"github.com/huddlechat/huddle/internal/store/firestoredb"
	"github.com/huddlechat/huddle/internal/store/memstore"
	"github.com/huddlechat/huddle/internal/store/mongostore"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Auth provider: Firebase when credentials are configured, otherwise a
	// local anonymous-only provider for development.
	var provider auth.Provider
	if cfg.FirebaseCredentialsJSON != "" || cfg.FirestoreProjectID != "" {
		fb, err := auth.NewFirebaseProvider(ctx, auth.FirebaseConfig{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
		})
		if err != nil {
			log.Fatalf("firebase auth init failed: %v", err)
		}
		provider = fb
	} else {
		log.Printf("Warning: no Firebase credentials configured, using local anonymous auth")
		provider = auth.NewLocalProvider()
	}

	// Document store.
	var st store.Store
	switch cfg.Backend {
	case "firestore":
		fs, err := firestoredb.New(ctx, cfg.FirestoreProjectID)
		if err != nil {
			log.Fatalf("firestore init failed: %v", err)
		}
		defer fs.Close()
		st = fs
	case "mongo":
		ms, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("mongo init failed: %v", err)
		}
		defer ms.Close(ctx)
		st = ms
	default:
		log.Printf("Warning: using in-memory store, data is not persisted")
		st = memstore.New()
	}

	// Blob storage for message attachments and profile pictures.
	var blobs media.BlobStore
	if cfg.StorageBucket != "" {
		gcs, err := media.NewGCSBlobStore(ctx, cfg.StorageBucket)
		if err != nil {
			log.Fatalf("storage init failed: %v", err)
		}
		defer gcs.Close()
		blobs = gcs
	} else {
		log.Printf("Warning: no storage bucket configured, keeping uploads in memory")
		blobs = media.NewMemoryBlobStore("")
	}
	if cfg.SafeSearch {
		blobs = &media.ScreenedBlobStore{Inner: blobs}
	}

	// AI responder.
	var responder ai.Responder
	if cfg.GeminiAPIKey != "" {
		gr, err := ai.NewGeminiResponder(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("gemini init failed: %v", err)
		}
		responder = gr
	} else {
		log.Printf("Warning: no Gemini API key configured, using mock responder")
		responder = &ai.MockResponder{}
	}

	sessions := session.NewManager(st, provider, blobs, responder, cfg.JWTSecret, cfg.JWTExpiration)

	authHandler := handlers.NewAuthHandler(sessions)
	profileHandler := handlers.NewProfileHandler(st, blobs)
	routeHandler := handlers.NewRouteHandler()
	groupHandler := handlers.NewGroupHandler(st)
	messageHandler := handlers.NewMessageHandler(sessions, st)
	presenceHandler := handlers.NewPresenceHandler(st)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.SessionAuth(sessions))

			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpsertProfile)
			r.Post("/profile/photo", profileHandler.UploadPhoto)

			r.Get("/route", routeHandler.Resolve)

			r.Route("/groups", func(r chi.Router) {
				r.Get("/discover", groupHandler.Discover)
				r.Get("/mine", groupHandler.Mine)
				r.Post("/", groupHandler.Create)

				r.Route("/{groupId}", func(r chi.Router) {
					r.Get("/", groupHandler.Get)
					r.Post("/join", groupHandler.Join)
					r.Post("/select", groupHandler.Select)
					r.Get("/channels", groupHandler.Channels)

					r.Route("/channels/{channelId}", func(r chi.Router) {
						r.Post("/select", groupHandler.SelectChannel)
						r.Get("/messages", messageHandler.List)
						r.Get("/messages/stream", messageHandler.Stream)
						r.Post("/messages", messageHandler.Send)
						r.Post("/images", messageHandler.SendImage)
						r.Post("/voice", messageHandler.SendVoice)
						r.Post("/gifs", messageHandler.SendGIF)
					})
				})
			})

			r.Get("/users/online", presenceHandler.Online)
			r.Get("/users/{uid}/status", presenceHandler.Status)
		})
	})

	srv := &http.Server{Addr: cfg.ServerAddress, Handler: r}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Printf("shutting down, writing offline presence for live sessions")
		sessions.Shutdown()
		srv.Shutdown(context.Background())
	}()

	log.Printf("huddle API server starting on %s", cfg.ServerAddress)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}
}
