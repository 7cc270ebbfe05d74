package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"buyershow-server/modules/common/config"
	"buyershow-server/modules/common/database"
	"buyershow-server/modules/common/identity"
	redisclient "buyershow-server/modules/common/redis"
	"buyershow-server/modules/common/storage"
	"buyershow-server/modules/flow"
	"buyershow-server/modules/generation"
	"buyershow-server/modules/history"
	"buyershow-server/modules/nanobanana"
	"buyershow-server/modules/products"
	"buyershow-server/modules/prompt"
	"buyershow-server/modules/upload"
)

// enableCORS - permissive CORS; the frontend runs on its own origin
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheck - liveness endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "buyershow-server",
	})
}

// newStore - persistence backend per configuration
func newStore(cfg *config.Config) (database.Store, error) {
	if cfg.StoreBackend == config.StoreBackendSupabase {
		return database.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	}
	log.Println("⚠️  Using in-memory store; data is lost on restart")
	return database.NewMemoryStore(), nil
}

// newFiles - file storage backend per configuration
func newFiles(cfg *config.Config) storage.Files {
	if cfg.StoreBackend == config.StoreBackendSupabase {
		return storage.NewSupabaseFiles(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBaseURL)
	}
	return storage.NewMemoryFiles()
}

// newSnapshots - wizard snapshot backend per configuration
func newSnapshots(cfg *config.Config) (flow.SnapshotStore, error) {
	if cfg.SnapshotBackend == config.SnapshotBackendRedis {
		rdb, err := redisclient.Connect(cfg)
		if err != nil {
			return nil, err
		}
		return flow.NewRedisSnapshotStore(rdb), nil
	}
	log.Println("⚠️  Using in-memory snapshots; sessions do not survive a restart")
	return flow.NewMemorySnapshotStore(), nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize store: %v", err)
	}
	files := newFiles(cfg)
	snapshots, err := newSnapshots(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize snapshot store: %v", err)
	}

	generator, err := nanobanana.NewClient(nanobanana.Config{
		APIKey:         cfg.GeminiAPIKey,
		BaseURL:        cfg.GeminiBaseURL,
		Model:          cfg.GeminiModel,
		ProxyURL:       cfg.ProxyURL,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize generation client: %v", err)
	}

	generationService := generation.NewService(generation.Options{
		Store:              store,
		Files:              files,
		Generator:          generator,
		Model:              cfg.GeminiModel,
		DefaultTemperature: cfg.DefaultTemperature,
		MaxOutputTokens:    cfg.MaxOutputTokens,
	})
	uploadService := upload.NewService(store, files, cfg.UploadMaxSize)
	historyService := history.NewService(store)

	ident := identity.NewHeaderProvider()
	development := cfg.IsDevelopment()

	hub := flow.NewHub()
	manager := flow.NewManager(snapshots, uploadService, generationService, hub)
	manager.StartCleanup(context.Background(), 10*time.Minute, time.Hour)

	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	generation.NewHandler(generationService, ident, development).RegisterRoutes(r)
	upload.NewHandler(uploadService, ident, development).RegisterRoutes(r)
	history.NewHandler(historyService, ident, development).RegisterRoutes(r)
	products.NewHandler(store, ident, development).RegisterRoutes(r)
	prompt.NewHandler(ident).RegisterRoutes(r)
	flow.NewHandler(manager, hub, ident, development).RegisterRoutes(r)

	log.Printf("🚀 BuyerShow server starting on port %s", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📡 Flow WebSocket: ws://localhost:%s/ws/flow", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
