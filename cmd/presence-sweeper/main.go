// presence-sweeper marks stale online records offline. A record is stale
// when its last_changed timestamp is older than the TTL, which catches
// sessions that died without running their teardown write.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/huddlechat/huddle/internal/config"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
	"github.com/huddlechat/huddle/internal/store/firestoredb"
	"github.com/huddlechat/huddle/internal/store/mongostore"
)

func main() {
	cfg := config.Load()

	interval := cfg.PresenceTTL / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	ctx := context.Background()

	var st store.PresenceStore
	switch cfg.Backend {
	case "firestore":
		fs, err := firestoredb.New(ctx, cfg.FirestoreProjectID)
		if err != nil {
			log.Fatalf("[sweeper] firestore init failed: %v", err)
		}
		defer fs.Close()
		st = fs
	case "mongo":
		ms, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("[sweeper] mongo init failed: %v", err)
		}
		defer ms.Close(ctx)
		st = ms
	default:
		log.Fatalf("[sweeper] BACKEND must be firestore or mongo, got %q", cfg.Backend)
	}

	go func() {
		http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + getEnv("PORT", "8081")
		log.Printf("[sweeper] health endpoint listening on %s", addr)
		log.Fatal(http.ListenAndServe(addr, nil))
	}()

	log.Printf("[sweeper] sweeping every %s, ttl=%s", interval, cfg.PresenceTTL)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweep(ctx, st, cfg.PresenceTTL)
		<-ticker.C
	}
}

func sweep(ctx context.Context, st store.PresenceStore, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	records, err := st.ListOnline(ctx)
	if err != nil {
		log.Printf("[sweeper] list online failed: %v", err)
		return
	}

	cutoff := time.Now().Add(-ttl)
	swept := 0
	for _, rec := range records {
		if rec.LastChanged.IsZero() || rec.LastChanged.After(cutoff) {
			continue
		}
		if err := st.SetStatus(ctx, rec.UID, models.StatusOffline); err != nil {
			log.Printf("[sweeper] mark offline uid=%s failed: %v", rec.UID, err)
			continue
		}
		swept++
	}
	if swept > 0 {
		log.Printf("[sweeper] marked %d stale records offline (of %d online)", swept, len(records))
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
