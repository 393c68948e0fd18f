// Command canon-host runs the HTTP daemon that fronts a content-addressed
// Store and a registry of deployed guest WASM modules, grounded on
// cmd/cli/virtual_machine.go's vmInit/vmExecuteHandler pattern: gorilla/mux
// router, golang.org/x/time/rate limiter, structured logging via logrus,
// and .env loading via godotenv — re-pointed from a single /execute opcode
// endpoint at the canon wire protocol's /query, /tx, and /blob/{id} routes.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"synnergy-canon/canon"
	"synnergy-canon/canon/module"
	"synnergy-canon/canon/store"
	"synnergy-canon/canon/store/diskstore"
	"synnergy-canon/pkg/config"
	"synnergy-canon/pkg/utils"
)

var log = logrus.StandardLogger()

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canon_host_requests_total",
		Help: "HTTP requests served by the canon host daemon, by route and outcome.",
	}, []string{"route", "outcome"})
)

// deployment is a compiled guest module addressed by the Keccak256 hash of
// its bytecode, truncated to 20 bytes the same way
// core/virtual_machine.go's contract-address derivation does.
type deployment struct {
	mu     sync.Mutex
	module *module.GuestModule
}

type daemon struct {
	store   canon.Store
	invoker *module.HostInvoker
	cfg     *config.Config

	mu      sync.RWMutex
	modules map[common.Address]*deployment
}

func deriveAddress(code []byte) common.Address {
	return common.BytesToAddress(crypto.Keccak256(code)[12:])
}

func (d *daemon) deploy(code []byte) (common.Address, error) {
	gm, err := d.invoker.Compile(code)
	if err != nil {
		return common.Address{}, err
	}
	addr := deriveAddress(code)
	d.mu.Lock()
	d.modules[addr] = &deployment{module: gm}
	d.mu.Unlock()
	return addr, nil
}

func (d *daemon) lookup(addr common.Address) (*deployment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dep, ok := d.modules[addr]
	return dep, ok
}

type invokeRequest struct {
	Address string `json:"address"`
	Page    string `json:"page"` // hex-encoded [receiver][method id][args]
}

type invokeResponse struct {
	Page string `json:"page"`
}

func (d *daemon) handleDeploy(w http.ResponseWriter, r *http.Request) {
	code, err := os.ReadFile(r.URL.Query().Get("path"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		requestsTotal.WithLabelValues("deploy", "error").Inc()
		return
	}
	addr, err := d.deploy(code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		requestsTotal.WithLabelValues("deploy", "error").Inc()
		return
	}
	requestsTotal.WithLabelValues("deploy", "ok").Inc()
	_ = json.NewEncoder(w).Encode(map[string]string{"address": addr.Hex()})
}

func (d *daemon) handleInvoke(exportIsQuery bool) http.HandlerFunc {
	route := "tx"
	if exportIsQuery {
		route = "query"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req invokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			requestsTotal.WithLabelValues(route, "error").Inc()
			return
		}
		addr := common.HexToAddress(req.Address)
		dep, ok := d.lookup(addr)
		if !ok {
			http.Error(w, "no such deployment", http.StatusNotFound)
			requestsTotal.WithLabelValues(route, "error").Inc()
			return
		}
		page, err := hex.DecodeString(req.Page)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			requestsTotal.WithLabelValues(route, "error").Inc()
			return
		}

		dep.mu.Lock()
		inst, err := dep.module.Instantiate()
		dep.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			requestsTotal.WithLabelValues(route, "error").Inc()
			return
		}

		var out []byte
		if exportIsQuery {
			out, err = inst.CallQuery(page)
		} else {
			out, err = inst.CallTransaction(page)
		}
		if err != nil {
			var sig *canon.Signal
			if errors.As(err, &sig) {
				http.Error(w, sig.Error(), http.StatusUnprocessableEntity)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			requestsTotal.WithLabelValues(route, "error").Inc()
			return
		}

		requestsTotal.WithLabelValues(route, "ok").Inc()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(invokeResponse{Page: hex.EncodeToString(out)})
	}
}

func (d *daemon) handleBlob(w http.ResponseWriter, r *http.Request) {
	idHex := mux.Vars(r)["id"]
	raw, err := hex.DecodeString(idHex)
	if err != nil || len(raw) != canon.IDLen {
		http.Error(w, "bad id", http.StatusBadRequest)
		requestsTotal.WithLabelValues("blob", "error").Inc()
		return
	}
	var id canon.Id
	copy(id[:], raw)

	switch r.Method {
	case http.MethodGet:
		buf := make([]byte, 1<<20)
		n, err := d.store.Fetch(id, buf)
		if err != nil {
			if errors.Is(err, canon.ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			requestsTotal.WithLabelValues("blob", "error").Inc()
			return
		}
		requestsTotal.WithLabelValues("blob", "ok").Inc()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(buf[:n])
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			requestsTotal.WithLabelValues("blob", "error").Inc()
			return
		}
		gotID, err := d.store.PutRaw(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			requestsTotal.WithLabelValues("blob", "error").Inc()
			return
		}
		requestsTotal.WithLabelValues("blob", "ok").Inc()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": gotID.String()})
	}
}

func rateLimited(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	_ = godotenv.Load()

	lvl := utils.EnvOrDefault("CANON_LOG_LEVEL", "info")
	lv, err := logrus.ParseLevel(lvl)
	if err != nil {
		log.Fatalf("invalid log level %q: %v", lvl, err)
	}
	log.SetLevel(lv)
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Warnf("config: %v, using defaults", err)
		d := config.Default()
		cfg = &d
	}

	var backing canon.Store
	switch cfg.Store.Backend {
	case "disk":
		ds, err := diskstore.New(cfg.Store.DiskPath)
		if err != nil {
			log.Fatalf("disk store: %v", err)
		}
		backing = ds
	default:
		backing = store.NewMemStore()
	}

	zlog, _ := zap.NewProduction()
	defer zlog.Sync()

	if cfg.Pinning.Enabled {
		pinned, err := store.NewPinningStore(backing, store.PinningConfig{
			GatewayURL:       cfg.Pinning.GatewayURL,
			CacheDir:         cfg.Pinning.CacheDir,
			CacheSizeEntries: cfg.Pinning.CacheEntries,
			GatewayTimeout:   time.Duration(cfg.Pinning.TimeoutSeconds) * time.Second,
		}, zlog.Sugar())
		if err != nil {
			log.Fatalf("pinning store: %v", err)
		}
		backing = pinned
		log.Infof("mirroring blobs to gateway %s", cfg.Pinning.GatewayURL)
	}

	d := &daemon{
		store:   backing,
		invoker: module.NewHostInvoker(backing, zlog.Sugar()),
		cfg:     cfg,
		modules: make(map[common.Address]*deployment),
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.HTTP.RateLimitPerSec), cfg.HTTP.RateLimitBurst)

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return rateLimited(limiter, next) })
	r.HandleFunc("/deploy", d.handleDeploy).Methods(http.MethodPost)
	r.HandleFunc("/query", d.handleInvoke(true)).Methods(http.MethodPost)
	r.HandleFunc("/tx", d.handleInvoke(false)).Methods(http.MethodPost)
	r.HandleFunc("/blob/{id}", d.handleBlob).Methods(http.MethodGet, http.MethodPut)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(cfg.HTTP.MetricsAddr, metricsMux); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("canon-host listening on %s (metrics on %s)", cfg.HTTP.ListenAddr, cfg.HTTP.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("canon-host: %v", err)
	}
	fmt.Println("canon-host stopped")
}
