package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof" // register handlers
	"regexp"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zephyrtronium/toothy/blocklist"
	"github.com/zephyrtronium/toothy/command"
	"github.com/zephyrtronium/toothy/dispatch"
	"github.com/zephyrtronium/toothy/extension"
)

// api is the HTTP API server.
type api struct {
	state    *dispatch.State
	blocks   *blocklist.Checker
	gateway  extension.Gateway
	registry *command.Registry
}

func (a *api) serve(ctx context.Context, listen string, metrics []prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorMemStatsMetricsDisabled(),
		collectors.WithGoCollectorRuntimeMetrics(
			collectors.GoRuntimeMetricsRule{
				Matcher: regexp.MustCompile(`^(/gc/gogc:percent|/gc/gomemlimit:bytes|/gc/heap/allocs:bytes|/gc/heap/goal:bytes|/memory/classes/total:bytes|/sched/gomaxprocs:threads|/sched/goroutines:goroutines|/sched/latencies:seconds)$`),
			},
		),
	))
	reg.MustRegister(metrics...)
	mux := http.NewServeMux()
	opts := promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, opts))
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	a.routes(mux)
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("couldn't start API server: %w", err)
	}
	srv := http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}
	go func() {
		slog.InfoContext(ctx, "HTTP API server", slog.Any("addr", l.Addr()))
		err := srv.Serve(l)
		if err == http.ErrServerClosed {
			return
		}
		slog.ErrorContext(ctx, "HTTP API server closed", slog.Any("err", err))
	}()
	<-ctx.Done()
	// The context is now done, so it is obviously the wrong choice for
	// managing the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// routes registers the JSON API.
func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", a.apiStatus)
	mux.HandleFunc("GET /api/blacklist/{kind}/{id}", a.apiBlacklist)
	mux.HandleFunc("PUT /api/blacklist/{kind}/{id}", a.apiBlacklist)
	mux.HandleFunc("DELETE /api/blacklist/{kind}/{id}", a.apiBlacklist)
}

func jsonerror(w http.ResponseWriter, status int, msg string) {
	v := struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{
		Error:  msg,
		Status: status,
	}
	b, err := json.Marshal(&v)
	if err != nil {
		panic(err)
	}
	w.WriteHeader(status)
	w.Write(b)
}

func (a *api) apiStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "status"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	u := struct {
		Available  bool     `json:"available"`
		Uptime     string   `json:"uptime"`
		Guilds     int      `json:"guilds"`
		Latency    float64  `json:"latency_ms"`
		Extensions []string `json:"extensions"`
		Status     int      `json:"status"`
	}{
		Available:  a.state.Available(),
		Uptime:     time.Since(a.state.Start).Truncate(time.Second).String(),
		Guilds:     a.gateway.GuildCount(),
		Latency:    float64(a.gateway.Latency()) / float64(time.Millisecond),
		Extensions: a.registry.Extensions(),
		Status:     http.StatusOK,
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}

func (a *api) apiBlacklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "blacklist"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	kind, err := blocklist.ParseKind(r.PathValue("kind"))
	if err != nil {
		log.WarnContext(ctx, "bad request", slog.String("kind", r.PathValue("kind")))
		jsonerror(w, http.StatusNotFound, err.Error())
		return
	}
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPut, http.MethodDelete:
		blocked := r.Method == http.MethodPut
		log.InfoContext(ctx, "set", slog.Any("kind", kind), slog.String("id", id), slog.Bool("blocked", blocked))
		if err := a.blocks.Set(ctx, kind, id, blocked); err != nil {
			log.ErrorContext(ctx, "couldn't set", slog.Any("err", err))
			jsonerror(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	blocked, err := a.blocks.Check(ctx, kind, id)
	if err != nil {
		log.ErrorContext(ctx, "couldn't check", slog.Any("err", err))
		jsonerror(w, http.StatusInternalServerError, err.Error())
		return
	}
	u := struct {
		Kind        string `json:"kind"`
		ID          string `json:"id"`
		Blacklisted bool   `json:"blacklisted"`
		Status      int    `json:"status"`
	}{
		Kind:        kind.String(),
		ID:          id,
		Blacklisted: blocked,
		Status:      http.StatusOK,
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}
