// Command carnet is the knowledge-capture service: an embedded browsing
// surface with reliable load detection, content extraction, and a research
// pipeline that analyzes and persists captured pages.
//
// Usage:
//
//	carnet                          # env-configured, HTTP API on :8087
//	carnet -config carnet.yaml      # YAML config
//	MCP_TRANSPORT=stdio carnet      # additionally serve research tools over MCP
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/carnet/extract"
	"github.com/hazyhaar/carnet/idgen"
	"github.com/hazyhaar/carnet/kit"
	"github.com/hazyhaar/carnet/llm"
	"github.com/hazyhaar/carnet/nav"
	"github.com/hazyhaar/carnet/notify"
	"github.com/hazyhaar/carnet/research"
	"github.com/hazyhaar/carnet/store"
	"github.com/hazyhaar/carnet/surface"
)

func main() {
	configPath := flag.String("config", "", "path to carnet.yaml config file")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	var lvl slog.Level
	switch *logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath); err != nil {
		logger.Error("carnet: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Knowledge store.
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// Analysis client.
	provider := llm.NewAnthropic("")
	if cfg.LLM.Model != "" {
		provider = provider.WithModel(cfg.LLM.Model)
	}
	client := llm.NewClient(provider)
	if !client.Available() {
		logger.Warn("no analysis backend configured, analyze and summary will fail")
	}

	// Extraction engine and notification sink.
	cfg.Extract.Logger = logger
	engine := extract.New(cfg.Extract)
	notifier := notify.NewLog(logger)

	// Rendering surface.
	surf, err := surface.NewRod(ctx, surface.Config{
		RemoteURL: cfg.Surface.RemoteURL,
		Headless:  cfg.Surface.Headless,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("open surface: %w", err)
	}
	defer surf.Close()

	// Research pipeline.
	cfg.Research.Logger = logger
	pipeline := research.New(engine, client, st, notifier, cfg.Research)

	// Navigation controller, wired to persist history and feed the pipeline.
	newVisitID := idgen.Prefixed("vis_", idgen.Default)
	cfg.Nav.Logger = logger
	controller := nav.New(surf, cfg.Nav, nav.Hooks{
		OnLoaded: func(ctx context.Context, url, title string) {
			if err := st.AppendHistory(ctx, &store.HistoryRecord{
				ID:        newVisitID(),
				URL:       url,
				Title:     title,
				VisitedAt: time.Now().UnixMilli(),
			}); err != nil {
				logger.Warn("history append", "error", err)
			}
			// Every loaded page is extracted; entry creation is gated on
			// research mode inside Capture.
			if _, err := pipeline.Capture(ctx, surf, url, title); err != nil {
				logger.Warn("page capture skipped", "url", url, "error", err)
			}
		},
		OnFailed: func(v *nav.ErrorView) {
			notifier.Show(fmt.Sprintf("Failed to load %s: %s", v.URL, v.Message), notify.LevelError)
		},
		OnLoadingCleared: func() {
			logger.Debug("loading indicator cleared")
		},
	})
	defer controller.Close()

	// Optional MCP server for the research tools.
	if env("MCP_TRANSPORT", "") == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "carnet", Version: "1.0.0"}, nil)
		pipeline.RegisterMCP(mcpSrv)
		go func() {
			logger.Info("mcp server starting", "transport", "stdio")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("mcp server", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router(controller, pipeline, st, surf),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func router(controller *nav.Controller, pipeline *research.Pipeline, st *store.Store, surf surface.Surface) http.Handler {
	r := chi.NewRouter()
	r.Use(requestContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/navigate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
			writeError(w, 400, errors.New("body must be {\"input\": \"<address or query>\"}"))
			return
		}
		writeJSON(w, 202, controller.Navigate(req.Input))
	})

	r.Post("/api/stop", func(w http.ResponseWriter, r *http.Request) {
		controller.Stop(r.Context())
		writeJSON(w, 200, map[string]bool{"stopped": true})
	})

	r.Post("/api/refresh", func(w http.ResponseWriter, _ *http.Request) {
		sess := controller.Refresh()
		if sess == nil {
			writeError(w, 409, errors.New("nothing to refresh"))
			return
		}
		writeJSON(w, 202, sess)
	})

	r.Get("/api/session", func(w http.ResponseWriter, _ *http.Request) {
		sess := controller.Session()
		if sess == nil {
			writeError(w, 404, errors.New("no session"))
			return
		}
		writeJSON(w, 200, sess)
	})

	r.Get("/api/history", func(w http.ResponseWriter, r *http.Request) {
		recs, err := st.History(r.Context(), queryInt(r, "limit", 100))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"history": recs})
	})

	r.Route("/api/research", func(r chi.Router) {
		r.Post("/toggle", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, map[string]bool{"active": pipeline.Toggle(r.Context())})
		})

		r.Get("/entries", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]any{"entries": pipeline.Entries()})
		})

		// Manual capture of the currently loaded page.
		r.Post("/capture", func(w http.ResponseWriter, r *http.Request) {
			sess := controller.Session()
			if sess == nil || (sess.Status != nav.StatusLoaded && sess.Status != nav.StatusTimedOut) {
				writeError(w, 409, errors.New("no loaded page to capture"))
				return
			}
			url := sess.FinalURL
			if url == "" {
				url = sess.TargetURL
			}
			entry, err := pipeline.ProcessPage(r.Context(), surf, url, sess.Title)
			if err != nil {
				code := 502
				if errors.Is(err, research.ErrInactive) {
					code = 409
				}
				writeError(w, code, err)
				return
			}
			writeJSON(w, 201, entry)
		})

		r.Post("/{id}/analyze", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if err := pipeline.Analyze(r.Context(), id); err != nil {
				if errors.Is(err, research.ErrNotFound) {
					writeError(w, 404, err)
					return
				}
				// The entry carries the error; report it alongside.
				writeJSON(w, 502, map[string]any{"error": err.Error(), "entry": pipeline.Entry(id)})
				return
			}
			writeJSON(w, 200, pipeline.Entry(id))
		})

		r.Post("/{id}/save", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if err := pipeline.Save(r.Context(), id); err != nil {
				if errors.Is(err, research.ErrNotFound) {
					writeError(w, 404, err)
					return
				}
				writeError(w, 502, err)
				return
			}
			writeJSON(w, 200, pipeline.Entry(id))
		})

		r.Delete("/", func(w http.ResponseWriter, _ *http.Request) {
			pipeline.Clear()
			writeJSON(w, 200, map[string]bool{"cleared": true})
		})

		r.Get("/export", func(w http.ResponseWriter, r *http.Request) {
			format := r.URL.Query().Get("format")
			if format == "" {
				format = research.FormatMarkdown
			}
			data, err := pipeline.Export(format)
			if err != nil {
				writeError(w, 400, err)
				return
			}
			switch format {
			case research.FormatJSON:
				w.Header().Set("Content-Type", "application/json")
			case research.FormatHTML:
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
			default:
				w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			}
			w.WriteHeader(200)
			w.Write(data)
		})

		r.Get("/summary", func(w http.ResponseWriter, r *http.Request) {
			text, err := pipeline.Summary(r.Context())
			if err != nil {
				if errors.Is(err, research.ErrNoEntries) {
					writeError(w, 409, err)
					return
				}
				writeError(w, 502, err)
				return
			}
			writeJSON(w, 200, map[string]string{"summary": text})
		})
	})

	r.Get("/api/saved", func(w http.ResponseWriter, r *http.Request) {
		entries, err := st.ListEntries(r.Context(), queryInt(r, "limit", 100))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"entries": entries})
	})

	r.Delete("/api/saved/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]bool{"deleted": true})
	})

	return r
}

// requestContext tags each request with a correlation ID, honoring a
// client-supplied X-Request-ID when it is a valid UUID.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if _, err := idgen.Parse(reqID); err != nil {
			reqID = idgen.New()
		}
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return def
	}
	return n
}
