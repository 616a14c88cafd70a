package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/config"
	"github.com/pathwise/pathwise/internal/mapping"
	"github.com/pathwise/pathwise/internal/resolver"
	"github.com/spf13/cobra"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to pathwise.hcl")
}

var rootCmd = &cobra.Command{
	Use:   "pathwise",
	Short: "Pathwise: request-path resolution and mapping for hierarchical content stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeStore, err := cfg.OpenStore()
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()

		holder := mapping.NewHolder()
		watcher := mapping.NewWatcher(&mapping.Builder{Store: st, MapRoot: cfg.MapRoot}, holder)
		if err := watcher.Start(cmd.Context()); err != nil {
			return fmt.Errorf("initial index build: %w", err)
		}
		defer watcher.Close()

		engine := resolver.New(st, holder)

		mux := http.NewServeMux()
		mux.HandleFunc("GET /resolve", func(w http.ResponseWriter, r *http.Request) {
			res, err := engine.Resolve(r.Context(), requestContext(r), r.URL.Query().Get("path"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, res)
		})
		mux.HandleFunc("GET /map", func(w http.ResponseWriter, r *http.Request) {
			mapped := engine.Map(requestContext(r), r.URL.Query().Get("path"))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprintln(w, mapped)
		})
		// Everything else is content: resolve the request path itself.
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			host, port := splitHostPort(r.Host)
			ctx := &api.RequestContext{Scheme: "http", Host: host, Port: port, Method: r.Method}
			res, err := engine.Resolve(r.Context(), ctx, r.URL.Path)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			switch {
			case res.Type == api.TypeRedirect:
				http.Redirect(w, r, res.Properties[api.PropRedirectTarget], http.StatusFound)
			case res.NonExisting():
				http.Error(w, "not found: "+res.Path, http.StatusNotFound)
			case res.Star():
				writeJSON(w, res)
			default:
				node, err := engine.GetResource(r.Context(), res.Path)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				writeJSON(w, map[string]any{"resource": node, "resolved": res})
			}
		})

		log.Printf("pathwise: listening on %s", cfg.Listen)
		return http.ListenAndServe(cfg.Listen, mux)
	},
}

// requestContext lifts the caller-supplied authority (query parameters,
// falling back to the request's own Host header) into the engine's
// request context.
func requestContext(r *http.Request) *api.RequestContext {
	q := r.URL.Query()
	ctx := &api.RequestContext{
		Scheme:      q.Get("scheme"),
		Host:        q.Get("host"),
		Port:        -1,
		Method:      q.Get("method"),
		ContextPath: q.Get("contextPath"),
	}
	if p := q.Get("port"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			ctx.Port = v
		}
	}
	if ctx.Host == "" {
		ctx.Host, ctx.Port = splitHostPort(r.Host)
	}
	return ctx
}

// splitHostPort splits an HTTP Host header into host and port, with -1
// standing in for an absent port.
func splitHostPort(hostport string) (string, int) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, -1
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return hostport, -1
	}
	return host, port
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("serve: encode response: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// newEngine wires a store, a built index and an engine for the one-shot
// commands.
func newEngine(ctx context.Context) (*resolver.Engine, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, closeStore, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, err
	}
	holder := mapping.NewHolder()
	watcher := mapping.NewWatcher(&mapping.Builder{Store: st, MapRoot: cfg.MapRoot}, holder)
	if err := watcher.Start(ctx); err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("index build: %w", err)
	}
	cleanup := func() error {
		watcher.Close()
		return closeStore()
	}
	return resolver.New(st, holder), cleanup, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
