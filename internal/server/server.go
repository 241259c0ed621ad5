package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// TokenHeader carries the per-daemon secret on every request.
const TokenHeader = "X-Daemonenv-Token"

type DaemonServer struct {
	Status Status
	Host   string
	Port   int
	token  string
	srv    *http.Server
	ln     net.Listener // pre-bound listener to avoid races
}

func NewDaemonServer(status Status, token string) (*DaemonServer, error) {
	ds := &DaemonServer{
		Status: status,
		token:  token,
	}

	ds.srv = &http.Server{
		Handler:           ds.Handler(),
		ReadHeaderTimeout: 3 * time.Second,
	}

	// Bind to any free port on IPv4 localhost. Fallback to IPv6 if needed.
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		ln, err = net.Listen("tcp6", "[::1]:0")
		if err != nil {
			return nil, fmt.Errorf("cannot find free port: %w", err)
		}
	}
	ds.ln = ln
	addr := ln.Addr().(*net.TCPAddr)
	ds.Host = addr.IP.String()
	ds.Port = addr.Port
	ds.srv.Addr = ln.Addr().String()

	return ds, nil
}

// Handler returns the token-protected routes.
func (ds *DaemonServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", ds.auth(ds.handleHealth))
	mux.HandleFunc("GET /environment", ds.auth(ds.handleEnvironment))
	return mux
}

func (ds *DaemonServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ds.token == "" || r.Header.Get(TokenHeader) != ds.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (ds *DaemonServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (ds *DaemonServer) handleEnvironment(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ds.Status)
}

// Serve blocks until Shutdown.
func (ds *DaemonServer) Serve() error {
	err := ds.srv.Serve(ds.ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (ds *DaemonServer) Shutdown(ctx context.Context) error {
	return ds.srv.Shutdown(ctx)
}
