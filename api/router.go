// Package api binds the node's HTTP surface: health/leader discovery,
// client queries, cache reconciliation endpoints, and the Prometheus
// metrics route. Raft's own RPC endpoints are mounted separately by the
// transport package.
package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricecache/cache"
	"pricecache/cluster"
	"pricecache/listings"
	"pricecache/raft"
	"pricecache/reconcile"
)

// Server wires the node's dependencies into gorilla/mux routes.
type Server struct {
	node       *raft.Node
	members    *cluster.Membership
	dir        *cache.Dir
	upstream   *listings.Client
	reconciler *reconcile.Reconciler
	router     *mux.Router
}

// NewServer builds the HTTP API for one node.
func NewServer(node *raft.Node, members *cluster.Membership, dir *cache.Dir, upstream *listings.Client, reconciler *reconcile.Reconciler) *Server {
	s := &Server{
		node:       node,
		members:    members,
		dir:        dir,
		upstream:   upstream,
		reconciler: reconciler,
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/leader", s.handleLeader).Methods(http.MethodGet)
	r.HandleFunc("/fetch", s.handleFetch).Methods(http.MethodPost)
	r.HandleFunc("/client", s.handleClient).Methods(http.MethodPost)
	r.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	r.HandleFunc("/list-cache", s.handleListCache).Methods(http.MethodGet)
	r.HandleFunc("/cache-meta", s.handleCacheMeta).Methods(http.MethodGet)
	r.HandleFunc("/get-cache-file", s.handleGetCacheFile).Methods(http.MethodGet)
	r.HandleFunc("/reconcile", s.handleReconcile).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.router = r
	return s
}

// Router returns the bound mux router, ready to hand to an http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

// requestIDMiddleware stamps every response with a fresh correlation id in
// the X-Request-Id header. The id is not written to this node's log.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.New().String())
		next.ServeHTTP(w, r)
	})
}
