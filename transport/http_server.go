// transport/http_server.go
package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"pricecache/raft"
)

// HTTPServer exposes a raft.RPCServer's RequestVote/AppendEntries handlers
// as JSON-over-HTTP endpoints, replacing the teacher's gRPC server while
// keeping its Start/Stop shape.
type HTTPServer struct {
	rpc      raft.RPCServer
	node     *raft.Node
	listener net.Listener
	server   *http.Server
}

// NewHTTPServer wires a consensus node's RPC handlers and health info into
// an HTTP server. node is kept separately from rpc because Health isn't
// part of the RPCServer interface — it only reports role/term for liveness
// checks, never mutates consensus state.
func NewHTTPServer(rpc raft.RPCServer, node *raft.Node) *HTTPServer {
	return &HTTPServer{rpc: rpc, node: node}
}

// Start binds the listener and begins serving in the background.
func (s *HTTPServer) Start(address string) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = lis

	router := mux.NewRouter()
	router.HandleFunc("/raft/request_vote", s.handleRequestVote).Methods(http.MethodPost)
	router.HandleFunc("/raft/append_entries", s.handleAppendEntries).Methods(http.MethodPost)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.server = &http.Server{Handler: router}
	go s.server.Serve(lis)

	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(context.Background())
}

func (s *HTTPServer) handleRequestVote(w http.ResponseWriter, r *http.Request) {
	var req raft.RequestVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.rpc.HandleRequestVote(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resp)
}

func (s *HTTPServer) handleAppendEntries(w http.ResponseWriter, r *http.Request) {
	var req raft.AppendEntriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.rpc.HandleAppendEntries(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resp)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, raft.HealthResponse{
		NodeID: s.node.ID(),
		Role:   s.node.Role(),
		Term:   s.node.CurrentTerm(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
