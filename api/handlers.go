package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pricecache/cache"
	"pricecache/listings"
	"pricecache/query"
	"pricecache/raft"
)

type healthResponse struct {
	Status string `json:"status"`
	NodeID int    `json:"node_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", NodeID: s.node.ID()})
}

type leaderResponse struct {
	LeaderID int `json:"leader_id"`
	ThisNode int `json:"this_node"`
}

func (s *Server) handleLeader(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, leaderResponse{LeaderID: s.node.LeaderID(), ThisNode: s.node.ID()})
}

type fetchRequest struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Make    string `json:"make"`
	Model   string `json:"model"`
}

type fetchResponse struct {
	NumCars int    `json:"num_cars"`
	City    string `json:"city"`
	Model   string `json:"model"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if s.node.Role() != raft.Leader {
		writeJSON(w, http.StatusOK, clientErrorResponse{
			Error:    "this node is not the leader",
			LeaderID: s.node.LeaderID(),
		})
		return
	}

	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := s.fetchCityListings(r.Context(), req.Country, req.City, req.Make, req.Model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, fetchResponse{NumCars: len(rows), City: req.City, Model: req.Model})
}

type clientRequest struct {
	Country string `json:"country"`
	City1   string `json:"city1"`
	City2   string `json:"city2"`
	Make    string `json:"make"`
	Model   string `json:"model"`
}

type clientErrorResponse struct {
	Error    string `json:"error"`
	LeaderID int    `json:"leader_id"`
}

type clientSuccessResponse struct {
	LeaderID int                       `json:"leader_id"`
	Results  map[string][]listings.Listing `json:"results"`
}

// handleClient answers the two-city comparison query. Only the leader
// serves it, matching the original implementation's single writer/reader
// path — followers redirect callers to the known leader instead of
// fetching themselves.
func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	if s.node.Role() != raft.Leader {
		writeJSON(w, http.StatusOK, clientErrorResponse{
			Error:    "this node is not the leader",
			LeaderID: s.node.LeaderID(),
		})
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows1, err := s.fetchCityListings(r.Context(), req.Country, req.City1, req.Make, req.Model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	rows2, err := s.fetchCityListings(r.Context(), req.Country, req.City2, req.Make, req.Model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, clientSuccessResponse{
		LeaderID: s.node.LeaderID(),
		Results: map[string][]listings.Listing{
			req.City1: rows1,
			req.City2: rows2,
		},
	})
}

// CompareResponse backs a richer comparison endpoint built on top of the
// query package's cheapest/arbitrage helpers, exercising them directly
// rather than leaving the comparison to the caller (query.Cheapest,
// query.CompareCheapest, query.PricePerMile all have a home here).
type CompareResponse struct {
	LeaderID     int                `json:"leader_id"`
	City1        query.CityResult   `json:"city1"`
	City2        query.CityResult   `json:"city2"`
	CheaperCity  string             `json:"cheaper_city"`
	PriceRatios  map[string]float64 `json:"price_per_mile"`
	BetterValue  string             `json:"better_value_city"`
}

func (s *Server) compare(ctx context.Context, req clientRequest) (CompareResponse, error) {
	rows1, err := s.fetchCityListings(ctx, req.Country, req.City1, req.Make, req.Model)
	if err != nil {
		return CompareResponse{}, err
	}
	rows2, err := s.fetchCityListings(ctx, req.Country, req.City2, req.Make, req.Model)
	if err != nil {
		return CompareResponse{}, err
	}

	r1, r2, cheaper := query.CompareCheapest(req.City1, rows1, req.City2, rows2)
	ratios, betterValue := query.PricePerMile(req.City1, rows1, req.City2, rows2)

	return CompareResponse{
		LeaderID:    s.node.LeaderID(),
		City1:       r1,
		City2:       r2,
		CheaperCity: cheaper,
		PriceRatios: ratios,
		BetterValue: betterValue,
	}, nil
}

// fetchCityListings serves a cache file if fresh, or fetches from upstream
// and replicates the refreshed file through the raft log (spec.md section
// 3: a stale cache file triggers a re-fetch followed by a ReplicateFile
// entry).
func (s *Server) fetchCityListings(ctx context.Context, country, city, make_, model string) ([]listings.Listing, error) {
	fingerprint := cache.Fingerprint(make_, model, city)
	filename := cache.Filename(fingerprint)

	if fresh, err := s.dir.IsFresh(filename, time.Now()); err == nil && fresh {
		data, ok, err := s.dir.Read(filename)
		if err == nil && ok {
			return listings.DecodeCSV(data)
		}
	}

	rows, err := s.upstream.Fetch(ctx, country, city, make_, model, 500, 50)
	if err != nil {
		return nil, err
	}

	encoded, err := listings.EncodeCSV(rows)
	if err != nil {
		return nil, err
	}
	if err := s.dir.WriteAtomic(filename, encoded); err != nil {
		return nil, err
	}

	if s.node.Role() == raft.Leader {
		_, _ = s.node.Propose(raft.ReplicateFileCommand{Filename: filename, Bytes: encoded})
	}

	return rows, nil
}

// handleCompare is the richer sibling of /client: instead of returning raw
// listings for the caller to compare, it runs the leader-side cheapest and
// price-per-mile comparisons itself.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if s.node.Role() != raft.Leader {
		writeJSON(w, http.StatusOK, clientErrorResponse{
			Error:    "this node is not the leader",
			LeaderID: s.node.LeaderID(),
		})
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.compare(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type listCacheResponse struct {
	Files []string `json:"files"`
}

func (s *Server) handleListCache(w http.ResponseWriter, r *http.Request) {
	files, err := s.dir.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, listCacheResponse{Files: files})
}

type cacheMetaResponse struct {
	Filename string  `json:"filename"`
	Mtime    float64 `json:"mtime"`
}

func (s *Server) handleCacheMeta(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	mtime, ok, err := s.dir.Mtime(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cacheMetaResponse{Filename: filename, Mtime: float64(mtime.UnixNano()) / 1e9})
}

func (s *Server) handleGetCacheFile(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	data, ok, err := s.dir.Read(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Write(data)
}

type reconcileResponse struct {
	Status  string   `json:"status"`
	Updated []string `json:"updated"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if s.node.Role() != raft.Leader {
		writeJSON(w, http.StatusOK, clientErrorResponse{
			Error:    "only the leader can perform reconciliation",
			LeaderID: s.node.LeaderID(),
		})
		return
	}

	s.reconciler.SweepAll(r.Context())

	updated := []string{}
	for _, peer := range s.reconciler.GetSweepStats() {
		updated = append(updated, peer.FilesPulled...)
	}

	writeJSON(w, http.StatusOK, reconcileResponse{Status: "ok", Updated: updated})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
