// Package registrytest serves an in-memory Client Registry API for tests.
package registrytest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"go.eggybyte.com/carddesk/internal/model"
)

// Request is one call received by the Server.
type Request struct {
	Method string
	Path   string
	Body   string
}

type failure struct {
	status int
	body   string
	raw    bool
}

// Server is a fake registry. Records keep insertion order and ids start at 1.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	clients  []model.Client
	nextID   int64
	requests []Request
	failures map[string]failure
}

// NewServer starts a fake registry seeded with clients. Call Close when done.
func NewServer(clients ...model.Client) *Server {
	s := &Server{nextID: 1, failures: map[string]failure{}}
	s.Seed(clients...)

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/get-all", s.list).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/card-request", s.create).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/edit-status/{oib}", s.updateStatus).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/{oib}", s.delete).Methods(http.MethodDelete)

	s.Server = httptest.NewServer(s.record(r))
	return s
}

// BaseURL is the registry root to hand to registry.New.
func (s *Server) BaseURL() string {
	return s.URL + "/api/v1"
}

// Seed appends clients, assigning ids to those without one.
func (s *Server) Seed(clients ...model.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range clients {
		if c.ID == 0 {
			c.ID = s.nextID
		}
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
		s.clients = append(s.clients, c)
	}
}

// Clients returns a copy of the stored records.
func (s *Server) Clients() []model.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Client(nil), s.clients...)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Fail makes every request with method answer status with a JSON error body
// until Recover is called.
func (s *Server) Fail(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = failure{status: status, body: `{"error":"injected failure"}`}
}

// Garble makes every request with method answer 200 with a body that is not JSON.
func (s *Server) Garble(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = failure{status: http.StatusOK, body: "<html>not json</html>", raw: true}
}

// Recover clears injected failures.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]failure{}
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.EscapedPath(), Body: string(body)})
		f, failing := s.failures[r.Method]
		s.mu.Unlock()

		if failing {
			if !f.raw {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Clients())
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var form model.NewClientForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if r.Header.Get("Content-Type") != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "expected application/json"})
		return
	}

	s.mu.Lock()
	c := model.Client{
		ID:         s.nextID,
		FirstName:  form.FirstName,
		LastName:   form.LastName,
		OIB:        form.OIB,
		CardStatus: form.CardStatus,
	}
	s.nextID++
	s.clients = append(s.clients, c)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, c)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	oib := mux.Vars(r)["oib"]

	s.mu.Lock()
	kept := s.clients[:0]
	removed := false
	for _, c := range s.clients {
		if c.OIB == oib {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	s.clients = kept
	s.mu.Unlock()

	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	oib := mux.Vars(r)["oib"]
	var update model.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil || !update.CardStatus.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cardStatus"})
		return
	}

	s.mu.Lock()
	var (
		updated model.Client
		found   bool
	)
	for i := range s.clients {
		if s.clients[i].OIB == oib {
			s.clients[i].CardStatus = update.CardStatus
			if !found {
				updated = s.clients[i]
				found = true
			}
		}
	}
	s.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
