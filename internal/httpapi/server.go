// Package httpapi wires the node's HTTP surface (§6): chain inspection,
// policy submission, mining, consensus, block and peer admission, and the
// authentication/authorization endpoints, all over a chi router.
package httpapi

import (
	"crypto/rsa"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"policyledger/internal/authn"
	"policyledger/internal/contracts"
	"policyledger/internal/ledger"
	"policyledger/internal/materializer"
	"policyledger/internal/peer"
)

// Server bundles everything a request handler needs: the chain, its
// materialized view, the node's own identity, peer registry/gossip client,
// and the authenticator. ViewMu guards View, which is wholesale replaced
// whenever consensus adopts a peer's chain (§4.7).
type Server struct {
	Chain        *ledger.Chain
	View         *materializer.View
	ViewMu       sync.RWMutex
	Invoker      contracts.Invoker
	Peers        *peer.Registry
	Gossip       *peer.Client
	Auth         *authn.Authenticator
	Priv         *rsa.PrivateKey
	Pub          *rsa.PublicKey
	SelfURL      string
	Log          *logrus.Logger
	KeyForIssuer func(iss string) (*rsa.PublicKey, error)
}

// view returns the current materialized view under its read lock.
func (s *Server) view() *materializer.View {
	s.ViewMu.RLock()
	defer s.ViewMu.RUnlock()
	return s.View
}

// setView swaps in a freshly rebuilt view, called after consensus adopts a
// longer peer chain.
func (s *Server) setView(v *materializer.View) {
	s.ViewMu.Lock()
	defer s.ViewMu.Unlock()
	s.View = v
}

// NewRouter builds the chi router exposing every endpoint of §6 plus the
// supplemented /healthz liveness probe.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(rateLimitMiddleware(rate.NewLimiter(200, 100)))

	r.Get("/", s.handleGetChain)
	r.Get("/healthz", s.handleHealthz)
	r.Post("/add-policy", s.handleAddPolicy)
	r.Get("/update-cache", s.handleUpdateCache)
	r.Get("/mine", s.handleMine)
	r.Get("/consensus", s.handleConsensus)
	r.Post("/add-block", s.handleAddBlock)
	r.Get("/register-peer", s.handleRegisterPeer)
	r.Post("/register-with-node", s.handleRegisterWithNode)
	r.Post("/auth", s.handleAuthentication)
	r.Post("/check-auth", s.handleCheckAuth)
	r.Post("/authZ", s.handleAuthorize)

	return r
}

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"chain_len":   s.Chain.Len(),
		"mempool_len": s.Chain.MempoolLen(),
		"peers":       s.Peers.Len(),
	})
}
