// Package session keeps one ClientListPage per browser session.
//
// Sessions are keyed by the carddesk_session cookie, a random UUID, and expire
// after a sliding TTL of inactivity. A page is mounted (loaded once) when its
// session is created and re-mounted on Reload.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/metric"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/core/identity"
	"go.eggybyte.com/carddesk/core/log"
	"go.eggybyte.com/carddesk/internal/page"
	"go.eggybyte.com/carddesk/logx"
)

// CookieName is the session cookie.
const CookieName = "carddesk_session"

// Options configures NewStore.
type Options struct {
	TTL          time.Duration               // Idle lifetime of a session (default 30m)
	NewPage      func() *page.ClientListPage // Required
	Logger       log.Logger
	Meter        metric.Meter // Observes carddesk_sessions_active when set
	SecureCookie bool         // Mark the cookie Secure for HTTPS deployments
}

// Store maps session IDs to pages. It is safe for concurrent use.
type Store struct {
	ttl     time.Duration
	cache   *cache.Cache
	newPage func() *page.ClientListPage
	logger  log.Logger
	secure  bool
}

// NewStore creates a store whose expired sessions are purged every TTL/2.
func NewStore(opts Options) (*Store, error) {
	if opts.NewPage == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "page factory is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}

	s := &Store{
		ttl:     ttl,
		cache:   cache.New(ttl, ttl/2),
		newPage: opts.NewPage,
		logger:  logger,
		secure:  opts.SecureCookie,
	}
	s.cache.OnEvicted(func(id string, _ any) {
		s.logger.Debug("session evicted", log.Str("session_id", id))
	})

	if opts.Meter != nil {
		active, err := opts.Meter.Int64ObservableGauge(
			"carddesk_sessions_active",
			metric.WithDescription("Browser sessions holding page state"),
		)
		if err != nil {
			return nil, err
		}
		if _, err := opts.Meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(active, int64(s.cache.ItemCount()))
			return nil
		}, active); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the page of id and extends its lifetime.
func (s *Store) Get(id string) (*page.ClientListPage, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	p := v.(*page.ClientListPage)
	s.cache.Set(id, p, cache.DefaultExpiration)
	return p, true
}

// Acquire returns the page of id, creating and mounting a new session when id
// is unknown or expired. The returned id differs from id when a session was created.
func (s *Store) Acquire(ctx context.Context, id string) (p *page.ClientListPage, sessionID string, created bool) {
	if id != "" {
		if p, ok := s.Get(id); ok {
			return p, id, false
		}
	}

	sessionID = uuid.NewString()
	p = s.newPage()
	s.cache.Set(sessionID, p, cache.DefaultExpiration)

	ctx = withSessionID(ctx, sessionID)
	logx.FromContext(ctx, s.logger).Info("session created")
	p.Load(ctx)
	return p, sessionID, true
}

// Reload re-mounts the page of id. It reports false when the session is unknown.
func (s *Store) Reload(ctx context.Context, id string) bool {
	p, ok := s.Get(id)
	if !ok {
		return false
	}
	p.Load(ctx)
	return true
}

// Delete drops a session.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Len reports the number of live sessions, including expired ones not yet purged.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Cookie builds the session cookie for id.
func (s *Store) Cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

type pageKey struct{}

// Middleware attaches the visitor's page to the request context, creating a
// session and setting the cookie on first visit. Use PageFrom in handlers.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(CookieName); err == nil {
			id = c.Value
		}

		p, sessionID, created := s.Acquire(r.Context(), id)
		if created || sessionID != id {
			http.SetCookie(w, s.Cookie(sessionID))
		}

		ctx := withSessionID(r.Context(), sessionID)
		ctx = context.WithValue(ctx, pageKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PageFrom returns the page attached by Middleware.
func PageFrom(ctx context.Context) (*page.ClientListPage, bool) {
	p, ok := ctx.Value(pageKey{}).(*page.ClientListPage)
	return p, ok && p != nil
}

// IDFrom returns the session ID attached by Middleware.
func IDFrom(ctx context.Context) string {
	if m, ok := identity.MetaFrom(ctx); ok {
		return m.SessionID
	}
	return ""
}

func withSessionID(ctx context.Context, id string) context.Context {
	meta := &identity.RequestMeta{}
	if m, ok := identity.MetaFrom(ctx); ok {
		copied := *m
		meta = &copied
	}
	meta.SessionID = id
	return identity.WithMeta(ctx, meta)
}
