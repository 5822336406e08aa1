// Package handler serves the client list console over HTTP.
//
// Browsers can only submit GET and POST forms, so every action is a POST
// answered with 303 See Other back to "/".
package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/metric"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/core/log"
	"go.eggybyte.com/carddesk/httpx"
	"go.eggybyte.com/carddesk/internal/model"
	"go.eggybyte.com/carddesk/internal/page"
	"go.eggybyte.com/carddesk/internal/session"
	"go.eggybyte.com/carddesk/logx"
	"go.eggybyte.com/carddesk/runtimex"
)

//go:embed templates/page.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/page.html"))

// Options configures New.
type Options struct {
	Store  *session.Store // Required
	Logger log.Logger
	Meter  metric.Meter // Records HTTP server metrics when set
}

type handler struct {
	store  *session.Store
	logger log.Logger
}

// New builds the console router with its middleware stack.
func New(opts Options) (http.Handler, error) {
	if opts.Store == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "session store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	h := &handler{store: opts.Store, logger: logger}

	r := mux.NewRouter()
	r.UseEncodedPath()
	accessLog := httpx.AccessLogMiddleware(logger, RouteTemplate)
	r.NotFoundHandler = httpx.Chain(httpx.NotFoundHandler(), accessLog)
	r.MethodNotAllowedHandler = httpx.Chain(httpx.MethodNotAllowedHandler(), accessLog)

	if opts.Meter != nil {
		metrics, err := httpx.MetricsMiddleware(opts.Meter, RouteTemplate)
		if err != nil {
			return nil, err
		}
		r.Use(mux.MiddlewareFunc(metrics))
	}
	r.Use(mux.MiddlewareFunc(accessLog))

	withPage := h.store.Middleware
	r.Handle("/", withPage(http.HandlerFunc(h.index))).Methods(http.MethodGet)
	r.Handle("/clients", withPage(http.HandlerFunc(h.create))).Methods(http.MethodPost)
	r.Handle("/clients/{oib}/delete", withPage(http.HandlerFunc(h.delete))).Methods(http.MethodPost)
	r.Handle("/clients/{oib}/status", withPage(http.HandlerFunc(h.changeStatus))).Methods(http.MethodPost)
	r.Handle("/reload", withPage(http.HandlerFunc(h.reload))).Methods(http.MethodPost)
	r.Handle("/healthz", runtimex.HealthHandler()).Methods(http.MethodGet)

	return httpx.Chain(r,
		httpx.RequestIDMiddleware(),
		httpx.RecoverMiddleware(logger),
		httpx.SecureMiddleware(httpx.DefaultSecurityHeaders()),
	), nil
}

// RouteTemplate names the matched route by its path template.
func RouteTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

type actionView struct {
	Label  string
	Status model.CardStatus
	Class  string
}

type rowView struct {
	Client     model.Client
	Actions    []actionView
	DeletePath string
	StatusPath string
}

type pageView struct {
	Form     model.NewClientForm
	Loading  bool
	Statuses []model.CardStatus
	Rows     []rowView
}

func newPageView(p *page.ClientListPage) pageView {
	state := p.Snapshot()
	view := pageView{
		Form:     state.Form,
		Loading:  state.Loading,
		Statuses: model.Statuses,
		Rows:     make([]rowView, 0, len(state.Clients)),
	}
	for _, c := range state.Clients {
		base := "/clients/" + url.PathEscape(c.OIB)
		row := rowView{Client: c, DeletePath: base + "/delete", StatusPath: base + "/status"}
		for _, a := range p.ActionsFor(c) {
			row.Actions = append(row.Actions, actionView{Label: a.Label, Status: a.Status, Class: actionClass(a.Status)})
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func actionClass(s model.CardStatus) string {
	switch s {
	case model.StatusApproved:
		return "approve"
	case model.StatusRejected:
		return "reject"
	default:
		return "pending"
	}
}

func (h *handler) page(w http.ResponseWriter, r *http.Request) (*page.ClientListPage, bool) {
	p, ok := session.PageFrom(r.Context())
	if !ok {
		_ = httpx.WriteError(w, errors.New(errors.CodeInternal, "no session page"))
	}
	return p, ok
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, newPageView(p)); err != nil {
		err = errors.Wrap(errors.CodeInternal, "handler.index", err)
		logx.FromContext(r.Context(), h.logger).Error(err, "render page failed")
		_ = httpx.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	form := model.DefaultForm()
	if err := httpx.DecodeForm(r, &form); err != nil {
		logx.FromContext(r.Context(), h.logger).Warn("client form unreadable", log.Str("reason", err.Error()))
		backToPage(w, r)
		return
	}
	p.Submit(r.Context(), form)
	backToPage(w, r)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	p.Delete(r.Context(), oibVar(r))
	backToPage(w, r)
}

func (h *handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	oib := oibVar(r)
	var update model.StatusUpdate
	if err := httpx.BindForm(r, &update); err != nil {
		logx.FromContext(r.Context(), h.logger).Warn("status form rejected",
			log.Str("oib", oib), log.Str("reason", err.Error()))
		backToPage(w, r)
		return
	}
	p.ChangeStatus(r.Context(), oib, update.CardStatus)
	backToPage(w, r)
}

func (h *handler) reload(w http.ResponseWriter, r *http.Request) {
	h.store.Reload(r.Context(), session.IDFrom(r.Context()))
	backToPage(w, r)
}

// oibVar decodes the {oib} segment; the router matches on the escaped path.
func oibVar(r *http.Request) string {
	raw := mux.Vars(r)["oib"]
	oib, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return oib
}

func backToPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
