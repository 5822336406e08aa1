// Package page holds the state behind the client list console and the
// operations a visitor performs on it.
//
// Registry calls are made without holding the page lock, and state is only
// changed after the call returns. Failures are logged and leave the state as
// it was; no operation returns an error to the caller.
package page

import (
	"context"
	"slices"
	"sync"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/core/log"
	"go.eggybyte.com/carddesk/internal/model"
	"go.eggybyte.com/carddesk/logx"
)

// Registry is the subset of the Client Registry API the page needs.
type Registry interface {
	List(ctx context.Context) ([]model.Client, error)
	Create(ctx context.Context, form model.NewClientForm) (model.Client, error)
	Delete(ctx context.Context, oib string) error
	UpdateStatus(ctx context.Context, oib string, status model.CardStatus) (model.Client, error)
}

// Outcome reports how an operation ended, for logs and metrics only.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Action is a status button offered for a client.
type Action struct {
	Label  string
	Status model.CardStatus
}

var allActions = []Action{
	{Label: "Pending", Status: model.StatusPending},
	{Label: "Approve", Status: model.StatusApproved},
	{Label: "Reject", Status: model.StatusRejected},
}

// ActionsFor returns Pending, Approve and Reject in that order, minus the one
// matching the client's current status.
func ActionsFor(c model.Client) []Action {
	out := make([]Action, 0, len(allActions))
	for _, a := range allActions {
		if a.Status != c.CardStatus {
			out = append(out, a)
		}
	}
	return out
}

// State is a copy of a page for rendering.
type State struct {
	Clients []model.Client
	Loading bool
	Form    model.NewClientForm
}

// Options configures New.
type Options struct {
	Registry Registry
	Logger   log.Logger
	Metrics  *Metrics // Optional
}

// ClientListPage is one visitor's view of the registry. It is safe for concurrent use.
type ClientListPage struct {
	registry Registry
	logger   log.Logger
	metrics  *Metrics

	mu      sync.Mutex
	clients []model.Client
	loading bool
	form    model.NewClientForm
}

// New creates an empty page with the default form. Call Load to mount it.
func New(opts Options) *ClientListPage {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &ClientListPage{
		registry: opts.Registry,
		logger:   logger,
		metrics:  opts.Metrics,
		form:     model.DefaultForm(),
	}
}

// Load fetches every client and replaces the list in registry order.
// On failure the list is left as it was, so a first mount stays empty.
// Loading is true only while the call is in flight.
func (p *ClientListPage) Load(ctx context.Context) Outcome {
	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()

	clients, err := p.registry.List(ctx)

	p.mu.Lock()
	p.loading = false
	if err == nil {
		p.clients = clients
	}
	p.mu.Unlock()

	if err != nil {
		return p.failed(ctx, "load", err, "load clients failed")
	}
	logx.FromContext(ctx, p.logger).Debug("clients loaded", log.Int("count", len(clients)))
	return p.ok(ctx, "load")
}

// Submit registers form. An incomplete form never reaches the registry.
// The form keeps its values on any failure and resets after success.
func (p *ClientListPage) Submit(ctx context.Context, form model.NewClientForm) Outcome {
	p.mu.Lock()
	p.form = form
	p.mu.Unlock()

	if err := form.Validate(); err != nil {
		logx.FromContext(ctx, p.logger).Warn("client form rejected",
			log.Str("op", "submit"), log.Str("code", string(errors.CodeOf(err))), log.Str("reason", err.Error()))
		p.count(ctx, "submit", OutcomeFailed)
		return OutcomeFailed
	}

	created, err := p.registry.Create(ctx, form)
	if err != nil {
		return p.failed(ctx, "submit", err, "create client failed", log.Str("oib", form.OIB))
	}

	p.mu.Lock()
	p.clients = append(p.clients, created)
	p.form = model.DefaultForm()
	p.mu.Unlock()

	logx.FromContext(ctx, p.logger).Info("client created", log.Str("oib", created.OIB), log.Int64("id", created.ID))
	return p.ok(ctx, "submit")
}

// Delete removes every loaded record whose oib equals oib once the registry confirms.
func (p *ClientListPage) Delete(ctx context.Context, oib string) Outcome {
	if err := p.registry.Delete(ctx, oib); err != nil {
		return p.failed(ctx, "delete", err, "delete client failed", log.Str("oib", oib))
	}

	p.mu.Lock()
	p.clients = slices.DeleteFunc(p.clients, func(c model.Client) bool { return c.OIB == oib })
	p.mu.Unlock()

	logx.FromContext(ctx, p.logger).Info("client deleted", log.Str("oib", oib))
	return p.ok(ctx, "delete")
}

// ChangeStatus updates oib's card status and replaces, in place, every
// record whose oib matches the one the registry returns.
func (p *ClientListPage) ChangeStatus(ctx context.Context, oib string, status model.CardStatus) Outcome {
	if !status.Valid() {
		err := errors.Newf(errors.CodeInvalidArgument, "unknown card status %q", status)
		return p.failed(ctx, "change_status", err, "update status failed", log.Str("oib", oib))
	}

	updated, err := p.registry.UpdateStatus(ctx, oib, status)
	if err != nil {
		return p.failed(ctx, "change_status", err, "update status failed", log.Str("oib", oib))
	}

	p.mu.Lock()
	for i := range p.clients {
		if p.clients[i].OIB == updated.OIB {
			p.clients[i] = updated
		}
	}
	p.mu.Unlock()

	logx.FromContext(ctx, p.logger).Info("client status updated",
		log.Str("oib", updated.OIB), log.Str("card_status", string(updated.CardStatus)))
	return p.ok(ctx, "change_status")
}

// ActionsFor returns the status buttons to render for c.
func (p *ClientListPage) ActionsFor(c model.Client) []Action {
	return ActionsFor(c)
}

// Snapshot copies the current state.
func (p *ClientListPage) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Clients: slices.Clone(p.clients),
		Loading: p.loading,
		Form:    p.form,
	}
}

func (p *ClientListPage) ok(ctx context.Context, op string) Outcome {
	p.count(ctx, op, OutcomeOK)
	return OutcomeOK
}

func (p *ClientListPage) failed(ctx context.Context, op string, err error, msg string, kv ...any) Outcome {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.CodeInternal
	}
	kv = append(kv, log.Str("op", op), log.Str("code", string(code)))
	logx.FromContext(ctx, p.logger).Error(err, msg, kv...)
	p.count(ctx, op, OutcomeFailed)
	return OutcomeFailed
}

func (p *ClientListPage) count(ctx context.Context, op string, outcome Outcome) {
	if p.metrics != nil {
		p.metrics.record(ctx, op, outcome)
	}
}
