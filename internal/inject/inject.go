// Package inject drives the call-to-action control into a host page whose
// modal renders asynchronously. Everything here is cosmetic: when the retry
// budget runs out the machine gives up silently and core review handling is
// unaffected.
package inject

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the machine's position in its lifecycle.
type State int

const (
	Idle State = iota
	WatchingForModal
	ListenerAttached
	ControlInserted
)

func (s State) String() string {
	switch s {
	case WatchingForModal:
		return "watching"
	case ListenerAttached:
		return "listener-attached"
	case ControlInserted:
		return "control-inserted"
	default:
		return "idle"
	}
}

// Click describes a click the capture listener observed on a candidate
// product element.
type Click struct {
	ElementID string
	DataAttrs map[string]string
}

// Surface is the writable slice of the host page the machine drives. The
// click listener is global, process-wide state: attaching replaces any
// previous listener, never duplicates it.
type Surface interface {
	FirstMatch(selectors []string) bool
	CloseModal(selectors []string)
	AttachClickListener(h func(Click))
	RemoveClickListener()
	RemoveControl()
	InsertControl(selectors []string, productID string) bool
}

// Boost is one explicitly scheduled re-entry into the retry chain, bridging
// known host rendering delays.
type Boost struct {
	Delay   time.Duration
	Attempt int
}

// Config is the machine's schedule and selector tables. Selector lists are
// ordered; the first match wins.
type Config struct {
	ModalSelectors    []string
	CloseSelectors    []string
	TargetSelectors   []string
	FallbackSelectors []string
	ProductIDShape    *regexp.Regexp
	CloseDelay        time.Duration
	RetryDelay        time.Duration
	MaxAttempts       int
	Boosts            []Boost
}

// AliExpressConfig returns the selector tables and retry schedule for
// AliExpress SSR pages.
func AliExpressConfig() Config {
	return Config{
		ModalSelectors: []string{
			".comet-v2-modal-mask.comet-v2-fade-appear-done.comet-v2-fade-enter-done",
			".comet-v2-modal-mask",
			".comet-modal-mask",
			`[class*="modal-mask"]`,
			".comet-v2-modal-wrap",
			".comet-modal-wrap",
		},
		CloseSelectors: []string{
			`button[aria-label="Close"].comet-v2-modal-close`,
			".comet-v2-modal-close",
			`[aria-label*="Close"]`,
		},
		TargetSelectors: []string{
			"#nav-review",
			`[data-spm="nav-review"]`,
			`.comet-tabs-nav-item[data-spm="nav-review"]`,
			".nav-review",
			`a[href*="#nav-review"]`,
			`.product-tabs-nav a[href*="review"]`,
		},
		FallbackSelectors: []string{
			".comet-v2-modal-body",
			".product-detail-wrap",
			".product-main",
		},
		ProductIDShape: regexp.MustCompile(`^1005\d{9,}$`),
		CloseDelay:     100 * time.Millisecond,
		RetryDelay:     300 * time.Millisecond,
		MaxAttempts:    10,
		Boosts: []Boost{
			{Delay: 600 * time.Millisecond, Attempt: 4},
			{Delay: 1500 * time.Millisecond, Attempt: 7},
		},
	}
}

var productIDFragment = regexp.MustCompile(`productId['":]?\s*(\d+)`)

// Machine inserts the call-to-action control into a dynamically rendered
// modal with a bounded, timed retry chain.
type Machine struct {
	surface  Surface
	cfg      Config
	log      zerolog.Logger
	schedule func(time.Duration, func())

	// OnProduct fires once per validated product click, before the control
	// insertion chain starts.
	OnProduct func(productID string)

	mu         sync.Mutex
	state      State
	productID  string
	generation int
}

// Option configures a Machine.
type Option func(*Machine)

// WithScheduler replaces the timer used for retry scheduling; tests pass a
// synchronous one.
func WithScheduler(schedule func(time.Duration, func())) Option {
	return func(m *Machine) { m.schedule = schedule }
}

// NewMachine creates the injection machine in the Idle state.
func NewMachine(surface Surface, cfg Config, log zerolog.Logger, opts ...Option) *Machine {
	m := &Machine{
		surface: surface,
		cfg:     cfg,
		log:     log.With().Str("component", "inject").Logger(),
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the machine's current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ProductID returns the last validated product id, if any.
func (m *Machine) ProductID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.productID
}

// Start probes for an already-open modal, closes it after a short delay if
// found, and attaches the click-capture listener either way. Attachment is
// idempotent: the surface replaces any previous listener.
func (m *Machine) Start() {
	m.mu.Lock()
	m.state = WatchingForModal
	m.mu.Unlock()

	if m.surface.FirstMatch(m.cfg.ModalSelectors) {
		m.log.Info().Msg("modal already open, scheduling close")
		m.schedule(m.cfg.CloseDelay, func() {
			m.surface.CloseModal(m.cfg.CloseSelectors)
		})
	}

	m.surface.AttachClickListener(m.handleClick)

	m.mu.Lock()
	m.state = ListenerAttached
	m.mu.Unlock()
}

// Stop detaches the click listener and returns to Idle.
func (m *Machine) Stop() {
	m.surface.RemoveClickListener()
	m.mu.Lock()
	m.state = Idle
	m.generation++
	m.mu.Unlock()
}

// handleClick validates a product click and, when valid, kicks off the
// control-insertion chain. Invalid or unmatched clicks are dropped without
// error.
func (m *Machine) handleClick(c Click) {
	id, ok := m.candidateID(c)
	if !ok {
		return
	}
	if !m.cfg.ProductIDShape.MatchString(id) {
		m.log.Debug().Str("candidate", id).Msg("clicked element id does not match product shape")
		return
	}

	m.mu.Lock()
	m.productID = id
	m.generation++
	gen := m.generation
	// Re-arm: a new click supersedes any control inserted for the last one.
	m.state = ListenerAttached
	m.mu.Unlock()

	if m.OnProduct != nil {
		m.OnProduct(id)
	}

	// Re-clicking replaces any previously inserted control.
	m.surface.RemoveControl()

	m.tryInsert(gen, 1)
	for _, boost := range m.cfg.Boosts {
		attempt := boost.Attempt
		delay := boost.Delay
		m.schedule(delay, func() { m.tryInsert(gen, attempt) })
	}
}

// candidateID pulls a product id candidate off the clicked element: element
// id first, then data attributes, then an embedded JSON fragment.
func (m *Machine) candidateID(c Click) (string, bool) {
	raw := c.ElementID
	if raw == "" {
		raw = c.DataAttrs["data-product-id"]
	}
	if raw == "" {
		raw = c.DataAttrs["data-spm-data"]
	}
	if raw == "" {
		return "", false
	}

	if !m.cfg.ProductIDShape.MatchString(raw) && strings.Contains(raw, "productId") {
		var parsed struct {
			ProductID json.Number `json:"productId"`
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil && parsed.ProductID.String() != "" {
			return parsed.ProductID.String(), true
		}
		if match := productIDFragment.FindStringSubmatch(raw); match != nil {
			return match[1], true
		}
	}
	return raw, true
}

// tryInsert is one attempt of the bounded retry chain. Attempts freeze as
// soon as the control is in, a newer click supersedes this chain, or the
// budget is spent.
func (m *Machine) tryInsert(gen, attempt int) {
	m.mu.Lock()
	if gen != m.generation || m.state == ControlInserted {
		m.mu.Unlock()
		return
	}
	productID := m.productID
	m.mu.Unlock()

	if m.surface.InsertControl(m.cfg.TargetSelectors, productID) {
		m.markInserted(gen, attempt, "target")
		return
	}

	if attempt < m.cfg.MaxAttempts {
		m.schedule(m.cfg.RetryDelay, func() { m.tryInsert(gen, attempt+1) })
		return
	}

	// Budget spent: try the broader containers once, then give up silently.
	if m.surface.InsertControl(m.cfg.FallbackSelectors, productID) {
		m.markInserted(gen, attempt, "fallback")
		return
	}
	m.log.Warn().Str("product_id", productID).Int("attempts", attempt).
		Msg("control insertion exhausted retries, giving up")
}

func (m *Machine) markInserted(gen, attempt int, where string) {
	m.mu.Lock()
	if gen == m.generation {
		m.state = ControlInserted
	}
	m.mu.Unlock()
	m.log.Info().Int("attempt", attempt).Str("container", where).Msg("control inserted")
}
