package inject

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeSurface is a scripted host page. Target and fallback insertions are
// told apart by the selector table they receive.
type fakeSurface struct {
	modalOpen bool
	listener  func(Click)

	closeCalls    int
	removeCtrl    int
	targetCalls   int
	fallbackCalls int

	targetOK   bool
	fallbackOK bool

	// targetOKAfter makes the target succeed starting at the given call
	// number (1-based); zero disables it.
	targetOKAfter int
}

func (f *fakeSurface) FirstMatch(selectors []string) bool { return f.modalOpen }

func (f *fakeSurface) CloseModal(selectors []string) { f.closeCalls++ }

func (f *fakeSurface) AttachClickListener(h func(Click)) { f.listener = h }

func (f *fakeSurface) RemoveClickListener() { f.listener = nil }

func (f *fakeSurface) RemoveControl() { f.removeCtrl++ }

func (f *fakeSurface) InsertControl(selectors []string, productID string) bool {
	if selectors[0] == "#nav-review" {
		f.targetCalls++
		if f.targetOKAfter > 0 && f.targetCalls >= f.targetOKAfter {
			return true
		}
		return f.targetOK
	}
	f.fallbackCalls++
	return f.fallbackOK
}

// syncScheduler runs every scheduled callback immediately, collapsing the
// whole retry chain into the triggering call.
func syncScheduler(_ time.Duration, f func()) { f() }

func newTestMachine(surface *fakeSurface) *Machine {
	return NewMachine(surface, AliExpressConfig(), zerolog.Nop(), WithScheduler(syncScheduler))
}

const validProductID = "1005004444333222"

func TestStartAttachesListenerAndClosesModal(t *testing.T) {
	surface := &fakeSurface{modalOpen: true}
	m := newTestMachine(surface)
	m.Start()

	if m.State() != ListenerAttached {
		t.Fatalf("state = %s, want ListenerAttached", m.State())
	}
	if surface.listener == nil {
		t.Fatal("click listener not attached")
	}
	if surface.closeCalls != 1 {
		t.Fatalf("closeCalls = %d, want 1", surface.closeCalls)
	}
}

func TestClickInsertsControl(t *testing.T) {
	surface := &fakeSurface{targetOK: true}
	m := newTestMachine(surface)

	var observed []string
	m.OnProduct = func(id string) { observed = append(observed, id) }
	m.Start()

	surface.listener(Click{ElementID: validProductID})

	if m.State() != ControlInserted {
		t.Fatalf("state = %s, want ControlInserted", m.State())
	}
	if m.ProductID() != validProductID {
		t.Fatalf("product id = %q", m.ProductID())
	}
	if len(observed) != 1 || observed[0] != validProductID {
		t.Fatalf("OnProduct calls = %v", observed)
	}
	if surface.targetCalls != 1 {
		t.Fatalf("targetCalls = %d, want 1", surface.targetCalls)
	}
}

func TestRetryChainEventuallySucceeds(t *testing.T) {
	surface := &fakeSurface{targetOKAfter: 6}
	m := newTestMachine(surface)
	m.Start()

	surface.listener(Click{ElementID: validProductID})

	if m.State() != ControlInserted {
		t.Fatalf("state = %s, want ControlInserted", m.State())
	}
	if surface.targetCalls != 6 {
		t.Fatalf("targetCalls = %d, want 6", surface.targetCalls)
	}
	if surface.fallbackCalls != 0 {
		t.Fatalf("fallbackCalls = %d, fallback must not run when a target works", surface.fallbackCalls)
	}
}

func TestFallbackAfterBudgetSpent(t *testing.T) {
	surface := &fakeSurface{fallbackOK: true}
	m := newTestMachine(surface)
	m.Start()

	surface.listener(Click{ElementID: validProductID})

	if surface.targetCalls != AliExpressConfig().MaxAttempts {
		t.Fatalf("targetCalls = %d, want the full budget %d", surface.targetCalls, AliExpressConfig().MaxAttempts)
	}
	if surface.fallbackCalls != 1 {
		t.Fatalf("fallbackCalls = %d, want 1", surface.fallbackCalls)
	}
	if m.State() != ControlInserted {
		t.Fatalf("state = %s, want ControlInserted via fallback", m.State())
	}
}

func TestSilentGiveUp(t *testing.T) {
	surface := &fakeSurface{}
	m := newTestMachine(surface)
	m.Start()

	surface.listener(Click{ElementID: validProductID})

	// Nothing inserted anywhere; the machine stays armed for another click.
	if m.State() != ListenerAttached {
		t.Fatalf("state = %s, want ListenerAttached after giving up", m.State())
	}
	if surface.fallbackCalls == 0 {
		t.Fatal("fallback containers never tried")
	}
}

func TestInvalidClicksIgnored(t *testing.T) {
	surface := &fakeSurface{targetOK: true}
	m := newTestMachine(surface)
	m.Start()

	surface.listener(Click{ElementID: "add-to-cart"})
	surface.listener(Click{ElementID: "12345"})
	surface.listener(Click{})

	if surface.targetCalls != 0 {
		t.Fatalf("targetCalls = %d, invalid clicks must not start the chain", surface.targetCalls)
	}
	if m.ProductID() != "" {
		t.Fatalf("product id = %q, want empty", m.ProductID())
	}
}

func TestProductIDFromDataAttrs(t *testing.T) {
	cases := []struct {
		name  string
		click Click
	}{
		{"data-product-id", Click{DataAttrs: map[string]string{"data-product-id": validProductID}}},
		{"json blob", Click{DataAttrs: map[string]string{"data-spm-data": `{"productId":` + validProductID + `}`}}},
		{"loose fragment", Click{DataAttrs: map[string]string{"data-spm-data": `x;productId:` + validProductID + `;y`}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			surface := &fakeSurface{targetOK: true}
			m := newTestMachine(surface)
			m.Start()

			surface.listener(c.click)
			if m.ProductID() != validProductID {
				t.Fatalf("product id = %q, want %q", m.ProductID(), validProductID)
			}
		})
	}
}

func TestReclickReplacesControl(t *testing.T) {
	surface := &fakeSurface{targetOK: true}
	m := newTestMachine(surface)
	m.Start()

	surface.listener(Click{ElementID: validProductID})
	surface.listener(Click{ElementID: "1005009999888777"})

	if surface.removeCtrl != 2 {
		t.Fatalf("removeCtrl = %d, each click clears the previous control", surface.removeCtrl)
	}
	if m.ProductID() != "1005009999888777" {
		t.Fatalf("product id = %q, want the second click's id", m.ProductID())
	}
	if m.State() != ControlInserted {
		t.Fatalf("state = %s", m.State())
	}
}

func TestStopDetaches(t *testing.T) {
	surface := &fakeSurface{}
	m := newTestMachine(surface)
	m.Start()
	m.Stop()

	if m.State() != Idle {
		t.Fatalf("state = %s, want Idle", m.State())
	}
	if surface.listener != nil {
		t.Fatal("listener still attached after Stop")
	}
}
