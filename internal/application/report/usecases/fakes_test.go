package usecases

import (
	"context"
	"fmt"

	"torweather/internal/domain/router"
	"torweather/internal/domain/subscription"
	"torweather/internal/infrastructure/torctl"
)

// In-memory fakes for the poll-cycle tests.

type fakeRouterRepo struct {
	routers map[uint]*router.Router
	nextID  uint
}

func newFakeRouterRepo() *fakeRouterRepo {
	return &fakeRouterRepo{routers: make(map[uint]*router.Router), nextID: 1}
}

func (r *fakeRouterRepo) Create(ctx context.Context, rt *router.Router) error {
	if err := rt.SetID(r.nextID); err != nil {
		return err
	}
	r.routers[r.nextID] = rt
	r.nextID++
	return nil
}

func (r *fakeRouterRepo) GetByID(ctx context.Context, id uint) (*router.Router, error) {
	return r.routers[id], nil
}

func (r *fakeRouterRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*router.Router, error) {
	for _, rt := range r.routers {
		if rt.Fingerprint() == fingerprint {
			return rt, nil
		}
	}
	return nil, nil
}

func (r *fakeRouterRepo) Update(ctx context.Context, rt *router.Router) error {
	if _, ok := r.routers[rt.ID()]; !ok {
		return fmt.Errorf("router not found: %d", rt.ID())
	}
	r.routers[rt.ID()] = rt
	return nil
}

func (r *fakeRouterRepo) Delete(ctx context.Context, id uint) error {
	delete(r.routers, id)
	return nil
}

func (r *fakeRouterRepo) ListAll(ctx context.Context) ([]*router.Router, error) {
	var out []*router.Router
	for _, rt := range r.routers {
		out = append(out, rt)
	}
	return out, nil
}

func (r *fakeRouterRepo) ListUnwelcomed(ctx context.Context) ([]*router.Router, error) {
	var out []*router.Router
	for _, rt := range r.routers {
		if rt.EligibleForWelcome() {
			out = append(out, rt)
		}
	}
	return out, nil
}

// fakeSubscriptionRepo serves check targets directly; the report use
// cases only ever list by type and write state back.
type fakeSubscriptionRepo struct {
	targets map[subscription.Type][]*subscription.CheckTarget
	updated []uint
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{targets: make(map[subscription.Type][]*subscription.CheckTarget)}
}

func (r *fakeSubscriptionRepo) add(t *subscription.CheckTarget) {
	r.targets[t.Subscription.Type()] = append(r.targets[t.Subscription.Type()], t)
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, s *subscription.Subscription) error {
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return nil, nil
}

func (r *fakeSubscriptionRepo) GetBySubscriberAndType(ctx context.Context, subscriberID uint, t subscription.Type) (*subscription.Subscription, error) {
	return nil, nil
}

func (r *fakeSubscriptionRepo) ListBySubscriber(ctx context.Context, subscriberID uint) ([]*subscription.Subscription, error) {
	return nil, nil
}

func (r *fakeSubscriptionRepo) Update(ctx context.Context, s *subscription.Subscription) error {
	r.updated = append(r.updated, s.ID())
	return nil
}

func (r *fakeSubscriptionRepo) Delete(ctx context.Context, id uint) error {
	return nil
}

func (r *fakeSubscriptionRepo) ListConfirmedByType(ctx context.Context, t subscription.Type) ([]*subscription.CheckTarget, error) {
	return r.targets[t], nil
}

// fakeConsensusSource serves canned consensus data.
type fakeConsensusSource struct {
	entries     []*torctl.StatusEntry
	descriptors map[string]*torctl.Descriptor
	recommended []string
	statusErr   error
}

func (s *fakeConsensusSource) AllStatusEntries() ([]*torctl.StatusEntry, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.entries, nil
}

func (s *fakeConsensusSource) GetDescriptor(fingerprint string) (*torctl.Descriptor, error) {
	desc, ok := s.descriptors[fingerprint]
	if !ok {
		return nil, fmt.Errorf("552 unrecognized key %q", fingerprint)
	}
	return desc, nil
}

func (s *fakeConsensusSource) RecommendedVersions() ([]string, error) {
	return s.recommended, nil
}

// fakeNotifier records every outbound notification.
type notice struct {
	kind string
	to   string
	name string
}

type fakeNotifier struct {
	sent []notice
	fail bool
}

func (m *fakeNotifier) record(kind, to, name string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, notice{kind: kind, to: to, name: name})
	return nil
}

func (m *fakeNotifier) SendWelcome(to, routerName string, exit bool) error {
	return m.record("welcome", to, routerName)
}

func (m *fakeNotifier) SendNodeDown(to, routerName string, graceHours int, unsubsAuth, prefAuth string) error {
	return m.record("node_down", to, routerName)
}

func (m *fakeNotifier) SendVersion(to, routerName, version string, unsubsAuth, prefAuth string) error {
	return m.record("version", to, routerName)
}

func (m *fakeNotifier) SendLowBandwidth(to, routerName string, observedKBs, thresholdKBs int64, unsubsAuth, prefAuth string) error {
	return m.record("bandwidth", to, routerName)
}

func (m *fakeNotifier) SendTShirt(to, routerName string, avgKBs float64, exit bool, unsubsAuth, prefAuth string) error {
	return m.record("t_shirt", to, routerName)
}

func (m *fakeNotifier) byKind(kind string) []notice {
	var out []notice
	for _, n := range m.sent {
		if n.kind == kind {
			out = append(out, n)
		}
	}
	return out
}
