package usecases

import (
	"context"
	"fmt"

	"torweather/internal/domain/router"
	"torweather/internal/domain/subscriber"
	"torweather/internal/domain/subscription"
)

// In-memory repository fakes shared by the use case tests.

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

type fakeSubscriberRepo struct {
	subscribers map[uint]*subscriber.Subscriber
	nextID      uint
	subs        *fakeSubscriptionRepo
}

func newFakeSubscriberRepo(subs *fakeSubscriptionRepo) *fakeSubscriberRepo {
	return &fakeSubscriberRepo{
		subscribers: make(map[uint]*subscriber.Subscriber),
		nextID:      1,
		subs:        subs,
	}
}

func (r *fakeSubscriberRepo) Create(ctx context.Context, s *subscriber.Subscriber) error {
	for _, existing := range r.subscribers {
		if existing.Email() == s.Email() && existing.RouterID() == s.RouterID() {
			return fmt.Errorf("UNIQUE constraint failed: subscribers.email")
		}
	}
	if err := s.SetID(r.nextID); err != nil {
		return err
	}
	r.subscribers[r.nextID] = s
	r.nextID++
	return nil
}

func (r *fakeSubscriberRepo) GetByID(ctx context.Context, id uint) (*subscriber.Subscriber, error) {
	return r.subscribers[id], nil
}

func (r *fakeSubscriberRepo) GetByEmailAndRouter(ctx context.Context, email string, routerID uint) (*subscriber.Subscriber, error) {
	for _, s := range r.subscribers {
		if s.Email() == email && s.RouterID() == routerID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriberRepo) findBy(pred func(*subscriber.Subscriber) bool) (*subscriber.Subscriber, error) {
	for _, s := range r.subscribers {
		if pred(s) {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriberRepo) GetByConfirmAuth(ctx context.Context, key string) (*subscriber.Subscriber, error) {
	return r.findBy(func(s *subscriber.Subscriber) bool { return s.ConfirmAuth() == key })
}

func (r *fakeSubscriberRepo) GetByUnsubsAuth(ctx context.Context, key string) (*subscriber.Subscriber, error) {
	return r.findBy(func(s *subscriber.Subscriber) bool { return s.UnsubsAuth() == key })
}

func (r *fakeSubscriberRepo) GetByPrefAuth(ctx context.Context, key string) (*subscriber.Subscriber, error) {
	return r.findBy(func(s *subscriber.Subscriber) bool { return s.PrefAuth() == key })
}

func (r *fakeSubscriberRepo) Update(ctx context.Context, s *subscriber.Subscriber) error {
	if _, ok := r.subscribers[s.ID()]; !ok {
		return fmt.Errorf("subscriber not found: %d", s.ID())
	}
	r.subscribers[s.ID()] = s
	return nil
}

func (r *fakeSubscriberRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := r.subscribers[id]; !ok {
		return fmt.Errorf("subscriber not found: %d", id)
	}
	delete(r.subscribers, id)
	if r.subs != nil {
		r.subs.deleteBySubscriber(id)
	}
	return nil
}

func (r *fakeSubscriberRepo) ListConfirmedByRouter(ctx context.Context, routerID uint) ([]*subscriber.Subscriber, error) {
	var out []*subscriber.Subscriber
	for _, s := range r.subscribers {
		if s.RouterID() == routerID && s.Confirmed() {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeSubscriptionRepo struct {
	subscriptions map[uint]*subscription.Subscription
	nextID        uint
	subscribers   *fakeSubscriberRepo
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subscriptions: make(map[uint]*subscription.Subscription), nextID: 1}
}

func (r *fakeSubscriptionRepo) deleteBySubscriber(subscriberID uint) {
	for id, s := range r.subscriptions {
		if s.SubscriberID() == subscriberID {
			delete(r.subscriptions, id)
		}
	}
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, s *subscription.Subscription) error {
	for _, existing := range r.subscriptions {
		if existing.SubscriberID() == s.SubscriberID() && existing.Type() == s.Type() {
			return fmt.Errorf("UNIQUE constraint failed: subscriptions.sub_type")
		}
	}
	if err := s.SetID(r.nextID); err != nil {
		return err
	}
	r.subscriptions[r.nextID] = s
	r.nextID++
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return r.subscriptions[id], nil
}

func (r *fakeSubscriptionRepo) GetBySubscriberAndType(ctx context.Context, subscriberID uint, t subscription.Type) (*subscription.Subscription, error) {
	for _, s := range r.subscriptions {
		if s.SubscriberID() == subscriberID && s.Type() == t {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) ListBySubscriber(ctx context.Context, subscriberID uint) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, s := range r.subscriptions {
		if s.SubscriberID() == subscriberID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) Update(ctx context.Context, s *subscription.Subscription) error {
	if _, ok := r.subscriptions[s.ID()]; !ok {
		return fmt.Errorf("subscription not found: %d", s.ID())
	}
	r.subscriptions[s.ID()] = s
	return nil
}

func (r *fakeSubscriptionRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := r.subscriptions[id]; !ok {
		return fmt.Errorf("subscription not found: %d", id)
	}
	delete(r.subscriptions, id)
	return nil
}

func (r *fakeSubscriptionRepo) ListConfirmedByType(ctx context.Context, t subscription.Type) ([]*subscription.CheckTarget, error) {
	var out []*subscription.CheckTarget
	for _, s := range r.subscriptions {
		if s.Type() != t {
			continue
		}
		sub := r.subscribers.subscribers[s.SubscriberID()]
		if sub == nil || !sub.Confirmed() {
			continue
		}
		out = append(out, &subscription.CheckTarget{
			Subscription: s,
			Email:        sub.Email(),
			UnsubsAuth:   sub.UnsubsAuth(),
			PrefAuth:     sub.PrefAuth(),
			RouterID:     sub.RouterID(),
		})
	}
	return out, nil
}

// fakeMailer records every outbound mail.
type sentMail struct {
	kind       string
	to         string
	routerName string
	key        string
}

type fakeMailer struct {
	sent []sentMail
	fail bool
}

func (m *fakeMailer) byKind(kind string) []sentMail {
	var out []sentMail
	for _, s := range m.sent {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (m *fakeMailer) SendConfirmation(to, routerName, confirmAuth string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{kind: "confirmation", to: to, routerName: routerName, key: confirmAuth})
	return nil
}

func (m *fakeMailer) SendConfirmed(to, routerName, unsubsAuth, prefAuth string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{kind: "confirmed", to: to, routerName: routerName, key: unsubsAuth})
	return nil
}
