// Package subscriber holds the subscriber aggregate: an email address tied
// to one relay, with the three authorization keys that gate the confirm,
// unsubscribe, and preferences URLs.
package subscriber

import (
	"fmt"
	"net/mail"
	"time"

	"torweather/internal/shared/id"
)

// EmailMaxLen is the maximum stored email address length.
const EmailMaxLen = 75

// ValidEmail reports whether addr parses as a bare RFC 5322 address.
func ValidEmail(addr string) bool {
	if addr == "" || len(addr) > EmailMaxLen {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}

// Subscriber is a confirmed or pending watcher of a single relay.
type Subscriber struct {
	id          uint
	email       string
	routerID    uint
	confirmed   bool
	confirmAuth string
	unsubsAuth  string
	prefAuth    string
	subDate     time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewSubscriber creates an unconfirmed subscriber with fresh auth keys.
func NewSubscriber(email string, routerID uint, now time.Time) (*Subscriber, error) {
	if !ValidEmail(email) {
		return nil, fmt.Errorf("invalid email address: %q", email)
	}
	if routerID == 0 {
		return nil, fmt.Errorf("router ID is required")
	}

	confirmAuth, err := id.NewAuthKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirm key: %w", err)
	}
	unsubsAuth, err := id.NewAuthKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate unsubscribe key: %w", err)
	}
	prefAuth, err := id.NewAuthKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate preferences key: %w", err)
	}

	return &Subscriber{
		email:       email,
		routerID:    routerID,
		confirmAuth: confirmAuth,
		unsubsAuth:  unsubsAuth,
		prefAuth:    prefAuth,
		subDate:     now,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructSubscriber rebuilds a subscriber from persistence.
func ReconstructSubscriber(
	sid uint,
	email string,
	routerID uint,
	confirmed bool,
	confirmAuth, unsubsAuth, prefAuth string,
	subDate, createdAt, updatedAt time.Time,
) (*Subscriber, error) {
	if sid == 0 {
		return nil, fmt.Errorf("subscriber ID cannot be zero")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if routerID == 0 {
		return nil, fmt.Errorf("router ID is required")
	}

	return &Subscriber{
		id:          sid,
		email:       email,
		routerID:    routerID,
		confirmed:   confirmed,
		confirmAuth: confirmAuth,
		unsubsAuth:  unsubsAuth,
		prefAuth:    prefAuth,
		subDate:     subDate,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

func (s *Subscriber) ID() uint            { return s.id }
func (s *Subscriber) Email() string       { return s.email }
func (s *Subscriber) RouterID() uint      { return s.routerID }
func (s *Subscriber) Confirmed() bool     { return s.confirmed }
func (s *Subscriber) ConfirmAuth() string { return s.confirmAuth }
func (s *Subscriber) UnsubsAuth() string  { return s.unsubsAuth }
func (s *Subscriber) PrefAuth() string    { return s.prefAuth }
func (s *Subscriber) SubDate() time.Time  { return s.subDate }
func (s *Subscriber) CreatedAt() time.Time { return s.createdAt }
func (s *Subscriber) UpdatedAt() time.Time { return s.updatedAt }

// SetID assigns the database ID after the initial insert.
func (s *Subscriber) SetID(sid uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscriber ID already set")
	}
	if sid == 0 {
		return fmt.Errorf("subscriber ID cannot be zero")
	}
	s.id = sid
	return nil
}

// Confirm marks the subscription confirmed. Confirming twice is a no-op
// kept idempotent so stale confirmation links don't error.
func (s *Subscriber) Confirm(now time.Time) {
	s.confirmed = true
	s.updatedAt = now
}
