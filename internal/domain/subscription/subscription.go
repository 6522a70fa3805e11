// Package subscription holds the subscription aggregate. One subscriber
// carries at most one subscription of each type; the type discriminator
// selects which trigger state machine applies during a poll cycle.
package subscription

import (
	"fmt"
	"time"
)

// Type discriminates the four notification kinds.
type Type string

const (
	TypeNodeDown  Type = "node_down"
	TypeVersion   Type = "version"
	TypeBandwidth Type = "bandwidth"
	TypeTShirt    Type = "t_shirt"
)

// ValidTypes lists every known subscription type.
var ValidTypes = map[Type]bool{
	TypeNodeDown:  true,
	TypeVersion:   true,
	TypeBandwidth: true,
	TypeTShirt:    true,
}

// NotifyType selects the version-subscription policy.
type NotifyType string

const (
	// NotifyUnrecommended fires when the relay's version is absent from
	// the directory authorities' recommended list.
	NotifyUnrecommended NotifyType = "unrecommended"

	// NotifyObsolete fires only when the version is older than every
	// recommended version.
	NotifyObsolete NotifyType = "obsolete"
)

const (
	// Grace period bounds for node-down subscriptions, in hours.
	GracePeriodMin     = 1
	GracePeriodMax     = 4500
	GracePeriodDefault = 1

	// ThresholdDefault is the default low-bandwidth threshold in KB/s.
	ThresholdDefault = 20

	// T-shirt eligibility: 61 days of cumulative uptime with at least
	// 500 KB/s average observed bandwidth, or 100 KB/s for exits.
	TShirtHoursRequired = 1464
	TShirtMinAvgKBs     = 500
	TShirtExitMinAvgKBs = 100
)

// Subscription is one notification rule belonging to a subscriber.
type Subscription struct {
	id           uint
	subscriberID uint
	subType      Type
	emailed      bool
	triggered    bool
	lastChanged  *time.Time
	graceHours   int
	notifyType   NotifyType
	thresholdKBs int64
	avgKBs       float64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewNodeDownSubscription creates a node-down rule with the given grace
// period in hours.
func NewNodeDownSubscription(subscriberID uint, graceHours int, now time.Time) (*Subscription, error) {
	if subscriberID == 0 {
		return nil, fmt.Errorf("subscriber ID is required")
	}
	if graceHours == 0 {
		graceHours = GracePeriodDefault
	}
	if graceHours < GracePeriodMin || graceHours > GracePeriodMax {
		return nil, fmt.Errorf("grace period must be between %d and %d hours, got %d",
			GracePeriodMin, GracePeriodMax, graceHours)
	}

	return &Subscription{
		subscriberID: subscriberID,
		subType:      TypeNodeDown,
		graceHours:   graceHours,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// NewVersionSubscription creates a version rule with the given policy.
func NewVersionSubscription(subscriberID uint, notifyType NotifyType, now time.Time) (*Subscription, error) {
	if subscriberID == 0 {
		return nil, fmt.Errorf("subscriber ID is required")
	}
	if notifyType != NotifyUnrecommended && notifyType != NotifyObsolete {
		return nil, fmt.Errorf("invalid notify type: %q", notifyType)
	}

	return &Subscription{
		subscriberID: subscriberID,
		subType:      TypeVersion,
		notifyType:   notifyType,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// NewBandwidthSubscription creates a low-bandwidth rule with the given
// threshold in KB/s.
func NewBandwidthSubscription(subscriberID uint, thresholdKBs int64, now time.Time) (*Subscription, error) {
	if subscriberID == 0 {
		return nil, fmt.Errorf("subscriber ID is required")
	}
	if thresholdKBs < 0 {
		return nil, fmt.Errorf("threshold must be non-negative, got %d", thresholdKBs)
	}
	if thresholdKBs == 0 {
		thresholdKBs = ThresholdDefault
	}

	return &Subscription{
		subscriberID: subscriberID,
		subType:      TypeBandwidth,
		thresholdKBs: thresholdKBs,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// NewTShirtSubscription creates a T-shirt eligibility rule.
func NewTShirtSubscription(subscriberID uint, now time.Time) (*Subscription, error) {
	if subscriberID == 0 {
		return nil, fmt.Errorf("subscriber ID is required")
	}

	return &Subscription{
		subscriberID: subscriberID,
		subType:      TypeTShirt,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructParams carries every persisted field of a subscription.
type ReconstructParams struct {
	ID           uint
	SubscriberID uint
	Type         Type
	Emailed      bool
	Triggered    bool
	LastChanged  *time.Time
	GraceHours   int
	NotifyType   NotifyType
	ThresholdKBs int64
	AvgKBs       float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Reconstruct rebuilds a subscription from persistence.
func Reconstruct(p ReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if p.SubscriberID == 0 {
		return nil, fmt.Errorf("subscriber ID is required")
	}
	if !ValidTypes[p.Type] {
		return nil, fmt.Errorf("invalid subscription type: %q", p.Type)
	}

	return &Subscription{
		id:           p.ID,
		subscriberID: p.SubscriberID,
		subType:      p.Type,
		emailed:      p.Emailed,
		triggered:    p.Triggered,
		lastChanged:  p.LastChanged,
		graceHours:   p.GraceHours,
		notifyType:   p.NotifyType,
		thresholdKBs: p.ThresholdKBs,
		avgKBs:       p.AvgKBs,
		createdAt:    p.CreatedAt,
		updatedAt:    p.UpdatedAt,
	}, nil
}

func (s *Subscription) ID() uint                { return s.id }
func (s *Subscription) SubscriberID() uint      { return s.subscriberID }
func (s *Subscription) Type() Type              { return s.subType }
func (s *Subscription) Emailed() bool           { return s.emailed }
func (s *Subscription) Triggered() bool         { return s.triggered }
func (s *Subscription) LastChanged() *time.Time { return s.lastChanged }
func (s *Subscription) GraceHours() int         { return s.graceHours }
func (s *Subscription) NotifyType() NotifyType  { return s.notifyType }
func (s *Subscription) ThresholdKBs() int64     { return s.thresholdKBs }
func (s *Subscription) AvgKBs() float64         { return s.avgKBs }
func (s *Subscription) CreatedAt() time.Time    { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time    { return s.updatedAt }

// SetID assigns the database ID after the initial insert.
func (s *Subscription) SetID(sid uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID already set")
	}
	if sid == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = sid
	return nil
}

// SetGraceHours updates the node-down grace period.
func (s *Subscription) SetGraceHours(hours int, now time.Time) error {
	if s.subType != TypeNodeDown {
		return fmt.Errorf("grace period applies only to node-down subscriptions")
	}
	if hours < GracePeriodMin || hours > GracePeriodMax {
		return fmt.Errorf("grace period must be between %d and %d hours, got %d",
			GracePeriodMin, GracePeriodMax, hours)
	}
	s.graceHours = hours
	s.updatedAt = now
	return nil
}

// SetNotifyType updates the version policy.
func (s *Subscription) SetNotifyType(nt NotifyType, now time.Time) error {
	if s.subType != TypeVersion {
		return fmt.Errorf("notify type applies only to version subscriptions")
	}
	if nt != NotifyUnrecommended && nt != NotifyObsolete {
		return fmt.Errorf("invalid notify type: %q", nt)
	}
	s.notifyType = nt
	s.updatedAt = now
	return nil
}

// SetThresholdKBs updates the low-bandwidth threshold.
func (s *Subscription) SetThresholdKBs(kbs int64, now time.Time) error {
	if s.subType != TypeBandwidth {
		return fmt.Errorf("threshold applies only to bandwidth subscriptions")
	}
	if kbs < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", kbs)
	}
	s.thresholdKBs = kbs
	s.updatedAt = now
	return nil
}

func hoursSince(t time.Time, now time.Time) int {
	return int(now.Sub(t).Hours())
}

// ObserveNodeStatus advances the node-down state machine for one poll
// observation and reports whether the down notification should be sent
// now. A relay back up rearms the subscription.
func (s *Subscription) ObserveNodeStatus(up bool, now time.Time) bool {
	s.updatedAt = now

	if up {
		s.triggered = false
		s.emailed = false
		s.lastChanged = nil
		return false
	}

	if !s.triggered {
		s.triggered = true
		t := now
		s.lastChanged = &t
		// The grace period starts counting from the first down sighting;
		// a zero grace period still notifies on this same observation.
	}

	if s.emailed || s.lastChanged == nil {
		return false
	}
	if hoursSince(*s.lastChanged, now) >= s.graceHours {
		s.emailed = true
		return true
	}
	return false
}

// ObserveVersionStatus advances the version state machine: versionOK is
// the policy decision for the relay's current version. Reports whether
// the notification should be sent now.
func (s *Subscription) ObserveVersionStatus(versionOK bool, now time.Time) bool {
	s.updatedAt = now

	if versionOK {
		s.emailed = false
		return false
	}
	if s.emailed {
		return false
	}
	s.emailed = true
	return true
}

// ObserveBandwidth advances the low-bandwidth state machine with the
// relay's observed bandwidth in KB/s.
func (s *Subscription) ObserveBandwidth(observedKBs int64, now time.Time) bool {
	s.updatedAt = now

	if observedKBs >= s.thresholdKBs {
		s.emailed = false
		return false
	}
	if s.emailed {
		return false
	}
	s.emailed = true
	return true
}

// ObserveUptime advances the T-shirt state machine. While the relay stays
// up it accumulates hours and a running average of observed bandwidth;
// any downtime resets the accumulation. Reports whether the eligibility
// notification should be sent now; it is sent at most once.
func (s *Subscription) ObserveUptime(up, exit bool, observedKBs int64, now time.Time) bool {
	s.updatedAt = now

	if s.emailed {
		return false
	}

	if !up {
		s.triggered = false
		s.lastChanged = nil
		s.avgKBs = 0
		return false
	}

	if !s.triggered {
		s.triggered = true
		t := now
		s.lastChanged = &t
		s.avgKBs = float64(observedKBs)
		return false
	}

	hoursUp := hoursSince(*s.lastChanged, now)
	// Weighted running average over the accumulated up-hours.
	s.avgKBs = (s.avgKBs*float64(hoursUp) + float64(observedKBs)) / float64(hoursUp+1)

	required := float64(TShirtMinAvgKBs)
	if exit {
		required = float64(TShirtExitMinAvgKBs)
	}

	if hoursUp >= TShirtHoursRequired && s.avgKBs >= required {
		s.emailed = true
		return true
	}
	return false
}
