// Package usecases implements the poll cycle: refreshing the relay table
// from the Tor consensus and running the notification checks against it.
package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"torweather/internal/domain/router"
	"torweather/internal/infrastructure/observability"
	"torweather/internal/infrastructure/torctl"
	"torweather/internal/shared/logger"
)

// ConsensusSource reads relay state from a running Tor client.
type ConsensusSource interface {
	AllStatusEntries() ([]*torctl.StatusEntry, error)
	GetDescriptor(fingerprint string) (*torctl.Descriptor, error)
}

// WelcomeMailer delivers the one-time operator welcome mail.
type WelcomeMailer interface {
	SendWelcome(to, routerName string, exit bool) error
}

// UpdateRoutersUseCase reconciles the relay table with the current
// consensus: relays present in the consensus are refreshed or created,
// absent ones are marked down, and newly stable relays with a contact
// address get the welcome mail.
type UpdateRoutersUseCase struct {
	routerRepo router.Repository
	source     ConsensusSource
	mailer     WelcomeMailer
	metrics    *observability.Metrics
	clock      clockwork.Clock
	logger     logger.Interface
}

// NewUpdateRoutersUseCase creates a new update routers use case.
func NewUpdateRoutersUseCase(
	routerRepo router.Repository,
	source ConsensusSource,
	mailer WelcomeMailer,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger logger.Interface,
) *UpdateRoutersUseCase {
	return &UpdateRoutersUseCase{
		routerRepo: routerRepo,
		source:     source,
		mailer:     mailer,
		metrics:    metrics,
		clock:      clock,
		logger:     logger,
	}
}

// Execute runs one reconciliation pass against the consensus.
func (uc *UpdateRoutersUseCase) Execute(ctx context.Context) error {
	entries, err := uc.source.AllStatusEntries()
	if err != nil {
		return fmt.Errorf("failed to fetch network status: %w", err)
	}

	byFingerprint := make(map[string]*torctl.StatusEntry, len(entries))
	for _, entry := range entries {
		byFingerprint[entry.Fingerprint] = entry
	}

	known, err := uc.routerRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list relays: %w", err)
	}

	now := uc.clock.Now()

	for _, rt := range known {
		entry, listed := byFingerprint[rt.Fingerprint()]
		if !listed {
			if rt.Up() {
				rt.MarkUnseen(now)
				if err := uc.routerRepo.Update(ctx, rt); err != nil {
					uc.logger.Errorw("failed to mark relay unseen", "fingerprint", rt.Fingerprint(), "error", err)
				}
			}
			continue
		}

		rt.MarkSeen(uc.statusFor(entry), now)
		if err := uc.routerRepo.Update(ctx, rt); err != nil {
			uc.logger.Errorw("failed to update relay", "fingerprint", rt.Fingerprint(), "error", err)
		}
		delete(byFingerprint, rt.Fingerprint())
	}

	for fingerprint, entry := range byFingerprint {
		rt, err := router.NewRouter(fingerprint, entry.Nickname, now)
		if err != nil {
			uc.logger.Warnw("skipping malformed consensus entry", "fingerprint", fingerprint, "error", err)
			continue
		}
		rt.MarkSeen(uc.statusFor(entry), now)
		if err := uc.routerRepo.Create(ctx, rt); err != nil {
			uc.logger.Errorw("failed to create relay", "fingerprint", fingerprint, "error", err)
		}
	}

	uc.metrics.RoutersTracked.Set(float64(len(entries)))
	uc.logger.Infow("relay table refreshed", "consensus_entries", len(entries), "previously_known", len(known))

	uc.welcomeNewOperators(ctx, now)

	return nil
}

// statusFor merges a consensus entry with the relay's descriptor. The
// descriptor can lag the consensus by a few minutes; when it is missing
// the flags and version from the status entry have to do.
func (uc *UpdateRoutersUseCase) statusFor(entry *torctl.StatusEntry) router.ConsensusStatus {
	st := router.ConsensusStatus{
		Name:        entry.Nickname,
		Exit:        entry.HasFlag("Exit"),
		Stable:      entry.HasFlag("Stable"),
		Version:     entry.Version,
		ObservedKBs: entry.BandwidthKBs,
	}

	desc, err := uc.source.GetDescriptor(entry.Fingerprint)
	if err != nil || desc == nil {
		return st
	}

	// Port 80 stands in for ordinary web traffic when classifying exits.
	st.Exit = desc.ExitPolicy.CanExitTo(80)
	st.Hibernating = desc.Hibernating
	st.Contact = desc.Contact
	if desc.Version != "" {
		st.Version = desc.Version
	}
	if kbs := desc.ObservedKBs(); kbs > 0 {
		st.ObservedKBs = kbs
	}
	return st
}

// welcomeNewOperators mails operators of relays that just earned the
// Stable flag. Welcome failures never fail the cycle.
func (uc *UpdateRoutersUseCase) welcomeNewOperators(ctx context.Context, now time.Time) {
	relays, err := uc.routerRepo.ListUnwelcomed(ctx)
	if err != nil {
		uc.logger.Errorw("failed to list unwelcomed relays", "error", err)
		return
	}

	for _, rt := range relays {
		addr := router.ParseContactEmail(rt.Contact())
		if addr == "" {
			uc.logger.Warnw("no parsable email in contact line",
				"fingerprint", rt.Fingerprint(), "contact", rt.Contact())
			continue
		}

		err := uc.mailer.SendWelcome(addr, rt.DisplayName(), rt.Exit())
		uc.metrics.ObserveEmail("welcome", err)
		if err != nil {
			uc.logger.Errorw("failed to send welcome mail", "fingerprint", rt.Fingerprint(), "error", err)
			continue
		}

		rt.MarkWelcomed(now)
		if err := uc.routerRepo.Update(ctx, rt); err != nil {
			uc.logger.Errorw("failed to record welcome", "fingerprint", rt.Fingerprint(), "error", err)
			continue
		}
		uc.logger.Infow("welcome mail sent", "fingerprint", rt.Fingerprint())
	}
}
