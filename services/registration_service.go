package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
	"github.com/Dosada05/tournament-hub/storage"
)

type SubmitRegistrationInput struct {
	UserID         int     `json:"-"`
	BracketID      int     `json:"bracket_id"`
	Proof          string  `json:"proof"`
	TransactionRef *string `json:"transaction_ref,omitempty"`
}

type RegistrationService struct {
	store    repositories.Store
	authz    *Authorizer
	uploader storage.FileUploader
	notifier *Dispatcher
	live     LivePublisher
	audit    auditor
	logger   *slog.Logger
	now      func() time.Time
}

func NewRegistrationService(
	store repositories.Store,
	uploader storage.FileUploader,
	notifier *Dispatcher,
	live LivePublisher,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		store:    store,
		authz:    NewAuthorizer(store),
		uploader: uploader,
		notifier: notifier,
		live:     orNoop(live),
		audit:    auditor{store: store, logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

// Submit stores the proof and creates a pending registration.
func (s *RegistrationService) Submit(ctx context.Context, input SubmitRegistrationInput) (*models.Registration, error) {
	user, err := s.authz.Member(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	proof, err := storage.DecodeProof(input.Proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	bracket, err := s.store.GetBracket(ctx, input.BracketID)
	if err != nil {
		return nil, handleRepositoryError(err, "load bracket")
	}
	tournament, err := s.store.GetTournament(ctx, bracket.TournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament")
	}
	if tournament.Status != models.StatusRegistration || !bracket.Active {
		return nil, ErrRegistrationNotOpen
	}

	key := storage.ProofKey(user.ID, proof)
	if _, err := s.uploader.Upload(ctx, key, proof.ContentType, bytes.NewReader(proof.Data)); err != nil {
		return nil, fmt.Errorf("store proof: %w", err)
	}

	if input.TransactionRef != nil {
		ref := strings.TrimSpace(*input.TransactionRef)
		input.TransactionRef = &ref
		if ref == "" {
			input.TransactionRef = nil
		}
	}
	reg := &models.Registration{
		UserID:         user.ID,
		BracketID:      bracket.ID,
		ProofKey:       key,
		TransactionRef: input.TransactionRef,
	}
	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned proof", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err, "create registration")
	}
	reg.ProofURL = s.uploader.GetPublicURL(key)

	s.logger.InfoContext(ctx, "Registration submitted",
		slog.Int("registration_id", reg.ID), slog.Int("user_id", user.ID), slog.Int("bracket_id", bracket.ID))

	notices := make([]Notice, 0, 4)
	if chat, ok := chatOf(user); ok {
		notices = append(notices, Notice{chat, fmt.Sprintf(
			"Registration submitted for %s (%d Birr). Status: pending approval.", tournament.Name, bracket.Amount)})
	}
	notices = append(notices, staffNotices(ctx, s.store, s.logger, fmt.Sprintf(
		"New registration pending: %s for %s (%d Birr).", user.Handle, tournament.Name, bracket.Amount))...)
	s.notifier.Send(notices...)
	return reg, nil
}

// Approve reserves a slot and approves. On any error nothing changes.
func (s *RegistrationService) Approve(ctx context.Context, actorID, registrationID int) (*models.Registration, error) {
	actor, err := s.authz.Staff(ctx, actorID)
	if err != nil {
		return nil, err
	}
	reg, err := s.store.ApproveRegistration(ctx, registrationID, models.Decision{Actor: actor.Handle, At: s.now().UTC()})
	if err != nil {
		return nil, handleRepositoryError(err, "approve registration")
	}

	s.logger.InfoContext(ctx, "Registration approved",
		slog.Int("registration_id", reg.ID), slog.Int("bracket_id", reg.BracketID), slog.String("actor", actor.Handle))
	s.afterDecision(ctx, actor, reg, "approve_registration",
		"Registration approved. You can now take part in the tournament; check fixtures in the app.")

	if bracket, err := s.store.GetBracket(ctx, reg.BracketID); err == nil {
		s.live.Publish(reg.TournamentID, "bracket_updated", bracket)
	}
	return reg, nil
}

func (s *RegistrationService) Reject(ctx context.Context, actorID, registrationID int, reason string) (*models.Registration, error) {
	actor, err := s.authz.Staff(ctx, actorID)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	reg, err := s.store.RejectRegistration(ctx, registrationID, models.Decision{Actor: actor.Handle, Reason: reason, At: s.now().UTC()})
	if err != nil {
		return nil, handleRepositoryError(err, "reject registration")
	}

	s.logger.InfoContext(ctx, "Registration rejected",
		slog.Int("registration_id", reg.ID), slog.String("actor", actor.Handle))
	if reason == "" {
		reason = "not given"
	}
	s.afterDecision(ctx, actor, reg, "reject_registration",
		fmt.Sprintf("Registration rejected. Reason: %s. Contact an admin for more information.", reason))
	return reg, nil
}

func (s *RegistrationService) afterDecision(ctx context.Context, actor *models.User, reg *models.Registration, action, text string) {
	user, err := s.store.GetUserByID(ctx, reg.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load registrant for notification", slog.Int("user_id", reg.UserID), slog.Any("error", err))
	} else if chat, ok := chatOf(user); ok {
		s.notifier.Send(Notice{chat, text})
	}
	handle := fmt.Sprintf("user %d", reg.UserID)
	if user != nil {
		handle = user.Handle
	}
	s.audit.record(ctx, actor, action, "registration %d of %s in tournament %d %s",
		reg.ID, handle, reg.TournamentID, derefString(reg.RejectionReason))
}

// ListPending is the admin review queue, oldest first.
func (s *RegistrationService) ListPending(ctx context.Context, actorID int) ([]*models.Registration, error) {
	if _, err := s.authz.Staff(ctx, actorID); err != nil {
		return nil, err
	}
	pending := models.RegistrationPending
	regs, err := s.store.ListRegistrations(ctx, repositories.ListRegistrationsFilter{Status: &pending})
	if err != nil {
		return nil, handleRepositoryError(err, "list pending registrations")
	}
	for _, r := range regs {
		r.ProofURL = s.uploader.GetPublicURL(r.ProofKey)
	}
	return regs, nil
}

func (s *RegistrationService) ListForUser(ctx context.Context, userID int) ([]*models.Registration, error) {
	regs, err := s.store.ListRegistrations(ctx, repositories.ListRegistrationsFilter{UserID: &userID})
	if err != nil {
		return nil, handleRepositoryError(err, "list user registrations")
	}
	return regs, nil
}
