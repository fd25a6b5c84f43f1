package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/redis"
	"pharmacy_admin/internal/repository"
	"pharmacy_admin/internal/storage"
	"pharmacy_admin/internal/upstream"
)

const (
	pharmacyCacheKey      = "pharmacies"
	genericSubmitFailure  = "Failed to place order. Please try again."
	defaultSubmitLockTime = 2 * time.Minute
)

type OrderPlacementService interface {
	Open(ctx context.Context, subscriptionID string, operatorID uint) (*ordering.Session, error)
	Get(ctx context.Context, sessionID string) (*ordering.Session, error)
	Candidates(ctx context.Context, sessionID string, lineIndex int) ([]ordering.Pharmacy, error)
	Select(ctx context.Context, sessionID string, lineIndex int, pharmacyID string) (*ordering.Session, error)
	RecordTotal(ctx context.Context, sessionID string, lineIndex int, total decimal.Decimal) (*ordering.Session, error)
	SetAddress(ctx context.Context, sessionID string, mode ordering.AddressMode, custom string) (*ordering.Session, error)
	SetNotes(ctx context.Context, sessionID, notes string) (*ordering.Session, error)
	Summary(ctx context.Context, sessionID string) (*SessionSummary, error)
	Submit(ctx context.Context, sessionID string) (*SubmitResult, error)
	Close(ctx context.Context, sessionID string) error
}

// PlacementOptions tunes session lifetimes. Zero values take defaults.
type PlacementOptions struct {
	SessionTTL       time.Duration
	PharmacyCacheTTL time.Duration
	SubmitLockTTL    time.Duration
}

// SummaryLine is one line of the order review.
type SummaryLine struct {
	ordering.Line
	Selection *ordering.Selection `json:"selection,omitempty"`
	LineTotal *decimal.Decimal    `json:"line_total,omitempty"`
}

// SessionSummary is what the operator reviews before submitting.
type SessionSummary struct {
	SessionID       string          `json:"session_id"`
	SubscriptionID  string          `json:"subscription_id"`
	CustomerName    string          `json:"customer_name"`
	Status          ordering.Status `json:"status"`
	Lines           []SummaryLine   `json:"lines"`
	Total           decimal.Decimal `json:"total"`
	MissingLines    []string        `json:"missing_lines"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	AddressError    string          `json:"address_error,omitempty"`
	Notes           string          `json:"notes"`
	ReadyToSubmit   bool            `json:"ready_to_submit"`
	LastError       string          `json:"last_error,omitempty"`
}

// SubmitResult reports the outcome of a submission. On failure Session holds
// the preserved session so the operator can correct it and try again.
type SubmitResult struct {
	Status       ordering.Status     `json:"status"`
	OrderNumber  string              `json:"order_number,omitempty"`
	NextDelivery *time.Time          `json:"next_delivery,omitempty"`
	Order        *models.PlacedOrder `json:"order,omitempty"`
	Session      *ordering.Session   `json:"session,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// SubmissionError is returned when the upstream did not accept the order.
// Message is safe to show to the operator.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string { return e.Message }

func (e *SubmissionError) Unwrap() error { return e.Err }

type orderPlacementService struct {
	upstream UpstreamClient
	store    SessionStore
	subRepo  repository.SubscriptionRepository
	orders   repository.OrderRepository
	receipts ReceiptArchive
	notifier NotificationService
	opts     PlacementOptions
	now      func() time.Time
}

func NewOrderPlacementService(
	upstream UpstreamClient,
	store SessionStore,
	subRepo repository.SubscriptionRepository,
	orders repository.OrderRepository,
	receipts ReceiptArchive,
	notifier NotificationService,
	opts PlacementOptions,
) OrderPlacementService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.SubmitLockTTL <= 0 {
		opts.SubmitLockTTL = defaultSubmitLockTime
	}
	return &orderPlacementService{
		upstream: upstream,
		store:    store,
		subRepo:  subRepo,
		orders:   orders,
		receipts: receipts,
		notifier: notifier,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *orderPlacementService) Open(ctx context.Context, subscriptionID string, operatorID uint) (*ordering.Session, error) {
	sub, err := s.activeSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if len(sub.Products) == 0 {
		return nil, ErrSubscriptionEmpty
	}

	sess := ordering.NewSession(uuid.NewString(), sub, operatorID, s.now())
	if err := s.store.SaveSession(ctx, sess, s.opts.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"session_id":      sess.ID,
		"subscription_id": sub.ID,
		"operator_id":     operatorID,
	}).Info("order session opened")
	return sess, nil
}

func (s *orderPlacementService) activeSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if sub.Status != models.SubscriptionActive || !sub.IsActive {
		return nil, ErrSubscriptionInactive
	}
	return sub, nil
}

func (s *orderPlacementService) Get(ctx context.Context, sessionID string) (*ordering.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func sessionLockName(sessionID string) string { return "order_session:" + sessionID }

func submitLockName(subscriptionID string) string { return "order_submit:" + subscriptionID }

// lock takes the named lock for this call only and returns its release func.
// busy is returned while someone else holds it.
func (s *orderPlacementService) lock(ctx context.Context, name string, busy error) (func(), error) {
	owner := uuid.NewString()
	acquired, err := s.store.AcquireLock(ctx, name, owner, s.opts.SubmitLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, busy
	}
	bg := context.WithoutCancel(ctx)
	return func() {
		if err := s.store.ReleaseLock(bg, name, owner); err != nil {
			logrus.WithError(err).WithField("lock", name).Warn("failed to release lock")
		}
	}, nil
}

// submitting reports whether a submission is in flight. A Submitting status
// older than the lock lifetime is left over from a crashed request.
func (s *orderPlacementService) submitting(sess *ordering.Session) bool {
	return sess.Status == ordering.StatusSubmitting && s.now().Sub(sess.UpdatedAt) < s.opts.SubmitLockTTL
}

// mutate applies fn to the stored session and saves it, holding the session
// lock so edits never interleave with a submission. Editing clears the error
// of a failed submission.
func (s *orderPlacementService) mutate(ctx context.Context, sessionID string, fn func(*ordering.Session) error) (*ordering.Session, error) {
	unlock, err := s.lock(ctx, sessionLockName(sessionID), ErrSessionBusy)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.submitting(sess) {
		return nil, ErrSubmissionInProgress
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.Status = ordering.StatusIdle
	sess.LastError = ""
	sess.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, sess, s.opts.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// pharmacies returns the upstream pharmacy list, cached for PharmacyCacheTTL.
func (s *orderPlacementService) pharmacies(ctx context.Context) ([]ordering.Pharmacy, error) {
	if s.opts.PharmacyCacheTTL > 0 {
		var cached []ordering.Pharmacy
		if err := s.store.GetTempData(ctx, pharmacyCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	list, err := s.upstream.Pharmacies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pharmacies: %w", err)
	}
	if s.opts.PharmacyCacheTTL > 0 {
		if err := s.store.SetTempData(ctx, pharmacyCacheKey, list, s.opts.PharmacyCacheTTL); err != nil {
			logrus.WithError(err).Warn("failed to cache pharmacies")
		}
	}
	return list, nil
}

func (s *orderPlacementService) Candidates(ctx context.Context, sessionID string, lineIndex int) ([]ordering.Pharmacy, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	line, err := sess.LineAt(lineIndex)
	if err != nil {
		return nil, err
	}
	list, err := s.pharmacies(ctx)
	if err != nil {
		return nil, err
	}
	return ordering.FilterByStock(list, line.Key.ProductID), nil
}

func (s *orderPlacementService) Select(ctx context.Context, sessionID string, lineIndex int, pharmacyID string) (*ordering.Session, error) {
	list, err := s.pharmacies(ctx)
	if err != nil {
		return nil, err
	}
	pharmacy, ok := ordering.FindPharmacy(list, pharmacyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ordering.ErrPharmacyNotFound, pharmacyID)
	}

	return s.mutate(ctx, sessionID, func(sess *ordering.Session) error {
		line, err := sess.LineAt(lineIndex)
		if err != nil {
			return err
		}
		if err := sess.Select(line.Key, pharmacy); err != nil {
			return err
		}
		sel := sess.Selections[line.Key]
		sess.RecordTotal(line.Key, sel.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		return nil
	})
}

func (s *orderPlacementService) RecordTotal(ctx context.Context, sessionID string, lineIndex int, total decimal.Decimal) (*ordering.Session, error) {
	if total.IsNegative() {
		return nil, ErrInvalidTotal
	}
	return s.mutate(ctx, sessionID, func(sess *ordering.Session) error {
		line, err := sess.LineAt(lineIndex)
		if err != nil {
			return err
		}
		if _, ok := sess.Selections[line.Key]; !ok {
			return fmt.Errorf("%w: %s", ErrLineNotSelected, line.Key.WireKey())
		}
		sess.RecordTotal(line.Key, total)
		return nil
	})
}

func (s *orderPlacementService) SetAddress(ctx context.Context, sessionID string, mode ordering.AddressMode, custom string) (*ordering.Session, error) {
	return s.mutate(ctx, sessionID, func(sess *ordering.Session) error {
		return sess.SetAddress(mode, custom)
	})
}

func (s *orderPlacementService) SetNotes(ctx context.Context, sessionID, notes string) (*ordering.Session, error) {
	return s.mutate(ctx, sessionID, func(sess *ordering.Session) error {
		sess.Notes = notes
		return nil
	})
}

func (s *orderPlacementService) Summary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Summarize(sess), nil
}

// Summarize builds the review of a session.
func Summarize(sess *ordering.Session) *SessionSummary {
	sum := &SessionSummary{
		SessionID:      sess.ID,
		SubscriptionID: sess.SubscriptionID,
		CustomerName:   sess.CustomerName,
		Status:         sess.Status,
		Lines:          make([]SummaryLine, 0, len(sess.Lines)),
		Total:          sess.Total(),
		MissingLines:   make([]string, 0),
		Notes:          sess.Notes,
		LastError:      sess.LastError,
	}
	for _, l := range sess.Lines {
		line := SummaryLine{Line: l}
		if sel, ok := sess.Selections[l.Key]; ok {
			total := ordering.LineTotal(sel, l.Quantity)
			line.Selection = &sel
			line.LineTotal = &total
		} else {
			sum.MissingLines = append(sum.MissingLines, l.Key.WireKey())
		}
		sum.Lines = append(sum.Lines, line)
	}

	addr, err := ordering.ResolveAddress(sess.AddressMode, sess.StoredAddress, sess.CustomAddress)
	if err != nil {
		sum.AddressError = err.Error()
	} else {
		sum.DeliveryAddress = addr
	}
	sum.ReadyToSubmit = len(sum.MissingLines) == 0 && err == nil
	return sum
}

// Submit places the order. The session is read only after its lock is held,
// so a session deleted by an earlier successful submit cannot be placed twice.
func (s *orderPlacementService) Submit(ctx context.Context, sessionID string) (*SubmitResult, error) {
	unlockSession, err := s.lock(ctx, sessionLockName(sessionID), ErrSessionBusy)
	if err != nil {
		return nil, err
	}
	defer unlockSession()

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.submitting(sess) {
		return nil, ErrSubmissionInProgress
	}

	submission, err := ordering.BuildSubmission(sess)
	if err != nil {
		return nil, err
	}
	sub, err := s.activeSubscription(ctx, sess.SubscriptionID)
	if err != nil {
		return nil, err
	}

	unlockSubscription, err := s.lock(ctx, submitLockName(sess.SubscriptionID), ErrSubmissionInProgress)
	if err != nil {
		return nil, err
	}
	defer unlockSubscription()

	// Local bookkeeping after the upstream call must not be cut short by
	// the caller going away.
	bg := context.WithoutCancel(ctx)

	sess.Status = ordering.StatusSubmitting
	sess.LastError = ""
	sess.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, sess, s.opts.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"session_id":      sess.ID,
		"subscription_id": sess.SubscriptionID,
		"operator_id":     sess.OperatorID,
	})

	placed, err := s.upstream.PlaceOrder(ctx, submission)
	if err != nil {
		return s.fail(bg, sess, err, log)
	}

	log = log.WithField("order_number", placed.OrderNumber)
	log.Info("order placed")
	order := s.recordSuccess(bg, sess, sub, submission, placed, log)

	if err := s.store.DeleteSession(bg, sess.ID); err != nil {
		log.WithError(err).Warn("failed to delete order session")
	}

	next := placed.NextDelivery
	return &SubmitResult{
		Status:       ordering.StatusSucceeded,
		OrderNumber:  placed.OrderNumber,
		NextDelivery: &next,
		Order:        order,
	}, nil
}

// fail returns the session to idle, untouched apart from its error, so the
// operator can correct it and submit again.
func (s *orderPlacementService) fail(ctx context.Context, sess *ordering.Session, cause error, log *logrus.Entry) (*SubmitResult, error) {
	msg := submitFailureMessage(cause)
	log.WithError(cause).Warn("order placement failed")

	sess.Status = ordering.StatusIdle
	sess.LastError = msg
	sess.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, sess, s.opts.SessionTTL); err != nil {
		log.WithError(err).Error("failed to save failed session")
	}
	return &SubmitResult{Status: ordering.StatusFailed, Session: sess, Error: msg},
		&SubmissionError{Message: msg, Err: cause}
}

// submitFailureMessage prefers the server's own message.
func submitFailureMessage(err error) string {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericSubmitFailure
}

// recordSuccess applies the server's next delivery date and keeps the local
// order history. The order already exists upstream, so failures here are
// logged and never turn the submission into an error.
func (s *orderPlacementService) recordSuccess(
	ctx context.Context,
	sess *ordering.Session,
	sub *models.Subscription,
	submission *ordering.Submission,
	placed *upstream.PlaceOrderResult,
	log *logrus.Entry,
) *models.PlacedOrder {
	next := placed.NextDelivery
	if err := s.subRepo.UpdateNextDelivery(ctx, sub.ID, next, models.NextDeliveryServer); err != nil {
		log.WithError(err).Error("failed to store next delivery date")
	} else {
		sub.NextDelivery = &next
		sub.NextDeliverySource = models.NextDeliveryServer
	}

	order := &models.PlacedOrder{
		OrderNumber:     placed.OrderNumber,
		SubscriptionID:  sub.ID,
		CustomerName:    sub.CustomerName,
		CustomerPhone:   sub.CustomerPhone,
		OrderDate:       s.now(),
		NextDelivery:    &next,
		Status:          string(models.OrderPlaced),
		TotalAmount:     submission.Total,
		DeliveryAddress: submission.DeliveryAddress,
		Notes:           submission.Notes,
		LineCount:       len(submission.Lines),
		PlacedBy:        sess.OperatorID,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		log.WithError(err).Error("failed to store placed order")
		return order
	}

	if s.receipts != nil {
		key := storage.ReceiptKey(sub.ID, placed.OrderNumber)
		receipt := newReceipt(sess, submission, placed)
		if err := s.receipts.PutJSON(ctx, key, receipt); err != nil {
			log.WithError(err).Warn("failed to archive receipt")
		} else {
			order.ReceiptObjectKey = key
			if err := s.orders.Update(ctx, order); err != nil {
				log.WithError(err).Warn("failed to link receipt")
			}
		}
	}

	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, sub, order); err != nil {
			log.WithError(err).Warn("failed to notify customer")
		}
	}
	return order
}

// Close discards the session without placing an order.
func (s *orderPlacementService) Close(ctx context.Context, sessionID string) error {
	unlock, err := s.lock(ctx, sessionLockName(sessionID), ErrSessionBusy)
	if err != nil {
		return err
	}
	defer unlock()

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.submitting(sess) {
		return ErrSubmissionInProgress
	}
	return s.store.DeleteSession(ctx, sessionID)
}
