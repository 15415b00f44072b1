package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/marketplace/internal/domain"
)

// PurchaseUseCase debits a user's ledger for a product.
//
// Correctness rests on the store: the balance is read and the debit written inside one
// SERIALIZABLE transaction, so two concurrent purchases can never both observe the
// pre-debit balance and commit. Conflicts are retried from scratch by the Retrier.
type PurchaseUseCase struct {
	txManager    TransactionManager
	productRepo  ProductRepository
	ledgerRepo   LedgerRepository
	purchaseRepo PurchaseRepository
	outboxRepo   OutboxRepository
	retrier      Retrier
	idGen        IDGenerator
	recorder     PurchaseRecorder
	logger       zerolog.Logger
	txTimeout    time.Duration
}

// NewPurchaseUseCase creates a new PurchaseUseCase. outboxRepo may be nil.
func NewPurchaseUseCase(
	txManager TransactionManager,
	productRepo ProductRepository,
	ledgerRepo LedgerRepository,
	purchaseRepo PurchaseRepository,
	outboxRepo OutboxRepository,
	retrier Retrier,
	idGen IDGenerator,
) *PurchaseUseCase {
	return &PurchaseUseCase{
		txManager:    txManager,
		productRepo:  productRepo,
		ledgerRepo:   ledgerRepo,
		purchaseRepo: purchaseRepo,
		outboxRepo:   outboxRepo,
		retrier:      retrier,
		idGen:        idGen,
		recorder:     noopRecorder{},
		logger:       zerolog.Nop(),
		txTimeout:    DefaultTransactionTimeout,
	}
}

// WithRecorder sets the telemetry sink.
func (uc *PurchaseUseCase) WithRecorder(recorder PurchaseRecorder) *PurchaseUseCase {
	if recorder != nil {
		uc.recorder = recorder
	}
	return uc
}

// WithLogger sets the logger.
func (uc *PurchaseUseCase) WithLogger(logger zerolog.Logger) *PurchaseUseCase {
	uc.logger = logger
	return uc
}

// PurchaseInput represents input for a purchase.
type PurchaseInput struct {
	UserID    string
	ProductID string
}

// PurchaseResult is a committed purchase and the balance read after it.
type PurchaseResult struct {
	Purchase *domain.Purchase
	Balance  decimal.Decimal
}

// Purchase charges the product price to the user.
//
// Fails with domain.ErrProductNotFound or domain.ErrInsufficientFunds without writing
// anything. Store conflicts are retried; exhausting retries fails with domain.ErrUnavailable.
func (uc *PurchaseUseCase) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	if err := domain.ValidateID("user_id", input.UserID); err != nil {
		return nil, err
	}
	if err := domain.ValidateID("product_id", input.ProductID); err != nil {
		return nil, err
	}

	start := time.Now()
	attempts := 0

	var purchase *domain.Purchase
	err := uc.retrier.Retry(ctx, func() error {
		attempts++
		if attempts > 1 {
			uc.recorder.IncPurchaseRetry()
		}

		p, err := uc.purchaseOnce(ctx, input)
		if err != nil {
			return err
		}

		purchase = p
		return nil
	})
	if err != nil {
		uc.recorder.ObservePurchase(purchaseOutcome(err), time.Since(start))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		return nil, err
	}

	// The commit does not hand back the balance; read it again strictly after the commit.
	balance, err := uc.ledgerRepo.Balance(ctx, input.UserID)
	if err != nil {
		uc.logger.Error().Err(err).
			Str("purchase_id", purchase.ID).
			Str("user_id", input.UserID).
			Msg("purchase committed but balance read failed")
		uc.recorder.ObservePurchase(OutcomeUnavailable, time.Since(start))
		return nil, fmt.Errorf("%w: read balance after purchase %s: %w", domain.ErrUnavailable, purchase.ID, err)
	}

	uc.recorder.ObservePurchase(OutcomeSuccess, time.Since(start))
	uc.logger.Info().
		Str("purchase_id", purchase.ID).
		Str("user_id", input.UserID).
		Str("product_id", input.ProductID).
		Int("attempts", attempts).
		Msg("purchase committed")

	return &PurchaseResult{Purchase: purchase, Balance: balance}, nil
}

// purchaseOnce runs one attempt of the purchase transaction.
func (uc *PurchaseUseCase) purchaseOnce(ctx context.Context, input PurchaseInput) (*domain.Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	tx, err := uc.txManager.BeginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 1. Load the price
	product, err := uc.productRepo.GetByIDTx(ctx, tx, input.ProductID)
	if err != nil {
		return nil, err
	}
	// A non-positive price would credit the buyer.
	if err := product.Validate(); err != nil {
		return nil, fmt.Errorf("product %s: %w", product.ID, err)
	}

	// 2. Derive the balance inside the transaction
	balance, err := uc.ledgerRepo.BalanceTx(ctx, tx, input.UserID)
	if err != nil {
		return nil, err
	}

	// 3. Reject without writing
	if !domain.CanAfford(balance, product.Price) {
		return nil, domain.ErrInsufficientFunds
	}

	// 4. Debit entry and audit record
	now := time.Now().UTC()

	entry := domain.NewDebitEntry(uc.idGen.Generate(), input.UserID, product.Price, now)
	if err := uc.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	purchase := &domain.Purchase{
		ID:        uc.idGen.Generate(),
		UserID:    input.UserID,
		ProductID: product.ID,
		Price:     product.Price,
		CreatedAt: now,
	}
	if err := uc.purchaseRepo.Create(ctx, tx, purchase); err != nil {
		return nil, err
	}

	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   purchase.ID,
			AggregateType: domain.AggregateTypePurchase,
			EventType:     domain.EventTypePurchaseCompleted,
			Payload: domain.PurchaseCompletedEvent{
				PurchaseID: purchase.ID,
				UserID:     purchase.UserID,
				ProductID:  purchase.ProductID,
				Price:      purchase.Price.String(),
				OccurredAt: now.Format(time.RFC3339Nano),
			}.ToPayload(),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	// 5. Commit
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return purchase, nil
}

// GetBalance returns the user's derived balance.
func (uc *PurchaseUseCase) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if err := domain.ValidateID("user_id", userID); err != nil {
		return decimal.Zero, err
	}
	return uc.ledgerRepo.Balance(ctx, userID)
}

// ListPurchasesInput represents input for listing purchases.
type ListPurchasesInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListPurchases lists the user's purchases, newest first.
func (uc *PurchaseUseCase) ListPurchases(ctx context.Context, input ListPurchasesInput) ([]*domain.Purchase, error) {
	if err := domain.ValidateID("user_id", input.UserID); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.purchaseRepo.ListByUser(ctx, input.UserID, limit, offset)
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return OutcomeInsufficientFunds
	case errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
