package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

// BonusCalculator decides the promotional bonus for a deposit. It must be a pure function.
type BonusCalculator interface {
	Bonus(amount decimal.Decimal) decimal.Decimal
}

type BonusFunc func(amount decimal.Decimal) decimal.Decimal

func (f BonusFunc) Bonus(amount decimal.Decimal) decimal.Decimal { return f(amount) }

// NoBonus never grants a bonus.
var NoBonus = BonusFunc(func(decimal.Decimal) decimal.Decimal { return decimal.Zero })

// DepositResult reports the balance after a deposit and any bonus credited with it.
type DepositResult struct {
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Bonus        decimal.Decimal `json:"bonus"`
}

// WalletLedger owns every balance mutation. Each mutation locks the wallet row and
// appends exactly one ledger entry in the same transaction.
type WalletLedger struct {
	logger     *slog.Logger
	transactor Transactor
	wallets    WalletsRepository
	entries    WalletTransactionsRepository
	bonus      BonusCalculator
	currency   string
	now        func() time.Time
}

func NewWalletLedger(
	logger *slog.Logger,
	transactor Transactor,
	wallets WalletsRepository,
	entries WalletTransactionsRepository,
	bonus BonusCalculator,
	currency string,
) *WalletLedger {
	if bonus == nil {
		bonus = NoBonus
	}
	return &WalletLedger{
		logger:     logger,
		transactor: transactor,
		wallets:    wallets,
		entries:    entries,
		bonus:      bonus,
		currency:   currency,
		now:        time.Now,
	}
}

// Debit decrements the available balance. It never clamps: an amount above the
// available balance fails with ErrInsufficientFunds.
func (l *WalletLedger) Debit(ctx context.Context, userID int64, amount decimal.Decimal, reason string, ref entities.LedgerReference) (decimal.Decimal, error) {
	return l.apply(ctx, userID, entities.TransactionTypeDebit, amount, reason, ref)
}

// Credit increments the available balance. Upper limits are the caller's concern.
func (l *WalletLedger) Credit(ctx context.Context, userID int64, amount decimal.Decimal, reason string, ref entities.LedgerReference) (decimal.Decimal, error) {
	return l.apply(ctx, userID, entities.TransactionTypeCredit, amount, reason, ref)
}

func (l *WalletLedger) apply(ctx context.Context, userID int64, typ entities.TransactionType, amount decimal.Decimal, reason string, ref entities.LedgerReference) (decimal.Decimal, error) {
	if !amount.IsPositive() || !isWholeCents(amount) {
		return decimal.Zero, ErrInvalidAmount
	}

	var balanceAfter decimal.Decimal
	err := l.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := l.wallets.LockForUpdate(ctx, userID, l.currency)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}
		if wallet.IsClosed() {
			return ErrWalletClosed
		}

		before := wallet.AvailableBalance
		after := before.Add(amount)
		if typ == entities.TransactionTypeDebit {
			if amount.GreaterThan(before) {
				return ErrInsufficientFunds
			}
			after = before.Sub(amount)
		}

		if err = l.wallets.UpdateAvailableBalance(ctx, wallet.ID, after); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		entry := &entities.WalletTransaction{
			WalletID:      wallet.ID,
			Type:          typ,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			ReferenceType: ref.Type,
			ReferenceID:   ref.ID,
			Description:   reason,
			CreatedAt:     l.now().UTC(),
		}
		if err = l.entries.Insert(ctx, entry); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		balanceAfter = after
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientFunds) && !errors.Is(err, ErrWalletClosed) {
			l.logger.ErrorContext(ctx, "Ledger mutation failed",
				"user_id", userID,
				"type", typ,
				"amount", amount.String(),
				"reference_type", ref.Type,
				"reference_id", ref.ID,
				"error", err)
		}
		return decimal.Zero, err
	}

	l.logger.DebugContext(ctx, "Ledger entry appended",
		"user_id", userID,
		"type", typ,
		"amount", amount.String(),
		"balance_after", balanceAfter.String())
	return balanceAfter, nil
}

// Deposit credits a confirmed external payment and any bonus it earns. A payment
// reference can only be credited once.
func (l *WalletLedger) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, paymentRef string) (*DepositResult, error) {
	if paymentRef == "" {
		return nil, ErrMissingReference
	}
	if !amount.IsPositive() || !isWholeCents(amount) {
		return nil, ErrInvalidAmount
	}

	var result DepositResult
	err := l.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := l.wallets.LockForUpdate(ctx, userID, l.currency)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}
		seen, err := l.entries.ExistsByReference(ctx, wallet.ID, entities.ReferenceDeposit, paymentRef)
		if err != nil {
			return fmt.Errorf("failed to check payment reference: %w", err)
		}
		if seen {
			return ErrDuplicateReference
		}

		ref := entities.LedgerReference{Type: entities.ReferenceDeposit, ID: paymentRef}
		if result.BalanceAfter, err = l.Credit(ctx, userID, amount, "Wallet deposit", ref); err != nil {
			return err
		}

		// Bonuses are paid in whole cents, fractions are dropped.
		result.Bonus = l.bonus.Bonus(amount).RoundDown(2)
		if result.Bonus.IsPositive() {
			bonusRef := entities.LedgerReference{Type: entities.ReferenceBonus, ID: paymentRef}
			if result.BalanceAfter, err = l.Credit(ctx, userID, result.Bonus, "Deposit bonus", bonusRef); err != nil {
				return err
			}
		} else {
			result.Bonus = decimal.Zero
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Deposit credited",
		"user_id", userID,
		"amount", amount.String(),
		"bonus", result.Bonus.String(),
		"payment_reference", paymentRef)
	return &result, nil
}

// GetBalance returns the user's wallet, creating it on first access.
func (l *WalletLedger) GetBalance(ctx context.Context, userID int64) (*entities.Wallet, error) {
	wallet, err := l.wallets.GetOrCreate(ctx, userID, l.currency)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for user %d: %w", userID, err)
	}
	return wallet, nil
}

// History returns the newest ledger entries first.
func (l *WalletLedger) History(ctx context.Context, userID int64, limit uint64) ([]entities.WalletTransaction, error) {
	wallet, err := l.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return l.entries.ListByWallet(ctx, wallet.ID, limit)
}

// Reconcile replays the ledger from zero and compares it with the stored balance.
func (l *WalletLedger) Reconcile(ctx context.Context, userID int64) error {
	wallet, err := l.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	entries, err := l.entries.ListByWalletAscending(ctx, wallet.ID)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	replayed := decimal.Zero
	for _, e := range entries {
		if !e.BalanceBefore.Equal(replayed) {
			return fmt.Errorf("%w: entry %d starts at %s, expected %s",
				ErrLedgerMismatch, e.ID, e.BalanceBefore.String(), replayed.String())
		}
		replayed = replayed.Add(e.Signed())
	}

	if !replayed.Equal(wallet.AvailableBalance) {
		l.logger.ErrorContext(ctx, "Ledger reconciliation failed",
			"user_id", userID,
			"stored", wallet.AvailableBalance.String(),
			"replayed", replayed.String())
		return fmt.Errorf("%w: stored=%s replayed=%s", ErrLedgerMismatch, wallet.AvailableBalance.String(), replayed.String())
	}
	return nil
}

// Close soft-closes the wallet. All balances must be zero.
func (l *WalletLedger) Close(ctx context.Context, userID int64) error {
	return l.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := l.wallets.LockForUpdate(ctx, userID, l.currency)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}
		if wallet.IsClosed() {
			return nil
		}
		if !wallet.IsEmpty() {
			return ErrWalletNotEmpty
		}
		if err = l.wallets.MarkClosed(ctx, wallet.ID, l.now().UTC()); err != nil {
			return fmt.Errorf("failed to close wallet: %w", err)
		}
		l.logger.InfoContext(ctx, "Wallet closed", "user_id", userID, "wallet_id", wallet.ID)
		return nil
	})
}

// isWholeCents reports whether amount fits the two-decimal balance columns without rounding.
func isWholeCents(amount decimal.Decimal) bool {
	return amount.Exponent() >= -2 || amount.Equal(amount.Round(2))
}
