package usecases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

var errInjected = errors.New("injected storage failure")

type txMarker struct{}

type storedSnapshot struct {
	meta    entities.FrozenDisclosure
	version int
	payload []byte
}

type storedLive struct {
	meta    entities.LiveDisclosure
	version int
	payload []byte
}

type memState struct {
	wallets      map[int64]entities.Wallet
	entries      []entities.WalletTransaction
	investments  []entities.CompanyInvestment
	acks         []entities.RiskAcknowledgement
	snapshots    map[uuid.UUID]storedSnapshot
	live         map[int64]storedLive
	nextWalletID int64
	nextEntryID  int64
	nextInvID    int64
	nextAckID    int64
}

func (s memState) clone() memState {
	out := s
	out.wallets = make(map[int64]entities.Wallet, len(s.wallets))
	for k, v := range s.wallets {
		out.wallets[k] = v
	}
	out.entries = slices.Clone(s.entries)
	out.investments = slices.Clone(s.investments)
	out.acks = slices.Clone(s.acks)
	out.snapshots = make(map[uuid.UUID]storedSnapshot, len(s.snapshots))
	for k, v := range s.snapshots {
		out.snapshots[k] = v
	}
	out.live = make(map[int64]storedLive, len(s.live))
	for k, v := range s.live {
		out.live[k] = v
	}
	return out
}

// memStore is an in-memory stand-in for PostgreSQL. Transactions are serialized by txMu,
// which also plays the role of the wallet row lock, and roll back by restoring a copy.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	state memState

	companies map[int64]entities.Company
	deals     map[int64][]entities.Deal
	flags     map[int64][]entities.RiskFlag
	users     map[int64]entities.User
	settings  map[string]string

	failSnapshotInsert   error
	failAckInsert        error
	failInvestmentInsert error
	failEntryInsert      error
	failCompanyLookup    error
	failSettings         error

	settingsReads int
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			wallets:   map[int64]entities.Wallet{},
			snapshots: map[uuid.UUID]storedSnapshot{},
			live:      map[int64]storedLive{},
		},
		companies: map[int64]entities.Company{},
		deals:     map[int64][]entities.Deal{},
		flags:     map[int64][]entities.RiskFlag{},
		users:     map[int64]entities.User{},
		settings:  map[string]string{},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Transactor

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.state.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.mu.Lock()
		s.state = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

// Seeding helpers

func (s *memStore) addCompany(c entities.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = c
}

func (s *memStore) updateCompany(id int64, fn func(c *entities.Company)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.companies[id]
	fn(&c)
	s.companies[id] = c
}

func (s *memStore) addDeal(d entities.Deal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals[d.CompanyID] = append(s.deals[d.CompanyID], d)
}

func (s *memStore) addFlag(f entities.RiskFlag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[f.CompanyID] = append(s.flags[f.CompanyID], f)
}

func (s *memStore) deactivateFlag(companyID int64, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.flags[companyID] {
		if f.Code == code {
			s.flags[companyID][i].IsActive = false
		}
	}
}

func (s *memStore) addUser(u entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memStore) setBalance(userID int64, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.getOrCreateLocked(userID, "INR")
	w.AvailableBalance = balance
	s.state.wallets[userID] = w
}

func (s *memStore) balance(userID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.wallets[userID].AvailableBalance
}

func (s *memStore) entriesFor(userID int64) []entities.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	walletID := s.state.wallets[userID].ID
	var out []entities.WalletTransaction
	for _, e := range s.state.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) counts() (investments, snapshots, acks, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.investments), len(s.state.snapshots), len(s.state.acks), len(s.state.entries)
}

// WalletsRepository

func (s *memStore) getOrCreateLocked(userID int64, currency string) entities.Wallet {
	w, ok := s.state.wallets[userID]
	if !ok {
		s.state.nextWalletID++
		w = entities.Wallet{
			ID:               s.state.nextWalletID,
			UserID:           userID,
			AvailableBalance: decimal.Zero,
			AllocatedBalance: decimal.Zero,
			PendingBalance:   decimal.Zero,
			Currency:         currency,
			Status:           entities.WalletStatusActive,
		}
		s.state.wallets[userID] = w
	}
	return w
}

func (s *memStore) FindByUser(_ context.Context, userID int64) (*entities.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.state.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *memStore) GetOrCreate(_ context.Context, userID int64, currency string) (*entities.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.getOrCreateLocked(userID, currency)
	return &w, nil
}

func (s *memStore) LockForUpdate(ctx context.Context, userID int64, currency string) (*entities.Wallet, error) {
	if ctx.Value(txMarker{}) == nil {
		return nil, errors.New("lock requested outside a transaction")
	}
	return s.GetOrCreate(ctx, userID, currency)
}

func (s *memStore) UpdateAvailableBalance(_ context.Context, walletID int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if balance.IsNegative() {
		return errors.New("check constraint: available_balance >= 0")
	}
	for userID, w := range s.state.wallets {
		if w.ID == walletID {
			w.AvailableBalance = balance
			s.state.wallets[userID] = w
			return nil
		}
	}
	return errors.New("wallet not found")
}

func (s *memStore) MarkClosed(_ context.Context, walletID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, w := range s.state.wallets {
		if w.ID == walletID {
			w.Status = entities.WalletStatusClosed
			w.ClosedAt = &at
			s.state.wallets[userID] = w
			return nil
		}
	}
	return errors.New("wallet not found")
}

// WalletTransactionsRepository

type memEntries struct{ *memStore }

func (s memEntries) Insert(_ context.Context, entry *entities.WalletTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEntryInsert != nil {
		return s.failEntryInsert
	}
	s.state.nextEntryID++
	entry.ID = s.state.nextEntryID
	s.state.entries = append(s.state.entries, *entry)
	return nil
}

func (s memEntries) ListByWallet(_ context.Context, walletID int64, limit uint64) ([]entities.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.WalletTransaction
	for i := len(s.state.entries) - 1; i >= 0; i-- {
		if s.state.entries[i].WalletID == walletID {
			out = append(out, s.state.entries[i])
		}
		if limit > 0 && uint64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s memEntries) ListByWalletAscending(_ context.Context, walletID int64) ([]entities.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.WalletTransaction
	for _, e := range s.state.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s memEntries) ExistsByReference(_ context.Context, walletID int64, referenceType, referenceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.state.entries {
		if e.WalletID == walletID && e.ReferenceType == referenceType && e.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

// InvestmentsRepository

type memInvestments struct{ *memStore }

func (s memInvestments) Insert(_ context.Context, inv *entities.CompanyInvestment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInvestmentInsert != nil {
		return s.failInvestmentInsert
	}
	if _, ok := s.state.snapshots[inv.DisclosureSnapshotID]; !ok {
		return errors.New("foreign key: disclosure snapshot does not exist")
	}
	for _, existing := range s.state.investments {
		if existing.DisclosureSnapshotID == inv.DisclosureSnapshotID {
			return errors.New("unique: disclosure_snapshot_id")
		}
		if inv.IdempotencyKey != nil && existing.IdempotencyKey != nil &&
			existing.UserID == inv.UserID && existing.CompanyID == inv.CompanyID &&
			*existing.IdempotencyKey == *inv.IdempotencyKey {
			return errors.New("unique: idempotency key")
		}
	}
	s.state.nextInvID++
	inv.ID = s.state.nextInvID
	s.state.investments = append(s.state.investments, *inv)
	return nil
}

func (s memInvestments) FindByID(_ context.Context, id int64) (*entities.CompanyInvestment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.state.investments {
		if inv.ID == id {
			return &inv, nil
		}
	}
	return nil, nil
}

func (s memInvestments) FindByIDForUser(ctx context.Context, id, userID int64) (*entities.CompanyInvestment, error) {
	inv, err := s.FindByID(ctx, id)
	if err != nil || inv == nil || inv.UserID != userID {
		return nil, err
	}
	return inv, nil
}

func (s memInvestments) FindByIdempotencyKey(_ context.Context, userID int64, key string) ([]entities.CompanyInvestment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.CompanyInvestment
	for _, inv := range s.state.investments {
		if inv.UserID == userID && inv.IdempotencyKey != nil && *inv.IdempotencyKey == key {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memInvestments) List(_ context.Context, userID int64, filter entities.InvestmentFilter) ([]entities.CompanyInvestment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.CompanyInvestment
	for i := len(s.state.investments) - 1; i >= 0; i-- {
		inv := s.state.investments[i]
		if inv.UserID != userID {
			continue
		}
		if filter.CompanyID > 0 && inv.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, inv)
		if filter.Limit > 0 && uint64(len(out)) == filter.Limit {
			break
		}
	}
	return out, nil
}

// AcknowledgementsRepository

type memAcks struct{ *memStore }

func (s memAcks) InsertBatch(_ context.Context, acks []entities.RiskAcknowledgement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAckInsert != nil {
		return s.failAckInsert
	}
	for _, a := range acks {
		if _, ok := s.state.snapshots[a.SnapshotID]; !ok {
			return errors.New("foreign key: snapshot does not exist")
		}
		s.state.nextAckID++
		a.ID = s.state.nextAckID
		s.state.acks = append(s.state.acks, a)
	}
	return nil
}

func (s memAcks) ListBySnapshot(_ context.Context, snapshotID uuid.UUID) ([]entities.RiskAcknowledgement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.RiskAcknowledgement
	for _, a := range s.state.acks {
		if a.SnapshotID == snapshotID {
			out = append(out, a)
		}
	}
	return out, nil
}

// SnapshotsRepository stores payloads encoded, as the database does.

type memSnapshots struct{ *memStore }

func (s memSnapshots) Insert(_ context.Context, snap entities.FrozenDisclosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSnapshotInsert != nil {
		return s.failSnapshotInsert
	}
	if _, ok := s.state.snapshots[snap.SnapshotID]; ok {
		return errors.New("unique: snapshot id")
	}
	version, payload, err := entities.EncodeSnapshotPayload(snap.State, snap.Platform)
	if err != nil {
		return err
	}
	meta := snap
	meta.State = entities.DisclosureState{}
	meta.Platform = entities.PlatformContext{}
	s.state.snapshots[snap.SnapshotID] = storedSnapshot{meta: meta, version: version, payload: payload}
	return nil
}

func (s memSnapshots) FindByID(_ context.Context, id uuid.UUID) (*entities.FrozenDisclosure, error) {
	s.mu.Lock()
	stored, ok := s.state.snapshots[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	out := stored.meta
	var err error
	out.State, out.Platform, err = entities.DecodeSnapshotPayload(stored.version, stored.payload)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s memSnapshots) UpsertLive(_ context.Context, live entities.LiveDisclosure) error {
	version, payload, err := entities.EncodeSnapshotPayload(live.State, live.Platform)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := live
	meta.State = entities.DisclosureState{}
	meta.Platform = entities.PlatformContext{}
	s.state.live[live.CompanyID] = storedLive{meta: meta, version: version, payload: payload}
	return nil
}

func (s memSnapshots) FindLive(_ context.Context, companyID int64) (*entities.LiveDisclosure, error) {
	s.mu.Lock()
	stored, ok := s.state.live[companyID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	out := stored.meta
	var err error
	out.State, out.Platform, err = entities.DecodeSnapshotPayload(stored.version, stored.payload)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CompaniesRepository

type memCompanies struct{ *memStore }

func (s memCompanies) FindByID(_ context.Context, id int64) (*entities.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCompanyLookup != nil {
		return nil, s.failCompanyLookup
	}
	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s memCompanies) ListDeals(_ context.Context, companyID int64) ([]entities.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deals[companyID]), nil
}

func (s memCompanies) ListActiveRiskFlags(_ context.Context, companyID int64) ([]entities.RiskFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.RiskFlag
	for _, f := range s.flags[companyID] {
		if f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s memCompanies) ListIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.companies))
	for id := range s.companies {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// UserReader

type memUsers struct{ *memStore }

func (s memUsers) FindByID(_ context.Context, id int64) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// SettingsRepository

type memSettings struct{ *memStore }

func (s memSettings) All(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsReads++
	if s.failSettings != nil {
		return nil, s.failSettings
	}
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

// recordingPublisher captures events and can fail on demand.
type recordingPublisher struct {
	mu     sync.Mutex
	events []entities.InvestmentCreatedEvent
	err    error
}

func (p *recordingPublisher) PublishInvestmentCreated(_ context.Context, events []entities.InvestmentCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) published() []entities.InvestmentCreatedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}
