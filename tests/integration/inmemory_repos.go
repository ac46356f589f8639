package integration

import (
	"context"
	"sort"
	"sync"

	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memDB is an in-memory stand-in for PostgreSQL with transaction semantics
// close enough to exercise the service layer honestly: ForUpdate reads take
// a coarse lock held until commit/rollback (standing in for row locks), and
// writes are buffered in the transaction and applied atomically on commit.
// A transaction that fails mid-way therefore leaves no partial state, same
// as a rolled-back database transaction.
type memDB struct {
	rowMu  sync.Mutex   // serializes locking transactions
	dataMu sync.RWMutex // guards the maps below

	players  map[uuid.UUID]*domain.Player
	wallets  map[uuid.UUID]*domain.Wallet
	products map[uuid.UUID]*domain.ScratchCardProduct
	prizes   map[uuid.UUID]*domain.Prize
	games    map[uuid.UUID]*domain.GameRecord
	license  *domain.License
	usage    []domain.UsageRecord
	deposits map[string]*domain.DepositRecord
	idemp    map[string]*domain.PlayIdempotencyLog
}

func newMemDB() *memDB {
	return &memDB{
		players:  make(map[uuid.UUID]*domain.Player),
		wallets:  make(map[uuid.UUID]*domain.Wallet),
		products: make(map[uuid.UUID]*domain.ScratchCardProduct),
		prizes:   make(map[uuid.UUID]*domain.Prize),
		games:    make(map[uuid.UUID]*domain.GameRecord),
		deposits: make(map[string]*domain.DepositRecord),
		idemp:    make(map[string]*domain.PlayIdempotencyLog),
	}
}

// --- seed helpers (direct, outside any transaction) ---

func (db *memDB) seedPlayer(p domain.Player) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	cp := p
	db.players[p.ID] = &cp
}

func (db *memDB) seedWallet(w domain.Wallet) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	cp := w
	db.wallets[w.ID] = &cp
}

func (db *memDB) seedProduct(p domain.ScratchCardProduct, prizes ...domain.Prize) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	cp := p
	db.products[p.ID] = &cp
	for _, pr := range prizes {
		prCp := pr
		db.prizes[pr.ID] = &prCp
	}
}

func (db *memDB) seedLicense(l domain.License) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	cp := l
	db.license = &cp
}

func (db *memDB) walletBalance(walletID uuid.UUID) int64 {
	db.dataMu.RLock()
	defer db.dataMu.RUnlock()
	if w, ok := db.wallets[walletID]; ok {
		return w.Balance
	}
	return -1
}

func (db *memDB) licenseState() domain.License {
	db.dataMu.RLock()
	defer db.dataMu.RUnlock()
	return *db.license
}

func (db *memDB) productState(id uuid.UUID) domain.ScratchCardProduct {
	db.dataMu.RLock()
	defer db.dataMu.RUnlock()
	return *db.products[id]
}

func (db *memDB) usageRecordCount() int {
	db.dataMu.RLock()
	defer db.dataMu.RUnlock()
	return len(db.usage)
}

// --- transaction ---

// memTx buffers writes until commit. The embedded nil pgx.Tx covers the
// interface surface the services never touch.
type memTx struct {
	pgx.Tx
	db     *memDB
	writes []func()
	locked bool
	done   bool
}

func (t *memTx) lockRows() {
	if !t.locked {
		t.db.rowMu.Lock()
		t.locked = true
	}
}

func (t *memTx) enqueue(w func()) {
	t.writes = append(t.writes, w)
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.db.dataMu.Lock()
	for _, w := range t.writes {
		w()
	}
	t.db.dataMu.Unlock()
	t.finish()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.finish()
	return nil
}

func (t *memTx) finish() {
	t.done = true
	t.writes = nil
	if t.locked {
		t.locked = false
		t.db.rowMu.Unlock()
	}
}

type memTransactor struct {
	db *memDB
}

func (tr *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{db: tr.db}, nil
}

func asMemTx(tx pgx.Tx) *memTx {
	return tx.(*memTx)
}

// --- Player repo ---

type memPlayerRepo struct{ db *memDB }

func (r *memPlayerRepo) Create(ctx context.Context, p *domain.Player) error {
	r.db.dataMu.Lock()
	defer r.db.dataMu.Unlock()
	for _, existing := range r.db.players {
		if existing.Username == p.Username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "players_username_key"}
		}
	}
	cp := *p
	r.db.players[p.ID] = &cp
	return nil
}

func (r *memPlayerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	p, ok := r.db.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPlayerRepo) GetByUsername(ctx context.Context, username string) (*domain.Player, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	for _, p := range r.db.players {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPlayerRepo) IncrementCounters(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, won bool) error {
	asMemTx(tx).enqueue(func() {
		p, ok := r.db.players[playerID]
		if !ok {
			return
		}
		p.TotalScratches++
		if won {
			p.TotalWins++
		} else {
			p.TotalLosses++
		}
	})
	return nil
}

// --- Wallet repo ---

type memWalletRepo struct{ db *memDB }

func (r *memWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.db.dataMu.Lock()
	defer r.db.dataMu.Unlock()
	cp := *w
	r.db.wallets[w.ID] = &cp
	return nil
}

func (r *memWalletRepo) GetByPlayerID(ctx context.Context, playerID uuid.UUID) (*domain.Wallet, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	for _, w := range r.db.wallets {
		if w.PlayerID == playerID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memWalletRepo) GetByPlayerIDForUpdate(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (*domain.Wallet, error) {
	asMemTx(tx).lockRows()
	return r.GetByPlayerID(ctx, playerID)
}

func (r *memWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance int64) error {
	if newBalance < 0 {
		// Mirrors the wallets_balance_check constraint.
		return &pgconn.PgError{Code: "23514", ConstraintName: "wallets_balance_check"}
	}
	asMemTx(tx).enqueue(func() {
		if w, ok := r.db.wallets[walletID]; ok {
			w.Balance = newBalance
		}
	})
	return nil
}

// --- Product repo ---

type memProductRepo struct{ db *memDB }

func (r *memProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScratchCardProduct, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	p, ok := r.db.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.ScratchCardProduct, error) {
	asMemTx(tx).lockRows()
	return r.GetByID(ctx, id)
}

func (r *memProductRepo) ListActivePrizes(ctx context.Context, productID uuid.UUID) ([]domain.Prize, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	var prizes []domain.Prize
	for _, p := range r.db.prizes {
		if p.ProductID == productID && p.IsActive {
			prizes = append(prizes, *p)
		}
	}
	sort.Slice(prizes, func(i, j int) bool { return prizes[i].SortOrder < prizes[j].SortOrder })
	return prizes, nil
}

func (r *memProductRepo) GetPrizeByID(ctx context.Context, id uuid.UUID) (*domain.Prize, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	p, ok := r.db.prizes[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) UpdateStats(ctx context.Context, tx pgx.Tx, product *domain.ScratchCardProduct) error {
	snapshot := *product
	asMemTx(tx).enqueue(func() {
		if p, ok := r.db.products[snapshot.ID]; ok {
			p.CurrentRTP = snapshot.CurrentRTP
			p.TotalRevenue = snapshot.TotalRevenue
			p.TotalPayouts = snapshot.TotalPayouts
			p.TotalGamesPlayed = snapshot.TotalGamesPlayed
			p.RTPRevenue = snapshot.RTPRevenue
			p.RTPPayouts = snapshot.RTPPayouts
		}
	})
	return nil
}

func (r *memProductRepo) ListActive(ctx context.Context) ([]domain.ScratchCardProduct, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	var products []domain.ScratchCardProduct
	for _, p := range r.db.products {
		if p.IsActive {
			products = append(products, *p)
		}
	}
	return products, nil
}

// --- Game repo ---

type memGameRepo struct{ db *memDB }

func (r *memGameRepo) Create(ctx context.Context, tx pgx.Tx, game *domain.GameRecord) error {
	snapshot := *game
	asMemTx(tx).enqueue(func() {
		r.db.games[snapshot.ID] = &snapshot
	})
	return nil
}

func (r *memGameRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.GameRecord, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	g, ok := r.db.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *memGameRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.GameRecord, error) {
	asMemTx(tx).lockRows()
	return r.GetByID(ctx, id)
}

func (r *memGameRepo) UpdateRedemption(ctx context.Context, tx pgx.Tx, game *domain.GameRecord) error {
	snapshot := *game
	asMemTx(tx).enqueue(func() {
		if g, ok := r.db.games[snapshot.ID]; ok {
			g.AmountWon = snapshot.AmountWon
			g.PrizeType = snapshot.PrizeType
			g.RedemptionChoice = snapshot.RedemptionChoice
			g.Status = snapshot.Status
		}
	})
	return nil
}

func (r *memGameRepo) AggregateByProduct(ctx context.Context, productID uuid.UUID) (*ports.GameAggregate, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	agg := &ports.GameAggregate{}
	for _, g := range r.db.games {
		if g.ProductID != productID {
			continue
		}
		agg.Games++
		if g.IsWinner {
			agg.Winners++
		}
		agg.AmountWon += g.AmountWon
	}
	return agg, nil
}

// --- License repo ---

type memLicenseRepo struct{ db *memDB }

func (r *memLicenseRepo) GetActive(ctx context.Context) (*domain.License, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	if r.db.license == nil || !r.db.license.IsActive {
		return nil, nil
	}
	cp := *r.db.license
	return &cp, nil
}

func (r *memLicenseRepo) GetActiveForUpdate(ctx context.Context, tx pgx.Tx) (*domain.License, error) {
	asMemTx(tx).lockRows()
	return r.GetActive(ctx)
}

func (r *memLicenseRepo) UpdateMeter(ctx context.Context, tx pgx.Tx, license *domain.License) error {
	snapshot := *license
	asMemTx(tx).enqueue(func() {
		if r.db.license != nil && r.db.license.ID == snapshot.ID {
			r.db.license.Credits = snapshot.Credits
			r.db.license.CreditsUsed = snapshot.CreditsUsed
			r.db.license.TotalEarnings = snapshot.TotalEarnings
		}
	})
	return nil
}

// --- Usage record repo ---

type memUsageRecordRepo struct{ db *memDB }

func (r *memUsageRecordRepo) Create(ctx context.Context, tx pgx.Tx, record *domain.UsageRecord) error {
	snapshot := *record
	asMemTx(tx).enqueue(func() {
		r.db.usage = append(r.db.usage, snapshot)
	})
	return nil
}

// --- Deposit repo ---

type memDepositRepo struct{ db *memDB }

func (r *memDepositRepo) Create(ctx context.Context, tx pgx.Tx, deposit *domain.DepositRecord) error {
	r.db.dataMu.RLock()
	_, exists := r.db.deposits[deposit.ProviderReference]
	r.db.dataMu.RUnlock()
	if exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "deposit_records_provider_reference_key"}
	}
	snapshot := *deposit
	asMemTx(tx).enqueue(func() {
		r.db.deposits[snapshot.ProviderReference] = &snapshot
	})
	return nil
}

func (r *memDepositRepo) GetByProviderReference(ctx context.Context, ref string) (*domain.DepositRecord, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	d, ok := r.db.deposits[ref]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// --- Idempotency repo ---

type memIdempotencyRepo struct{ db *memDB }

func (r *memIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.PlayIdempotencyLog) error {
	r.db.dataMu.RLock()
	_, exists := r.db.idemp[log.Key]
	r.db.dataMu.RUnlock()
	if exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "play_idempotency_logs_pkey"}
	}
	snapshot := *log
	asMemTx(tx).enqueue(func() {
		r.db.idemp[snapshot.Key] = &snapshot
	})
	return nil
}

func (r *memIdempotencyRepo) Get(ctx context.Context, key string) (*domain.PlayIdempotencyLog, error) {
	r.db.dataMu.RLock()
	defer r.db.dataMu.RUnlock()
	l, ok := r.db.idemp[key]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// --- Deterministic draw source ---

// scriptedDraws returns pre-set draws in order, repeating the last one when
// the script runs out.
type scriptedDraws struct {
	mu    sync.Mutex
	draws []float64
	next  int
}

func newScriptedDraws(draws ...float64) *scriptedDraws {
	return &scriptedDraws{draws: draws}
}

func (d *scriptedDraws) Draw() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.next >= len(d.draws) {
		return d.draws[len(d.draws)-1]
	}
	v := d.draws[d.next]
	d.next++
	return v
}
