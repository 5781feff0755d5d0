package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/repositories"
)

// TradeColumns is the header of the trade import file, in template order.
var TradeColumns = []string{"date", "ticker", "name", "trade_type", "quantity", "price", "fees", "currency", "exchange_rate", "notes"}

// HistoryColumns is the header of the balance history import file.
var HistoryColumns = []string{"date", "account_name", "account_type", "account_category", "balance"}

var columnAliases = map[string]string{
	"trade_date": "date",
	"type":       "trade_type",
	"qty":        "quantity",
	"units":      "quantity",
	"fee":        "fees",
	"fx_rate":    "exchange_rate",
	"fx":         "exchange_rate",
	"account":    "account_name",
	"category":   "account_category",
	"value":      "balance",
}

type importService struct {
	db       *db.DB
	accounts AccountService
	trades   TradeService
	balances repositories.BalanceRepository
	locks    *AccountLocks
	listener LedgerListener
	logger   *zap.Logger
}

// NewImportService creates the CSV import service. Imported trades go through
// the trade ledger one by one and the touched accounts are reconciled once
// at the end.
func NewImportService(database *db.DB, accounts AccountService, trades TradeService, locks *AccountLocks, listener LedgerListener, log *zap.Logger) ImportService {
	return &importService{
		db:       database,
		accounts: accounts,
		trades:   trades,
		balances: repositories.NewBalanceRepository(database),
		locks:    locks,
		listener: listener,
		logger:   logger.OrNop(log),
	}
}

// csvRow is one data row keyed by canonical column name. Line is 1-based
// and counts the header.
type csvRow struct {
	line   int
	fields map[string]string
}

func (r csvRow) get(col string) string {
	return strings.TrimSpace(r.fields[col])
}

func readCSV(r io.Reader, required []string) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &apperrors.ErrValidation{Field: "file", Message: "file is empty"}
	}
	if err != nil {
		return nil, &apperrors.ErrValidation{Field: "file", Message: err.Error()}
	}
	cols := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		name = strings.ReplaceAll(name, " ", "_")
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		cols[i] = name
		present[name] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &apperrors.ErrValidation{Field: "file", Message: "missing columns: " + strings.Join(missing, ", ")}
	}

	var rows []csvRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &apperrors.ErrValidation{Field: "file", Message: fmt.Sprintf("row %d: %v", line, err)}
		}
		if blank(record) {
			continue
		}
		fields := make(map[string]string, len(cols))
		for i, v := range record {
			if i < len(cols) {
				fields[cols[i]] = v
			}
		}
		rows = append(rows, csvRow{line: line, fields: fields})
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseDecimal(field, raw string, required bool) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	raw = strings.TrimPrefix(raw, "$")
	if raw == "" {
		if required {
			return decimal.Zero, fmt.Errorf("%s is required", field)
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, raw)
	}
	return d, nil
}

type parsedTrade struct {
	line  int
	trade models.Trade
}

func parseTradeRow(row csvRow) (models.Trade, error) {
	date, err := models.ParseDate(row.get("date"))
	if err != nil {
		return models.Trade{}, err
	}
	typ, err := models.ParseTradeType(row.get("trade_type"))
	if err != nil {
		return models.Trade{}, err
	}
	qty, err := parseDecimal("quantity", row.get("quantity"), typ.ChangesQuantity())
	if err != nil {
		return models.Trade{}, err
	}
	price, err := parseDecimal("price", row.get("price"), true)
	if err != nil {
		return models.Trade{}, err
	}
	fees, err := parseDecimal("fees", row.get("fees"), false)
	if err != nil {
		return models.Trade{}, err
	}
	fx, err := parseDecimal("exchange_rate", row.get("exchange_rate"), false)
	if err != nil {
		return models.Trade{}, err
	}
	t := models.Trade{
		Ticker:       row.get("ticker"),
		Name:         row.get("name"),
		TradeType:    typ,
		TradeDate:    date,
		Quantity:     qty,
		Price:        price,
		Fees:         fees,
		Currency:     row.get("currency"),
		ExchangeRate: fx,
	}
	if notes := row.get("notes"); notes != "" {
		t.Notes = &notes
	}
	return t, nil
}

// ImportTrades adds every valid row to the account's ledger in date order.
// Rows that fail parsing or replay are reported and skipped.
func (s *importService) ImportTrades(ctx context.Context, accountID uint, r io.Reader) (*models.ImportReport, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsInvestment() {
		return nil, &apperrors.ErrInvalidAccountCategory{AccountID: account.ID, Category: account.Category}
	}
	rows, err := readCSV(r, []string{"date", "ticker", "trade_type", "price", "currency"})
	if err != nil {
		return nil, err
	}

	report := &models.ImportReport{Errors: []apperrors.ImportRowError{}}
	parsed := make([]parsedTrade, 0, len(rows))
	for _, row := range rows {
		t, err := parseTradeRow(row)
		if err != nil {
			report.AddError(row.line, err.Error())
			continue
		}
		parsed = append(parsed, parsedTrade{line: row.line, trade: t})
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].trade.TradeDate.Before(parsed[j].trade.TradeDate)
	})

	for _, p := range parsed {
		if err := ctx.Err(); err != nil {
			report.AddError(p.line, "import cancelled")
			continue
		}
		t := p.trade
		if _, err := s.trades.AddTrade(ctx, accountID, &t, WithDeferredRecompute()); err != nil {
			report.AddError(p.line, err.Error())
			continue
		}
		report.ImportedCount++
	}
	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].Row < report.Errors[j].Row })

	s.logger.Info("trades imported",
		zap.Uint("account_id", accountID),
		zap.Int("imported", report.ImportedCount),
		zap.Int("errors", report.TotalErrors))
	if report.ImportedCount > 0 {
		s.reconcile(ctx, []uint{accountID})
	}
	return report, nil
}

// ImportHistory upserts manual balances by account name, creating unknown
// accounts from the row's type and category. Liability balances are stored
// as magnitudes.
func (s *importService) ImportHistory(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	rows, err := readCSV(r, []string{"date", "account_name", "balance"})
	if err != nil {
		return nil, err
	}
	existing, err := s.accounts.ListAccounts(ctx, true)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.Account, len(existing))
	for _, a := range existing {
		byName[strings.ToLower(a.Name)] = a
	}

	report := &models.ImportReport{Errors: []apperrors.ImportRowError{}}
	touched := make(map[uint]struct{})
	for _, row := range rows {
		account, created, err := s.resolveAccount(ctx, row, byName)
		if err != nil {
			report.AddError(row.line, err.Error())
			continue
		}
		if created {
			report.CreatedAccounts++
		}
		snap, err := historySnapshot(row, account)
		if err != nil {
			report.AddError(row.line, err.Error())
			continue
		}
		if err := s.upsertManual(ctx, snap); err != nil {
			report.AddError(row.line, err.Error())
			continue
		}
		touched[account.ID] = struct{}{}
		report.ImportedCount++
	}

	s.logger.Info("balance history imported",
		zap.Int("imported", report.ImportedCount),
		zap.Int("created_accounts", report.CreatedAccounts),
		zap.Int("errors", report.TotalErrors))
	if len(touched) > 0 {
		ids := make([]uint, 0, len(touched))
		for id := range touched {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		s.reconcile(ctx, ids)
	}
	return report, nil
}

func (s *importService) resolveAccount(ctx context.Context, row csvRow, byName map[string]models.Account) (models.Account, bool, error) {
	name := row.get("account_name")
	if name == "" {
		return models.Account{}, false, errors.New("account_name is required")
	}
	if a, ok := byName[strings.ToLower(name)]; ok {
		return a, false, nil
	}

	typ, ok := models.ParseAccountType(row.get("account_type"))
	if !ok {
		return models.Account{}, false, fmt.Errorf("unknown account %q needs account_type Asset or Liability", name)
	}
	category := row.get("account_category")
	if category == "" {
		category = models.CategoryOther
	}
	account := models.Account{Name: name, Type: typ, Category: category}
	if err := s.accounts.CreateAccount(ctx, &account); err != nil {
		return models.Account{}, false, err
	}
	byName[strings.ToLower(name)] = account
	return account, true, nil
}

func historySnapshot(row csvRow, account models.Account) (models.BalanceSnapshot, error) {
	date, err := models.ParseDate(row.get("date"))
	if err != nil {
		return models.BalanceSnapshot{}, err
	}
	balance, err := parseDecimal("balance", row.get("balance"), true)
	if err != nil {
		return models.BalanceSnapshot{}, err
	}
	if balance.IsNegative() {
		if !account.IsLiability() {
			return models.BalanceSnapshot{}, fmt.Errorf("negative balance for asset account %q", account.Name)
		}
		balance = balance.Abs()
	}
	return models.BalanceSnapshot{
		AccountID: account.ID,
		Date:      date,
		Balance:   balance,
		Source:    models.SnapshotSourceManual,
	}, nil
}

func (s *importService) upsertManual(ctx context.Context, snap models.BalanceSnapshot) error {
	unlock := s.locks.Lock(snap.AccountID)
	defer unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.balances.WithTx(tx).Upsert(ctx, &snap)
	})
}

func (s *importService) reconcile(ctx context.Context, accountIDs []uint) {
	if s.listener == nil {
		return
	}
	if err := s.listener.OnLedgerChanged(context.WithoutCancel(ctx), accountIDs...); err != nil {
		s.logger.Warn("recompute after import failed", zap.Error(err))
	}
}

// WriteTradeTemplate writes the import header and one example row per trade type.
func (s *importService) WriteTradeTemplate(w io.Writer) error {
	day := func(d int) string {
		return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
	}
	cw := csv.NewWriter(w)
	records := [][]string{
		TradeColumns,
		{day(2), "VAS.AX", "Vanguard Australian Shares", string(models.TradeTypeBuy), "10", "95.50", "9.95", "AUD", "1", ""},
		{day(15), "AAPL", "Apple Inc", string(models.TradeTypeBuy), "5", "185.00", "2.00", "USD", "1.52", "bought in USD"},
		{day(20), "VAS.AX", "Vanguard Australian Shares", string(models.TradeTypeDividend), "10", "0.85", "0", "AUD", "1", "quarterly distribution"},
		{day(20), "VAS.AX", "Vanguard Australian Shares", string(models.TradeTypeDRIP), "0.09", "96.10", "0", "AUD", "1", "reinvested"},
		{day(31), "VAS.AX", "Vanguard Australian Shares", string(models.TradeTypeSell), "4", "97.20", "9.95", "AUD", "1", ""},
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}
