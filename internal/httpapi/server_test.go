package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"tradebench/internal/backtest"
	"tradebench/internal/config"
	"tradebench/internal/domain"
	"tradebench/internal/store"
	"tradebench/internal/strategy"
)

// memStore is an in-memory implementation of the user, bot, and wallet
// stores for handler tests.
type memStore struct {
	users   map[string]domain.User
	bots    map[string]domain.Bot
	wallets map[string]domain.Wallet
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]domain.User),
		bots:    make(map[string]domain.Bot),
		wallets: make(map[string]domain.Wallet),
	}
}

func (m *memStore) CreateUser(_ context.Context, u *domain.User) error {
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListUsers(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) UpdateUser(_ context.Context, u *domain.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) CreateBot(_ context.Context, b *domain.Bot) error {
	m.bots[b.ID] = *b
	return nil
}

func (m *memStore) GetBot(_ context.Context, id string) (*domain.Bot, error) {
	b, ok := m.bots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) ListBots(_ context.Context, userID string) ([]domain.Bot, error) {
	out := make([]domain.Bot, 0, len(m.bots))
	for _, b := range m.bots {
		if userID == "" || b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) UpdateBot(_ context.Context, b *domain.Bot) error {
	if _, ok := m.bots[b.ID]; !ok {
		return store.ErrNotFound
	}
	m.bots[b.ID] = *b
	return nil
}

func (m *memStore) DeleteBot(_ context.Context, id string) error {
	if _, ok := m.bots[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.bots, id)
	return nil
}

func (m *memStore) CreateWallet(_ context.Context, w *domain.Wallet) error {
	m.wallets[w.ID] = *w
	return nil
}

func (m *memStore) GetWallet(_ context.Context, id string) (*domain.Wallet, error) {
	w, ok := m.wallets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (m *memStore) ListWallets(_ context.Context, userID string) ([]domain.Wallet, error) {
	out := make([]domain.Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		if userID == "" || w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) DeleteWallet(_ context.Context, id string) error {
	if _, ok := m.wallets[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.wallets, id)
	return nil
}

// fixedSource serves a fixed candle series regardless of symbol.
type fixedSource struct {
	candles []domain.Candle
	err     error
}

func (f *fixedSource) Candles(_ context.Context, _, _ string, _ int) ([]domain.Candle, error) {
	return f.candles, f.err
}

func gridCandles() []domain.Candle {
	closes := []float64{100, 91, 90.5, 109, 110}
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{
			OpenTime: int64(i+1) * 3_600_000,
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   1,
		}
	}
	return candles
}

func newTestServer(t *testing.T, source *fixedSource) (*Server, *memStore) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	ms := newMemStore()
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	defaults := config.BacktestConfig{
		DefaultPair:      "BTC/USDT",
		DefaultTimeframe: "1h",
		DefaultDays:      30,
	}
	s := NewServer(ms, ms, ms, source, strategy.DefaultRegistry(), hub, defaults, log)
	return s, ms
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHandleBacktest(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{candles: gridCandles()})
	h := s.Handler()

	req := map[string]any{
		"strategy":          "grid",
		"investment":        1000,
		"gridCount":         10,
		"lowerPrice":        90,
		"upperPrice":        110,
		"stopLossPercent":   50,
		"takeProfitPercent": 50,
		"days":              30,
		"pair":              "btc/usdt",
		"timeframe":         "1h",
	}
	rec := doJSON(t, h, http.MethodPost, "/api/backtest", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	result := decodeBody[backtest.Result](t, rec)
	if result.Trades != 2 {
		t.Errorf("Trades = %d, want 2", result.Trades)
	}
	if result.DataPoints != 5 {
		t.Errorf("DataPoints = %d, want 5", result.DataPoints)
	}
	if result.TotalReturn <= 0 {
		t.Errorf("TotalReturn = %v, want positive", result.TotalReturn)
	}
}

func TestHandleBacktestNoData(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{})
	h := s.Handler()

	req := map[string]any{
		"strategy":          "grid",
		"investment":        1000,
		"gridCount":         10,
		"stopLossPercent":   5,
		"takeProfitPercent": 10,
		"days":              30,
	}
	rec := doJSON(t, h, http.MethodPost, "/api/backtest", req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["error"] != "No historical data available" {
		t.Errorf("error = %q, want exact no-data message", body["error"])
	}
}

func TestHandleBacktestBadConfig(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{candles: gridCandles()})
	h := s.Handler()

	req := map[string]any{
		"strategy":   "grid",
		"investment": -5,
	}
	rec := doJSON(t, h, http.MethodPost, "/api/backtest", req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStrategies(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/strategies", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[StrategiesResponse](t, rec)
	want := []string{"grid", "mean-reversion", "scalper", "trend-following"}
	if len(body.Strategies) != len(want) {
		t.Fatalf("Strategies = %v, want %v", body.Strategies, want)
	}
	if !sort.StringsAreSorted(body.Strategies) {
		t.Errorf("Strategies not sorted: %v", body.Strategies)
	}
	for i, name := range want {
		if body.Strategies[i] != name {
			t.Errorf("Strategies[%d] = %q, want %q", i, body.Strategies[i], name)
		}
	}
}

func TestHandleCandles(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{candles: gridCandles()})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/candles?symbol=btc/usdt&interval=1h&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[CandlesResponse](t, rec)
	if body.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %q, want BTCUSDT", body.Symbol)
	}
	if len(body.Candles) != 5 {
		t.Fatalf("Candles = %d, want 5", len(body.Candles))
	}
	if body.Candles[0].Close != 100 {
		t.Errorf("first candle Close = %v, want 100", body.Candles[0].Close)
	}
}

func TestHandleCandlesMissingSymbol(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/candles", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUserLifecycle(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/users", UserRequest{
		Email:    "trader@example.com",
		Name:     "Trader",
		Password: "hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[UserJSON](t, rec)
	if created.ID == "" {
		t.Fatal("created user has empty ID")
	}
	if created.Email != "trader@example.com" {
		t.Errorf("Email = %q", created.Email)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/users/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/users/"+created.ID, UserRequest{Name: "Renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	updated := decodeBody[UserJSON](t, rec)
	if updated.Name != "Renamed" {
		t.Errorf("Name after update = %q", updated.Name)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/users/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/users/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateUserSanitizesPassword(t *testing.T) {
	s, ms := newTestServer(t, &fixedSource{})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/users", UserRequest{
		Email:    "trader@example.com",
		Password: "hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("hunter2")) {
		t.Error("response leaks the raw password")
	}

	for _, u := range ms.users {
		if u.PasswordHash == "hunter2" || u.PasswordHash == "" {
			t.Errorf("stored PasswordHash = %q, want a hash", u.PasswordHash)
		}
	}
}

func TestBotLifecycleWithBacktest(t *testing.T) {
	s, ms := newTestServer(t, &fixedSource{candles: gridCandles()})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/bots", BotRequest{
		UserID:            "u-1",
		Name:              "BTC grid",
		Strategy:          "Grid Trading",
		Pair:              "BTC/USDT",
		Timeframe:         "1h",
		Investment:        1000,
		GridCount:         10,
		UpperPrice:        110,
		LowerPrice:        90,
		StopLossPercent:   50,
		TakeProfitPercent: 50,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	bot := decodeBody[BotJSON](t, rec)
	if bot.Status != "stopped" {
		t.Errorf("new bot Status = %q, want stopped", bot.Status)
	}

	// Run the bot's backtest; results must be persisted on the record.
	rec = doJSON(t, h, http.MethodPost, "/api/bots/"+bot.ID+"/backtest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("backtest status = %d, body = %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[backtest.Result](t, rec)
	if result.Trades != 2 {
		t.Errorf("Trades = %d, want 2", result.Trades)
	}
	stored := ms.bots[bot.ID]
	if stored.BacktestResults == "" {
		t.Error("backtest results not persisted on bot record")
	}

	// Start and stop.
	rec = doJSON(t, h, http.MethodPost, "/api/bots/"+bot.ID+"/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}
	status := decodeBody[StatusResponse](t, rec)
	if status.Status != "running" {
		t.Errorf("Status after start = %q, want running", status.Status)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/bots/"+bot.ID+"/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}
	status = decodeBody[StatusResponse](t, rec)
	if status.Status != "stopped" {
		t.Errorf("Status after stop = %q, want stopped", status.Status)
	}

	// GET returns the persisted results inline.
	rec = doJSON(t, h, http.MethodGet, "/api/bots/"+bot.ID, nil)
	got := decodeBody[BotJSON](t, rec)
	if len(got.BacktestResults) == 0 {
		t.Error("GET bot did not include backtest results")
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/bots/"+bot.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestListBotsFiltersByUser(t *testing.T) {
	s, ms := newTestServer(t, &fixedSource{})
	h := s.Handler()

	ms.bots["b-1"] = domain.Bot{ID: "b-1", UserID: "u-1", Name: "one"}
	ms.bots["b-2"] = domain.Bot{ID: "b-2", UserID: "u-2", Name: "two"}

	rec := doJSON(t, h, http.MethodGet, "/api/bots?userId=u-1", nil)
	bots := decodeBody[[]BotJSON](t, rec)
	if len(bots) != 1 || bots[0].ID != "b-1" {
		t.Errorf("filtered bots = %+v, want only b-1", bots)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/bots", nil)
	bots = decodeBody[[]BotJSON](t, rec)
	if len(bots) != 2 {
		t.Errorf("unfiltered bots = %d, want 2", len(bots))
	}
}

func TestWalletLifecycle(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/wallets", WalletRequest{
		UserID:    "u-1",
		Exchange:  "binance",
		Label:     "main",
		APIKey:    "key",
		APISecret: "secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	wallet := decodeBody[WalletJSON](t, rec)
	if !wallet.HasSecret {
		t.Error("HasSecret = false, want true")
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("secret")) {
		t.Error("response leaks the API secret")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/wallets/"+wallet.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/wallets/"+wallet.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestHandleAdvisor(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/advisor", AdvisorRequest{
		Question: "should I run a grid bot?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[AdvisorResponse](t, rec)
	if body.Suggestion == "" {
		t.Error("empty suggestion")
	}
}

func TestCORSPreflights(t *testing.T) {
	s, _ := newTestServer(t, &fixedSource{})
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/strategies", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
