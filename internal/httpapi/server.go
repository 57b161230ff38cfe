package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tradebench/internal/advisor"
	"tradebench/internal/backtest"
	"tradebench/internal/config"
	"tradebench/internal/domain"
	"tradebench/internal/market"
	"tradebench/internal/store"
	"tradebench/internal/strategy"
)

const defaultCandleLimit = 100

// Server serves the dashboard HTTP API.
type Server struct {
	users    store.UserStore
	bots     store.BotStore
	wallets  store.WalletStore
	source   market.Source
	runner   *backtest.Runner
	registry *strategy.Registry
	advisor  *advisor.Advisor
	hub      *Hub
	defaults config.BacktestConfig
	log      *slog.Logger
}

// NewServer creates a new dashboard HTTP server.
func NewServer(
	users store.UserStore,
	bots store.BotStore,
	wallets store.WalletStore,
	source market.Source,
	registry *strategy.Registry,
	hub *Hub,
	defaults config.BacktestConfig,
	log *slog.Logger,
) *Server {
	return &Server{
		users:    users,
		bots:     bots,
		wallets:  wallets,
		source:   source,
		runner:   backtest.NewRunner(source, registry, log),
		registry: registry,
		advisor:  advisor.New(),
		hub:      hub,
		defaults: defaults,
		log:      log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/candles", s.handleCandles)

	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("GET /api/users/{id}", s.handleGetUser)
	mux.HandleFunc("PUT /api/users/{id}", s.handleUpdateUser)
	mux.HandleFunc("DELETE /api/users/{id}", s.handleDeleteUser)

	mux.HandleFunc("POST /api/bots", s.handleCreateBot)
	mux.HandleFunc("GET /api/bots", s.handleListBots)
	mux.HandleFunc("GET /api/bots/{id}", s.handleGetBot)
	mux.HandleFunc("PUT /api/bots/{id}", s.handleUpdateBot)
	mux.HandleFunc("DELETE /api/bots/{id}", s.handleDeleteBot)
	mux.HandleFunc("POST /api/bots/{id}/backtest", s.handleBotBacktest)
	mux.HandleFunc("POST /api/bots/{id}/start", s.handleStartBot)
	mux.HandleFunc("POST /api/bots/{id}/stop", s.handleStopBot)

	mux.HandleFunc("POST /api/wallets", s.handleCreateWallet)
	mux.HandleFunc("GET /api/wallets", s.handleListWallets)
	mux.HandleFunc("GET /api/wallets/{id}", s.handleGetWallet)
	mux.HandleFunc("DELETE /api/wallets/{id}", s.handleDeleteWallet)

	mux.HandleFunc("POST /api/advisor", s.handleAdvisor)
	mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeBacktestError maps engine errors to API status codes. ErrNoData's
// message is part of the dashboard contract and is surfaced verbatim.
func writeBacktestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backtest.ErrNoData):
		writeError(w, http.StatusNotFound, backtest.ErrNoData.Error())
	case errors.Is(err, backtest.ErrBadConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

// ---------------------------------------------------------------------------
// Backtest / market data
// ---------------------------------------------------------------------------

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.applyDefaults(&req)

	result, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeBacktestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// applyDefaults fills unset request fields from the configured defaults.
func (s *Server) applyDefaults(req *backtest.Request) {
	if req.Pair == "" {
		req.Pair = s.defaults.DefaultPair
	}
	if req.Timeframe == "" {
		req.Timeframe = s.defaults.DefaultTimeframe
	}
	if req.Days == 0 {
		req.Days = s.defaults.DefaultDays
	}
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	types := s.registry.List()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	writeJSON(w, http.StatusOK, StrategiesResponse{Strategies: names})
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	symbol := backtest.NormalizePair(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = s.defaults.DefaultTimeframe
	}

	limit := defaultCandleLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > backtest.MaxCandles {
		limit = backtest.MaxCandles
	}

	candles, err := s.source.Candles(r.Context(), symbol, interval, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	out := make([]CandleJSON, 0, len(candles))
	for _, c := range candles {
		out = append(out, convertCandle(c))
	}
	writeJSON(w, http.StatusOK, CandlesResponse{Symbol: symbol, Interval: interval, Candles: out})
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hashPassword(req.Password),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, convertUser(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]UserJSON, 0, len(users))
	for i := range users {
		out = append(out, convertUser(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, convertUser(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "user not found")
		return
	}

	var req UserRequest
	if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Password != "" {
		user.PasswordHash = hashPassword(req.Password)
	}

	if err := s.users.UpdateUser(r.Context(), user); err != nil {
		writeStoreError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, convertUser(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Bots
// ---------------------------------------------------------------------------

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var req BotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Pair == "" {
		writeError(w, http.StatusBadRequest, "name and pair required")
		return
	}

	now := time.Now().UTC()
	bot := &domain.Bot{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		Name:              req.Name,
		Strategy:          req.Strategy,
		Pair:              req.Pair,
		Timeframe:         req.Timeframe,
		Investment:        req.Investment,
		GridCount:         req.GridCount,
		GridSpacing:       req.GridSpacing,
		UpperPrice:        req.UpperPrice,
		LowerPrice:        req.LowerPrice,
		StopLossPercent:   req.StopLossPercent,
		TakeProfitPercent: req.TakeProfitPercent,
		Status:            domain.BotStopped,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if bot.Timeframe == "" {
		bot.Timeframe = s.defaults.DefaultTimeframe
	}
	if err := s.bots.CreateBot(r.Context(), bot); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, convertBot(bot))
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := s.bots.ListBots(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]BotJSON, 0, len(bots))
	for i := range bots {
		out = append(out, convertBot(&bots[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	bot, err := s.bots.GetBot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "bot not found")
		return
	}
	writeJSON(w, http.StatusOK, convertBot(bot))
}

func (s *Server) handleUpdateBot(w http.ResponseWriter, r *http.Request) {
	bot, err := s.bots.GetBot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "bot not found")
		return
	}

	var req BotRequest
	if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		bot.Name = req.Name
	}
	if req.Strategy != "" {
		bot.Strategy = req.Strategy
	}
	if req.Pair != "" {
		bot.Pair = req.Pair
	}
	if req.Timeframe != "" {
		bot.Timeframe = req.Timeframe
	}
	if req.Investment > 0 {
		bot.Investment = req.Investment
	}
	if req.GridCount > 0 {
		bot.GridCount = req.GridCount
	}
	if req.GridSpacing > 0 {
		bot.GridSpacing = req.GridSpacing
	}
	if req.UpperPrice > 0 {
		bot.UpperPrice = req.UpperPrice
	}
	if req.LowerPrice > 0 {
		bot.LowerPrice = req.LowerPrice
	}
	if req.StopLossPercent > 0 {
		bot.StopLossPercent = req.StopLossPercent
	}
	if req.TakeProfitPercent > 0 {
		bot.TakeProfitPercent = req.TakeProfitPercent
	}
	bot.UpdatedAt = time.Now().UTC()

	if err := s.bots.UpdateBot(r.Context(), bot); err != nil {
		writeStoreError(w, err, "bot not found")
		return
	}
	writeJSON(w, http.StatusOK, convertBot(bot))
}

func (s *Server) handleDeleteBot(w http.ResponseWriter, r *http.Request) {
	if err := s.bots.DeleteBot(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err, "bot not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBotBacktest runs a backtest from a saved bot's configuration and
// persists the result onto the bot record.
func (s *Server) handleBotBacktest(w http.ResponseWriter, r *http.Request) {
	bot, err := s.bots.GetBot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "bot not found")
		return
	}

	req := backtest.Request{
		Config: backtest.Config{
			Strategy:          strategy.ParseType(bot.Strategy),
			Investment:        bot.Investment,
			GridCount:         bot.GridCount,
			GridSpacing:       bot.GridSpacing,
			UpperPrice:        bot.UpperPrice,
			LowerPrice:        bot.LowerPrice,
			StopLossPercent:   bot.StopLossPercent,
			TakeProfitPercent: bot.TakeProfitPercent,
			Days:              s.defaults.DefaultDays,
		},
		Pair:      bot.Pair,
		Timeframe: bot.Timeframe,
	}

	result, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeBacktestError(w, err)
		return
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	bot.BacktestResults = string(encoded)
	bot.UpdatedAt = time.Now().UTC()
	if err := s.bots.UpdateBot(r.Context(), bot); err != nil {
		writeStoreError(w, err, "bot not found")
		return
	}

	s.hub.Broadcast("backtest", map[string]any{"botId": bot.ID, "result": result})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStartBot(w http.ResponseWriter, r *http.Request) {
	s.toggleBot(w, r, domain.BotRunning)
}

func (s *Server) handleStopBot(w http.ResponseWriter, r *http.Request) {
	s.toggleBot(w, r, domain.BotStopped)
}

// toggleBot flips a bot's status flag and broadcasts the change. There is no
// live trading loop behind the flag; it only drives the dashboard display.
func (s *Server) toggleBot(w http.ResponseWriter, r *http.Request, status domain.BotStatus) {
	bot, err := s.bots.GetBot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "bot not found")
		return
	}

	bot.Status = status
	bot.UpdatedAt = time.Now().UTC()
	if err := s.bots.UpdateBot(r.Context(), bot); err != nil {
		writeStoreError(w, err, "bot not found")
		return
	}

	s.hub.Broadcast("botStatus", StatusResponse{ID: bot.ID, Status: string(status)})
	writeJSON(w, http.StatusOK, StatusResponse{ID: bot.ID, Status: string(status)})
}

// ---------------------------------------------------------------------------
// Wallets
// ---------------------------------------------------------------------------

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req WalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Exchange == "" {
		writeError(w, http.StatusBadRequest, "exchange required")
		return
	}

	wallet := &domain.Wallet{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Exchange:  req.Exchange,
		Label:     req.Label,
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.wallets.CreateWallet(r.Context(), wallet); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, convertWallet(wallet))
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.wallets.ListWallets(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]WalletJSON, 0, len(wallets))
	for i := range wallets {
		out = append(out, convertWallet(&wallets[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.wallets.GetWallet(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "wallet not found")
		return
	}
	writeJSON(w, http.StatusOK, convertWallet(wallet))
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.wallets.DeleteWallet(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err, "wallet not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Advisor
// ---------------------------------------------------------------------------

func (s *Server) handleAdvisor(w http.ResponseWriter, r *http.Request) {
	var req AdvisorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}
	writeJSON(w, http.StatusOK, AdvisorResponse{Suggestion: s.advisor.Suggest(req.Question)})
}

func writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
