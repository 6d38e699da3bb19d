// Package api exposes the chain over REST and WebSocket. Mutating endpoints
// submit operations into the core with an explicit caller identity; read
// endpoints serve either direct ledger lookups or the event-derived views
// from the indexer. Every rejection reason is returned verbatim.
package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/hyunwoo-p/tokendex/pkg/chain"
	"github.com/hyunwoo-p/tokendex/pkg/core/events"
	"github.com/hyunwoo-p/tokendex/pkg/core/exchange"
	"github.com/hyunwoo-p/tokendex/pkg/core/token"
	tdcrypto "github.com/hyunwoo-p/tokendex/pkg/crypto"
	"github.com/hyunwoo-p/tokendex/pkg/indexer"
)

// ArchiveReader serves history queries from the durable event archive, which
// outlives the in-memory log across restarts. storage.Store satisfies it.
type ArchiveReader interface {
	Events(after uint64, limit int) ([]events.Event, error)
	RecentTrades(limit int) ([]events.Event, error)
	LastSeq() (uint64, error)
}

// Server handles REST and WebSocket traffic for one chain.
type Server struct {
	chain       *chain.Chain
	view        *indexer.View
	archive     ArchiveReader // nil when archiving is disabled
	router      *mux.Router
	hub         *Hub
	logger      *zap.SugaredLogger
	requireSigs bool
}

func NewServer(c *chain.Chain, view *indexer.View, archive ArchiveReader, logger *zap.SugaredLogger, requireSigs bool) *Server {
	s := &Server{
		chain:       c,
		view:        view,
		archive:     archive,
		router:      mux.NewRouter(),
		hub:         NewHub(logger),
		logger:      logger,
		requireSigs: requireSigs,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Token contracts
	api.HandleFunc("/tokens", s.handleListTokens).Methods("GET")
	api.HandleFunc("/tokens/{address}", s.handleGetToken).Methods("GET")
	api.HandleFunc("/tokens/{address}/balances/{account}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/tokens/{address}/allowance", s.handleGetAllowance).Methods("GET")
	api.HandleFunc("/tokens/{address}/transfer", s.handleTransfer).Methods("POST")
	api.HandleFunc("/tokens/{address}/approve", s.handleApprove).Methods("POST")

	// Exchange
	api.HandleFunc("/exchange", s.handleGetExchange).Methods("GET")
	api.HandleFunc("/exchange/balances/{account}", s.handleExchangeBalances).Methods("GET")
	api.HandleFunc("/exchange/deposits", s.handleDeposit).Methods("POST")
	api.HandleFunc("/exchange/withdrawals", s.handleWithdraw).Methods("POST")

	// Order book
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders", s.handleMakeOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id:[0-9]+}/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}/fill", s.handleFillOrder).Methods("POST")

	// History: /trades and /events serve this run's in-memory state; the
	// /archive routes read the durable store, which spans restarts.
	api.HandleFunc("/trades", s.handleListTrades).Methods("GET")
	api.HandleFunc("/events", s.handleListEvents).Methods("GET")
	api.HandleFunc("/archive", s.handleArchiveStatus).Methods("GET")
	api.HandleFunc("/archive/events", s.handleArchiveEvents).Methods("GET")
	api.HandleFunc("/archive/trades", s.handleArchiveTrades).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler exposes the route table without the listener or CORS wrapping.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the hub, the event broadcast loop, and the HTTP listener.
// Blocks until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	go s.broadcastLoop(s.chain.Events().Subscribe())

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.logger.Infow("api_listening", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// broadcastLoop mirrors the committed event stream onto the WS channels.
func (s *Server) broadcastLoop(ch <-chan events.Event) {
	for e := range ch {
		s.hub.BroadcastToChannel("events", e)
		switch e.Kind {
		case events.KindOrder:
			s.hub.BroadcastToChannel("orders", s.orderInfoFromEvent(*e.Order, "open"))
		case events.KindCancel:
			s.hub.BroadcastToChannel("orders", map[string]interface{}{"id": e.Cancel.ID, "status": "cancelled"})
		case events.KindTrade:
			s.hub.BroadcastToChannel("orders", map[string]interface{}{"id": e.Trade.ID, "status": "filled"})
			s.hub.BroadcastToChannel("trades", tradeInfo(*e.Trade))
		}
	}
}

// ==============================
// Token handlers
// ==============================

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.chain.Tokens()
	out := make([]TokenInfo, len(tokens))
	for i, t := range tokens {
		out[i] = tokenInfo(t)
	}
	respondJSON(w, out)
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tokenFromPath(w, r)
	if !ok {
		return
	}
	respondJSON(w, tokenInfo(t))
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tokenFromPath(w, r)
	if !ok {
		return
	}
	account, ok := parseAddressParam(w, mux.Vars(r)["account"])
	if !ok {
		return
	}
	respondJSON(w, BalanceInfo{
		Token:     checksum(t.Address()),
		Account:   checksum(account),
		Wallet:    t.BalanceOf(account).String(),
		Custodial: s.chain.Exchange().BalanceOf(t.Address(), account).String(),
	})
}

func (s *Server) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tokenFromPath(w, r)
	if !ok {
		return
	}
	owner, ok := parseAddressParam(w, r.URL.Query().Get("owner"))
	if !ok {
		return
	}
	spender, ok := parseAddressParam(w, r.URL.Query().Get("spender"))
	if !ok {
		return
	}
	respondJSON(w, map[string]string{
		"owner":     checksum(owner),
		"spender":   checksum(spender),
		"allowance": t.Allowance(owner, spender).String(),
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tokenFromPath(w, r)
	if !ok {
		return
	}
	var req TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.verifyCaller(w, req.Caller, req.Signature, req.SigningPayload(mux.Vars(r)["address"])) {
		return
	}
	caller, ok := parseAddressParam(w, req.Caller)
	if !ok {
		return
	}
	to, ok := parseAddressParam(w, req.To)
	if !ok {
		return
	}
	amount, ok := parseAmountParam(w, req.Amount)
	if !ok {
		return
	}
	if err := t.Transfer(caller, to, amount); err != nil {
		s.respondOpError(w, err)
		return
	}
	respondJSON(w, SubmitResponse{Status: "committed"})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tokenFromPath(w, r)
	if !ok {
		return
	}
	var req ApproveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.verifyCaller(w, req.Caller, req.Signature, req.SigningPayload(mux.Vars(r)["address"])) {
		return
	}
	caller, ok := parseAddressParam(w, req.Caller)
	if !ok {
		return
	}
	spender, ok := parseAddressParam(w, req.Spender)
	if !ok {
		return
	}
	amount, ok := parseAmountParam(w, req.Amount)
	if !ok {
		return
	}
	if err := t.Approve(caller, spender, amount); err != nil {
		s.respondOpError(w, err)
		return
	}
	respondJSON(w, SubmitResponse{Status: "committed"})
}

// ==============================
// Exchange handlers
// ==============================

func (s *Server) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	ex := s.chain.Exchange()
	respondJSON(w, ExchangeInfo{
		Address:     checksum(ex.Address()),
		FeeAccount:  checksum(ex.FeeAccount()),
		FeePercent:  ex.FeePercent(),
		OrdersCount: ex.OrdersCount(),
	})
}

func (s *Server) handleExchangeBalances(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddressParam(w, mux.Vars(r)["account"])
	if !ok {
		return
	}
	ex := s.chain.Exchange()
	tokens := s.chain.Tokens()
	out := make([]BalanceInfo, len(tokens))
	for i, t := range tokens {
		out[i] = BalanceInfo{
			Token:     checksum(t.Address()),
			Account:   checksum(account),
			Wallet:    t.BalanceOf(account).String(),
			Custodial: ex.BalanceOf(t.Address(), account).String(),
		}
	}
	respondJSON(w, out)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.verifyCaller(w, req.Caller, req.Signature, req.SigningPayload()) {
		return
	}
	caller, ok := parseAddressParam(w, req.Caller)
	if !ok {
		return
	}
	tokenAddr, ok := parseAddressParam(w, req.Token)
	if !ok {
		return
	}
	amount, ok := parseAmountParam(w, req.Amount)
	if !ok {
		return
	}
	if err := s.chain.Exchange().DepositToken(caller, tokenAddr, amount); err != nil {
		s.respondOpError(w, err)
		return
	}
	respondJSON(w, SubmitResponse{Status: "committed"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.verifyCaller(w, req.Caller, req.Signature, req.SigningPayload()) {
		return
	}
	caller, ok := parseAddressParam(w, req.Caller)
	if !ok {
		return
	}
	tokenAddr, ok := parseAddressParam(w, req.Token)
	if !ok {
		return
	}
	amount, ok := parseAmountParam(w, req.Amount)
	if !ok {
		return
	}
	if err := s.chain.Exchange().WithdrawToken(caller, tokenAddr, amount); err != nil {
		s.respondOpError(w, err)
		return
	}
	respondJSON(w, SubmitResponse{Status: "committed"})
}

// ==============================
// Order handlers
// ==============================

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	userParam := r.URL.Query().Get("user")

	var user common.Address
	filterUser := false
	if userParam != "" {
		addr, ok := parseAddressParam(w, userParam)
		if !ok {
			return
		}
		user = addr
		filterUser = true
	}

	var out []OrderInfo
	switch status {
	case "", "open":
		for _, o := range s.view.OpenOrders() {
			if filterUser && o.User != user {
				continue
			}
			out = append(out, s.orderInfoFromEvent(o, "open"))
		}
	case "cancelled":
		for _, c := range s.view.CancelledOrders() {
			if filterUser && c.User != user {
				continue
			}
			out = append(out, OrderInfo{
				ID:         c.ID,
				User:       checksum(c.User),
				TokenGet:   checksum(c.TokenGet),
				AmountGet:  c.AmountGet.String(),
				TokenGive:  checksum(c.TokenGive),
				AmountGive: c.AmountGive.String(),
				Timestamp:  c.Timestamp,
				Status:     "cancelled",
			})
		}
	case "filled":
		for _, t := range s.view.Trades() {
			if filterUser && t.Maker != user && t.User != user {
				continue
			}
			out = append(out, OrderInfo{
				ID:         t.ID,
				User:       checksum(t.Maker),
				TokenGet:   checksum(t.TokenGet),
				AmountGet:  t.AmountGet.String(),
				TokenGive:  checksum(t.TokenGive),
				AmountGive: t.AmountGive.String(),
				Timestamp:  t.Timestamp,
				Status:     "filled",
			})
		}
	default:
		respondError(w, http.StatusBadRequest, "invalid status filter", status)
		return
	}
	if out == nil {
		out = []OrderInfo{}
	}
	respondJSON(w, out)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	ex := s.chain.Exchange()
	o, err := ex.Order(id)
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	status := "open"
	switch {
	case ex.OrderFilled(id):
		status = "filled"
	case ex.OrderCancelled(id):
		status = "cancelled"
	}
	respondJSON(w, orderInfo(o, status))
}

func (s *Server) handleMakeOrder(w http.ResponseWriter, r *http.Request) {
	var req MakeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.verifyCaller(w, req.Caller, req.Signature, req.SigningPayload()) {
		return
	}
	caller, ok := parseAddressParam(w, req.Caller)
	if !ok {
		return
	}
	tokenGet, ok := parseAddressParam(w, req.TokenGet)
	if !ok {
		return
	}
	tokenGive, ok := parseAddressParam(w, req.TokenGive)
	if !ok {
		return
	}
	amountGet, ok := parseAmountParam(w, req.AmountGet)
	if !ok {
		return
	}
	amountGive, ok := parseAmountParam(w, req.AmountGive)
	if !ok {
		return
	}

	id, err := s.chain.Exchange().MakeOrder(caller, tokenGet, amountGet, tokenGive, amountGive)
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondJSON(w, SubmitResponse{Status: "committed", OrderID: id})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	var req OrderActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.verifyCaller(w, req.Caller, req.Signature, req.SigningPayload("cancel", id)) {
		return
	}
	caller, ok := parseAddressParam(w, req.Caller)
	if !ok {
		return
	}
	if err := s.chain.Exchange().CancelOrder(caller, id); err != nil {
		s.respondOpError(w, err)
		return
	}
	respondJSON(w, SubmitResponse{Status: "committed", OrderID: id})
}

func (s *Server) handleFillOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	var req OrderActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.verifyCaller(w, req.Caller, req.Signature, req.SigningPayload("fill", id)) {
		return
	}
	caller, ok := parseAddressParam(w, req.Caller)
	if !ok {
		return
	}
	if err := s.chain.Exchange().FillOrder(caller, id); err != nil {
		s.respondOpError(w, err)
		return
	}
	respondJSON(w, SubmitResponse{Status: "committed", OrderID: id})
}

// ==============================
// History handlers
// ==============================

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	userParam := r.URL.Query().Get("user")
	var trades []events.Trade
	if userParam != "" {
		user, ok := parseAddressParam(w, userParam)
		if !ok {
			return
		}
		trades = s.view.TradesFor(user)
	} else {
		trades = s.view.Trades()
	}
	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = tradeInfo(t)
	}
	respondJSON(w, out)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	after, limit, ok := parseCursorParams(w, r)
	if !ok {
		return
	}

	batch := s.chain.Events().Since(after)
	if limit > 0 && len(batch) > limit {
		batch = batch[:limit]
	}
	if batch == nil {
		batch = []events.Event{}
	}
	respondJSON(w, batch)
}

func (s *Server) handleArchiveStatus(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	seq, err := s.archive.LastSeq()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive read failed", err.Error())
		return
	}
	respondJSON(w, map[string]uint64{"lastSeq": seq})
}

func (s *Server) handleArchiveEvents(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	after, limit, ok := parseCursorParams(w, r)
	if !ok {
		return
	}
	batch, err := s.archive.Events(after, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive read failed", err.Error())
		return
	}
	if batch == nil {
		batch = []events.Event{}
	}
	respondJSON(w, batch)
}

func (s *Server) handleArchiveTrades(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = n
	}
	batch, err := s.archive.RecentTrades(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive read failed", err.Error())
		return
	}
	out := make([]TradeInfo, 0, len(batch))
	for _, e := range batch {
		if e.Trade != nil {
			out = append(out, tradeInfo(*e.Trade))
		}
	}
	respondJSON(w, out)
}

func (s *Server) archiveEnabled(w http.ResponseWriter) bool {
	if s.archive == nil {
		respondError(w, http.StatusServiceUnavailable, "archive disabled", "")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func (s *Server) tokenFromPath(w http.ResponseWriter, r *http.Request) (*token.Token, bool) {
	addr, ok := parseAddressParam(w, mux.Vars(r)["address"])
	if !ok {
		return nil, false
	}
	t, err := s.chain.Token(addr)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error(), "")
		return nil, false
	}
	return t, true
}

// verifyCaller enforces the wallet-signature flow when enabled: the
// signature over the canonical payload must recover to the claimed caller.
func (s *Server) verifyCaller(w http.ResponseWriter, caller, sigHex string, payload []byte) bool {
	if !s.requireSigs {
		return true
	}
	if sigHex == "" {
		respondError(w, http.StatusUnauthorized, "missing signature", "")
		return false
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "malformed signature", err.Error())
		return false
	}
	if !common.IsHexAddress(caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", caller)
		return false
	}
	if !tdcrypto.VerifyPayload(common.HexToAddress(caller), payload, sig) {
		respondError(w, http.StatusUnauthorized, "signature does not match caller", "")
		return false
	}
	return true
}

// respondOpError maps core rejections onto HTTP statuses, passing the
// reason through verbatim.
func (s *Server) respondOpError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, exchange.ErrOrderNotFound), errors.Is(err, chain.ErrUnknownToken):
		status = http.StatusNotFound
	case errors.Is(err, exchange.ErrNotOrderOwner):
		status = http.StatusForbidden
	case errors.Is(err, exchange.ErrOrderFilled), errors.Is(err, exchange.ErrOrderCancelled):
		status = http.StatusConflict
	case errors.Is(err, token.ErrInvalidAmount), errors.Is(err, exchange.ErrInvalidAmount),
		errors.Is(err, token.ErrInvalidRecipient), errors.Is(err, token.ErrInvalidSpender):
		status = http.StatusBadRequest
	}
	respondError(w, status, err.Error(), "")
}

func (s *Server) orderInfoFromEvent(o events.Order, status string) OrderInfo {
	return OrderInfo{
		ID:         o.ID,
		User:       checksum(o.User),
		TokenGet:   checksum(o.TokenGet),
		AmountGet:  o.AmountGet.String(),
		TokenGive:  checksum(o.TokenGive),
		AmountGive: o.AmountGive.String(),
		Timestamp:  o.Timestamp,
		Status:     status,
	}
}

func orderInfo(o exchange.Order, status string) OrderInfo {
	return OrderInfo{
		ID:         o.ID,
		User:       checksum(o.User),
		TokenGet:   checksum(o.TokenGet),
		AmountGet:  o.AmountGet.String(),
		TokenGive:  checksum(o.TokenGive),
		AmountGive: o.AmountGive.String(),
		Timestamp:  o.Timestamp,
		Status:     status,
	}
}

func tradeInfo(t events.Trade) TradeInfo {
	return TradeInfo{
		ID:         t.ID,
		Taker:      checksum(t.User),
		Maker:      checksum(t.Maker),
		TokenGet:   checksum(t.TokenGet),
		AmountGet:  t.AmountGet.String(),
		TokenGive:  checksum(t.TokenGive),
		AmountGive: t.AmountGive.String(),
		Fee:        t.Fee.String(),
		Timestamp:  t.Timestamp,
	}
}

func tokenInfo(t *token.Token) TokenInfo {
	return TokenInfo{
		Address:     checksum(t.Address()),
		Name:        t.Name(),
		Symbol:      t.Symbol(),
		Decimals:    t.Decimals(),
		TotalSupply: t.TotalSupply().String(),
	}
}

func checksum(addr common.Address) string {
	return tdcrypto.EIP55(addr.Bytes())
}

func parseAddressParam(w http.ResponseWriter, v string) (common.Address, bool) {
	if !common.IsHexAddress(v) {
		respondError(w, http.StatusBadRequest, "invalid address", v)
		return common.Address{}, false
	}
	return common.HexToAddress(v), true
}

func parseAmountParam(w http.ResponseWriter, v string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(v, 10)
	if !ok || amount.Sign() < 0 {
		respondError(w, http.StatusBadRequest, "invalid amount", v)
		return nil, false
	}
	return amount, true
}

func parseCursorParams(w http.ResponseWriter, r *http.Request) (after uint64, limit int, ok bool) {
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid after cursor", v)
			return 0, 0, false
		}
		after = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return 0, 0, false
		}
		limit = n
	}
	return after, limit, true
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", mux.Vars(r)["id"])
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: message})
}
