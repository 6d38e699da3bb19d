package api

import "fmt"

// Request payloads for mutating operations. Every request names its caller
// explicitly; when signature enforcement is on, the secp256k1 signature must
// recover to that caller over the request's canonical signing payload.
// Amounts travel as decimal strings in fixed-point units (10^18).

// TransferRequest is the body for POST /api/v1/tokens/{address}/transfer.
type TransferRequest struct {
	Caller    string `json:"caller"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Signature string `json:"signature,omitempty"`
}

func (r *TransferRequest) SigningPayload(token string) []byte {
	return []byte(fmt.Sprintf("transfer|%s|%s|%s|%s", token, r.Caller, r.To, r.Amount))
}

// ApproveRequest is the body for POST /api/v1/tokens/{address}/approve.
type ApproveRequest struct {
	Caller    string `json:"caller"`
	Spender   string `json:"spender"`
	Amount    string `json:"amount"`
	Signature string `json:"signature,omitempty"`
}

func (r *ApproveRequest) SigningPayload(token string) []byte {
	return []byte(fmt.Sprintf("approve|%s|%s|%s|%s", token, r.Caller, r.Spender, r.Amount))
}

// DepositRequest is the body for POST /api/v1/exchange/deposits.
type DepositRequest struct {
	Caller    string `json:"caller"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Signature string `json:"signature,omitempty"`
}

func (r *DepositRequest) SigningPayload() []byte {
	return []byte(fmt.Sprintf("deposit|%s|%s|%s", r.Caller, r.Token, r.Amount))
}

// WithdrawRequest is the body for POST /api/v1/exchange/withdrawals.
type WithdrawRequest struct {
	Caller    string `json:"caller"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Signature string `json:"signature,omitempty"`
}

func (r *WithdrawRequest) SigningPayload() []byte {
	return []byte(fmt.Sprintf("withdraw|%s|%s|%s", r.Caller, r.Token, r.Amount))
}

// MakeOrderRequest is the body for POST /api/v1/orders.
type MakeOrderRequest struct {
	Caller     string `json:"caller"`
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
	Signature  string `json:"signature,omitempty"`
}

func (r *MakeOrderRequest) SigningPayload() []byte {
	return []byte(fmt.Sprintf("order|%s|%s|%s|%s|%s", r.Caller, r.TokenGet, r.AmountGet, r.TokenGive, r.AmountGive))
}

// OrderActionRequest is the body for POST /api/v1/orders/{id}/cancel and
// /api/v1/orders/{id}/fill.
type OrderActionRequest struct {
	Caller    string `json:"caller"`
	Signature string `json:"signature,omitempty"`
}

func (r *OrderActionRequest) SigningPayload(action string, id uint64) []byte {
	return []byte(fmt.Sprintf("%s|%d|%s", action, id, r.Caller))
}

// ==============================
// Response types
// ==============================

// TokenInfo describes a deployed token contract.
type TokenInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
}

// ExchangeInfo describes the exchange's immutable configuration.
type ExchangeInfo struct {
	Address     string `json:"address"`
	FeeAccount  string `json:"feeAccount"`
	FeePercent  int64  `json:"feePercent"`
	OrdersCount uint64 `json:"ordersCount"`
}

// BalanceInfo pairs a wallet balance with the exchange's custodial balance
// for one (token, account).
type BalanceInfo struct {
	Token     string `json:"token"`
	Account   string `json:"account"`
	Wallet    string `json:"wallet"`
	Custodial string `json:"custodial"`
}

// OrderInfo is an order plus its derived lifecycle status.
type OrderInfo struct {
	ID         uint64 `json:"id"`
	User       string `json:"user"`
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
	Timestamp  int64  `json:"timestamp"`
	Status     string `json:"status"` // "open", "cancelled", "filled"
}

// TradeInfo is one executed fill.
type TradeInfo struct {
	ID         uint64 `json:"id"`
	Taker      string `json:"taker"`
	Maker      string `json:"maker"`
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
	Fee        string `json:"fee"`
	Timestamp  int64  `json:"timestamp"`
}

// SubmitResponse acknowledges an accepted mutating operation.
type SubmitResponse struct {
	Status  string `json:"status"`            // "committed"
	OrderID uint64 `json:"orderId,omitempty"` // set for makeOrder
}

// ErrorResponse carries the rejection reason verbatim; callers surface it to
// the end user and decide themselves whether to retry.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is sent by WebSocket clients to manage channel
// subscriptions. Channels: "events", "orders", "trades".
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}
