package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/hyunwoo-p/tokendex/pkg/chain"
	"github.com/hyunwoo-p/tokendex/pkg/core/events"
	"github.com/hyunwoo-p/tokendex/pkg/core/token"
	tdcrypto "github.com/hyunwoo-p/tokendex/pkg/crypto"
	"github.com/hyunwoo-p/tokendex/pkg/indexer"
	"github.com/hyunwoo-p/tokendex/pkg/storage"
	"github.com/hyunwoo-p/tokendex/pkg/util"
)

var (
	deployer   = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	feeAccount = common.HexToAddress("0xFEE0000000000000000000000000000000000001")
	alice      = common.HexToAddress("0xA1000000000000000000000000000000000000A1")
	bob        = common.HexToAddress("0xB2000000000000000000000000000000000000B2")
)

type testEnv struct {
	chain  *chain.Chain
	view   *indexer.View
	server *httptest.Server
	tokenA *token.Token
	tokenB *token.Token
}

func newTestEnv(t *testing.T, requireSigs bool, chainDeployer common.Address) *testEnv {
	t.Helper()
	c := chain.New(chain.Config{
		Deployer:   chainDeployer,
		FeeAccount: feeAccount,
		FeePercent: 10,
	}, util.NewManualClock(time.UnixMilli(1_700_000_000_000)), zap.NewNop().Sugar(), nil, nil)
	t.Cleanup(c.Close)

	tokenA := c.DeployToken("Token A", "TKA", 1000)
	tokenB := c.DeployToken("Token B", "TKB", 1000)

	view := indexer.NewView(feeAccount)
	srv := NewServer(c, view, nil, zap.NewNop().Sugar(), requireSigs)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{chain: c, view: view, server: ts, tokenA: tokenA, tokenB: tokenB}
}

// sync folds any newly committed events into the view, standing in for the
// live subscription a running node uses.
func (env *testEnv) sync() {
	env.view.Replay(env.chain.Events().All())
}

func (env *testEnv) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(env.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("GET %s: decode: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (env *testEnv) post(t *testing.T, path string, body, out interface{}) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("POST %s: marshal: %v", path, err)
	}
	resp, err := http.Post(env.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("POST %s: decode: %v", path, err)
		}
	}
	env.sync()
	return resp.StatusCode
}

func TestListTokens(t *testing.T) {
	env := newTestEnv(t, false, deployer)

	var tokens []TokenInfo
	if code := env.get(t, "/api/v1/tokens", &tokens); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(tokens))
	}
	if tokens[0].Symbol != "TKA" || tokens[1].Symbol != "TKB" {
		t.Errorf("token order = %s, %s", tokens[0].Symbol, tokens[1].Symbol)
	}
	// Addresses come back checksummed.
	if tokens[0].Address != tdcrypto.EIP55(env.tokenA.Address().Bytes()) {
		t.Errorf("address = %s not checksummed", tokens[0].Address)
	}
	if tokens[0].TotalSupply != token.Units(1000).String() {
		t.Errorf("totalSupply = %s", tokens[0].TotalSupply)
	}
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t, false, deployer)

	if code := env.get(t, "/api/v1/tokens/"+alice.Hex(), nil); code != http.StatusNotFound {
		t.Errorf("unknown token status = %d, want 404", code)
	}
	if code := env.get(t, "/api/v1/tokens/not-an-address", nil); code != http.StatusBadRequest {
		t.Errorf("bad address status = %d, want 400", code)
	}
	if code := env.get(t, "/api/v1/orders/99", nil); code != http.StatusNotFound {
		t.Errorf("unknown order status = %d, want 404", code)
	}
}

func TestTradingFlow(t *testing.T) {
	env := newTestEnv(t, false, deployer)
	addrA := env.tokenA.Address().Hex()
	addrB := env.tokenB.Address().Hex()
	exAddr := env.chain.Exchange().Address().Hex()

	// Fund alice with tokenA and bob with tokenB, straight from the deployer.
	code := env.post(t, "/api/v1/tokens/"+addrA+"/transfer", TransferRequest{
		Caller: deployer.Hex(), To: alice.Hex(), Amount: token.Units(100).String(),
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("transfer status = %d", code)
	}
	env.post(t, "/api/v1/tokens/"+addrB+"/transfer", TransferRequest{
		Caller: deployer.Hex(), To: bob.Hex(), Amount: token.Units(100).String(),
	}, nil)

	// Approvals and deposits.
	env.post(t, "/api/v1/tokens/"+addrA+"/approve", ApproveRequest{
		Caller: alice.Hex(), Spender: exAddr, Amount: token.Units(100).String(),
	}, nil)
	env.post(t, "/api/v1/tokens/"+addrB+"/approve", ApproveRequest{
		Caller: bob.Hex(), Spender: exAddr, Amount: token.Units(100).String(),
	}, nil)
	code = env.post(t, "/api/v1/exchange/deposits", DepositRequest{
		Caller: alice.Hex(), Token: addrA, Amount: token.Units(50).String(),
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("deposit status = %d", code)
	}
	env.post(t, "/api/v1/exchange/deposits", DepositRequest{
		Caller: bob.Hex(), Token: addrB, Amount: token.Units(50).String(),
	}, nil)

	// Depositing without an approval surfaces the token rejection.
	if code := env.post(t, "/api/v1/exchange/deposits", DepositRequest{
		Caller: alice.Hex(), Token: addrB, Amount: token.Units(1).String(),
	}, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("unapproved deposit status = %d, want 422", code)
	}

	// Make, inspect, and fill an order.
	var made SubmitResponse
	code = env.post(t, "/api/v1/orders", MakeOrderRequest{
		Caller:     alice.Hex(),
		TokenGet:   addrB,
		AmountGet:  token.Units(1).String(),
		TokenGive:  addrA,
		AmountGive: token.Units(1).String(),
	}, &made)
	if code != http.StatusOK || made.OrderID == 0 {
		t.Fatalf("makeOrder status = %d, id = %d", code, made.OrderID)
	}

	var order OrderInfo
	env.get(t, fmt.Sprintf("/api/v1/orders/%d", made.OrderID), &order)
	if order.Status != "open" {
		t.Errorf("order status = %s, want open", order.Status)
	}

	// Cancel by the wrong user is forbidden; fill by bob commits.
	if code := env.post(t, fmt.Sprintf("/api/v1/orders/%d/cancel", made.OrderID), OrderActionRequest{
		Caller: bob.Hex(),
	}, nil); code != http.StatusForbidden {
		t.Errorf("foreign cancel status = %d, want 403", code)
	}
	if code := env.post(t, fmt.Sprintf("/api/v1/orders/%d/fill", made.OrderID), OrderActionRequest{
		Caller: bob.Hex(),
	}, nil); code != http.StatusOK {
		t.Fatalf("fill status = %d", code)
	}

	// Terminal order: refill and late cancel both conflict.
	if code := env.post(t, fmt.Sprintf("/api/v1/orders/%d/fill", made.OrderID), OrderActionRequest{
		Caller: bob.Hex(),
	}, nil); code != http.StatusConflict {
		t.Errorf("refill status = %d, want 409", code)
	}
	if code := env.post(t, fmt.Sprintf("/api/v1/orders/%d/cancel", made.OrderID), OrderActionRequest{
		Caller: alice.Hex(),
	}, nil); code != http.StatusConflict {
		t.Errorf("late cancel status = %d, want 409", code)
	}

	env.get(t, fmt.Sprintf("/api/v1/orders/%d", made.OrderID), &order)
	if order.Status != "filled" {
		t.Errorf("order status = %s, want filled", order.Status)
	}

	// Trade history shows the fill with the 10% taker fee.
	var trades []TradeInfo
	env.get(t, "/api/v1/trades", &trades)
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	wantFee := new(big.Int).Div(token.Units(1), big.NewInt(10))
	if trades[0].Fee != wantFee.String() {
		t.Errorf("trade fee = %s, want %s", trades[0].Fee, wantFee)
	}

	// Over-withdrawing leaves custody untouched and reports the reason.
	if code := env.post(t, "/api/v1/exchange/withdrawals", WithdrawRequest{
		Caller: alice.Hex(), Token: addrA, Amount: token.Units(500).String(),
	}, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("over-withdraw status = %d, want 422", code)
	}

	var balances []BalanceInfo
	env.get(t, "/api/v1/exchange/balances/"+alice.Hex(), &balances)
	if len(balances) != 2 {
		t.Fatalf("balance rows = %d, want 2", len(balances))
	}
	if balances[0].Custodial != token.Units(49).String() {
		t.Errorf("alice custodial tokenA = %s, want %s", balances[0].Custodial, token.Units(49))
	}
}

func TestOrderListFilters(t *testing.T) {
	env := newTestEnv(t, false, deployer)
	addrA := env.tokenA.Address().Hex()
	addrB := env.tokenB.Address().Hex()
	exAddr := env.chain.Exchange().Address().Hex()

	env.post(t, "/api/v1/tokens/"+addrA+"/transfer", TransferRequest{
		Caller: deployer.Hex(), To: alice.Hex(), Amount: token.Units(100).String(),
	}, nil)
	env.post(t, "/api/v1/tokens/"+addrA+"/approve", ApproveRequest{
		Caller: alice.Hex(), Spender: exAddr, Amount: token.Units(100).String(),
	}, nil)
	env.post(t, "/api/v1/exchange/deposits", DepositRequest{
		Caller: alice.Hex(), Token: addrA, Amount: token.Units(50).String(),
	}, nil)

	var made SubmitResponse
	env.post(t, "/api/v1/orders", MakeOrderRequest{
		Caller: alice.Hex(), TokenGet: addrB, AmountGet: token.Units(1).String(),
		TokenGive: addrA, AmountGive: token.Units(1).String(),
	}, &made)
	env.post(t, "/api/v1/orders", MakeOrderRequest{
		Caller: alice.Hex(), TokenGet: addrB, AmountGet: token.Units(2).String(),
		TokenGive: addrA, AmountGive: token.Units(2).String(),
	}, nil)
	env.post(t, fmt.Sprintf("/api/v1/orders/%d/cancel", made.OrderID), OrderActionRequest{
		Caller: alice.Hex(),
	}, nil)

	var open []OrderInfo
	env.get(t, "/api/v1/orders", &open)
	if len(open) != 1 || open[0].ID != made.OrderID+1 {
		t.Errorf("open orders = %+v", open)
	}

	var cancelled []OrderInfo
	env.get(t, "/api/v1/orders?status=cancelled", &cancelled)
	if len(cancelled) != 1 || cancelled[0].ID != made.OrderID {
		t.Errorf("cancelled orders = %+v", cancelled)
	}

	if code := env.get(t, "/api/v1/orders?status=bogus", nil); code != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d, want 400", code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	env := newTestEnv(t, false, deployer)
	addrA := env.tokenA.Address().Hex()

	env.post(t, "/api/v1/tokens/"+addrA+"/transfer", TransferRequest{
		Caller: deployer.Hex(), To: alice.Hex(), Amount: token.Units(10).String(),
	}, nil)
	env.post(t, "/api/v1/tokens/"+addrA+"/transfer", TransferRequest{
		Caller: deployer.Hex(), To: bob.Hex(), Amount: token.Units(10).String(),
	}, nil)

	var all []json.RawMessage
	env.get(t, "/api/v1/events", &all)
	if len(all) != 2 {
		t.Fatalf("events = %d, want 2", len(all))
	}
	var tail []json.RawMessage
	env.get(t, "/api/v1/events?after=1", &tail)
	if len(tail) != 1 {
		t.Errorf("events after=1 = %d, want 1", len(tail))
	}
	if code := env.get(t, "/api/v1/events?after=junk", nil); code != http.StatusBadRequest {
		t.Errorf("bad cursor status = %d, want 400", code)
	}
}

func TestSignatureEnforcement(t *testing.T) {
	signer, err := tdcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	// The signer is the chain deployer so its transfers are funded.
	env := newTestEnv(t, true, signer.Address())
	addrA := env.tokenA.Address().Hex()

	req := TransferRequest{
		Caller: signer.Address().Hex(),
		To:     alice.Hex(),
		Amount: token.Units(1).String(),
	}

	// No signature: rejected before touching the ledger.
	if code := env.post(t, "/api/v1/tokens/"+addrA+"/transfer", req, nil); code != http.StatusUnauthorized {
		t.Errorf("unsigned transfer status = %d, want 401", code)
	}

	// Signature from a different key: rejected.
	stranger, _ := tdcrypto.GenerateKey()
	badSig, _ := stranger.SignPayload(req.SigningPayload(addrA))
	req.Signature = hexutil.Encode(badSig)
	if code := env.post(t, "/api/v1/tokens/"+addrA+"/transfer", req, nil); code != http.StatusUnauthorized {
		t.Errorf("foreign-signed transfer status = %d, want 401", code)
	}

	// Valid signature over the canonical payload: committed.
	sig, err := signer.SignPayload(req.SigningPayload(addrA))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req.Signature = hexutil.Encode(sig)
	if code := env.post(t, "/api/v1/tokens/"+addrA+"/transfer", req, nil); code != http.StatusOK {
		t.Fatalf("signed transfer status = %d, want 200", code)
	}
	if got := env.tokenA.BalanceOf(alice); got.Cmp(token.Units(1)) != 0 {
		t.Errorf("alice balance = %s, want %s", got, token.Units(1))
	}
}

func TestArchiveEndpoints(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// Seed the archive directly, as a prior run's commit stream would have.
	for i := uint64(1); i <= 4; i++ {
		e := events.Event{Seq: i, Kind: events.KindDeposit, Deposit: &events.Deposit{
			User:    alice,
			Amount:  token.Units(int64(i)),
			Balance: token.Units(int64(i)),
		}}
		if i == 3 {
			e.Kind = events.KindTrade
			e.Deposit = nil
			e.Trade = &events.Trade{
				ID: 1, User: bob, Maker: alice,
				AmountGet: token.Units(1), AmountGive: token.Units(1), Fee: token.Units(0),
			}
		}
		if err := store.AppendEvent(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	c := chain.New(chain.Config{
		Deployer: deployer, FeeAccount: feeAccount, FeePercent: 10,
	}, util.NewManualClock(time.UnixMilli(1_700_000_000_000)), zap.NewNop().Sugar(), nil, nil)
	t.Cleanup(c.Close)
	srv := NewServer(c, indexer.NewView(feeAccount), store, zap.NewNop().Sugar(), false)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	env := &testEnv{chain: c, view: indexer.NewView(feeAccount), server: ts}

	var status map[string]uint64
	if code := env.get(t, "/api/v1/archive", &status); code != http.StatusOK {
		t.Fatalf("archive status = %d", code)
	}
	if status["lastSeq"] != 4 {
		t.Errorf("lastSeq = %d, want 4", status["lastSeq"])
	}

	var evts []events.Event
	if code := env.get(t, "/api/v1/archive/events?after=2", &evts); code != http.StatusOK {
		t.Fatalf("archive events = %d", code)
	}
	if len(evts) != 2 || evts[0].Seq != 3 {
		t.Errorf("archived tail = %+v", evts)
	}

	var trades []TradeInfo
	if code := env.get(t, "/api/v1/archive/trades", &trades); code != http.StatusOK {
		t.Fatalf("archive trades = %d", code)
	}
	if len(trades) != 1 || trades[0].ID != 1 {
		t.Errorf("archived trades = %+v", trades)
	}
}

func TestArchiveDisabled(t *testing.T) {
	env := newTestEnv(t, false, deployer)
	for _, path := range []string{"/api/v1/archive", "/api/v1/archive/events", "/api/v1/archive/trades"} {
		if code := env.get(t, path, nil); code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, code)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false, deployer)
	var out map[string]string
	if code := env.get(t, "/health", &out); code != http.StatusOK {
		t.Fatalf("health status = %d", code)
	}
	if out["status"] != "ok" {
		t.Errorf("health = %v", out)
	}
}
