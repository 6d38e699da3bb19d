// Command seed populates a running devnet node with a realistic starting
// state: token grants to two users, exchange deposits, a pair of cancelled
// orders, one guaranteed fill, and a randomized batch of make-and-fill
// rounds to build up trade history.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/hyunwoo-p/tokendex/pkg/api"
	"github.com/hyunwoo-p/tokendex/pkg/core/token"
)

const (
	user1 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" // deployer, holds the supply
	user2 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type client struct {
	base string
	http *http.Client
}

func main() {
	base := flag.String("node", "http://localhost:8545", "node API base URL")
	rounds := flag.Int("rounds", 30, "randomized make+fill rounds")
	flag.Parse()

	c := &client{base: *base, http: &http.Client{Timeout: 10 * time.Second}}

	var tokens []api.TokenInfo
	c.get("/api/v1/tokens", &tokens)
	if len(tokens) < 2 {
		log.Fatalf("need at least 2 deployed tokens, node has %d", len(tokens))
	}
	token1, token2 := tokens[0].Address, tokens[1].Address

	var ex api.ExchangeInfo
	c.get("/api/v1/exchange", &ex)
	log.Printf("exchange %s fee=%d%% -> %s", ex.Address, ex.FeePercent, ex.FeeAccount)

	// Grant user2 half of user1's holdings of both trade tokens.
	c.transfer(token1, user1, user2, units(500000))
	c.transfer(token2, user1, user2, units(500000))

	// Both users approve the exchange and move 10000 of each token into custody.
	for _, u := range []string{user1, user2} {
		for _, t := range []string{token1, token2} {
			c.approve(t, u, ex.Address, units(10000))
			c.deposit(u, t, units(10000))
		}
	}
	log.Printf("deposits complete")

	// A cancelled order from each user.
	id := c.makeOrder(user1, token2, units(1), token1, units(1))
	c.orderAction("cancel", user1, id)
	id = c.makeOrder(user2, token2, units(1), token1, units(1))
	c.orderAction("cancel", user2, id)
	log.Printf("cancelled orders seeded")

	// One guaranteed fill.
	id = c.makeOrder(user1, token1, units(100), token2, units(100))
	c.orderAction("fill", user2, id)

	// Randomized history.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < *rounds; i++ {
		amountGet := units(int64(rng.Intn(30) + 13))
		amountGive := units(int64(rng.Intn(30) + 13))
		id = c.makeOrder(user1, token2, amountGet, token1, amountGive)
		c.orderAction("fill", user2, id)
	}
	log.Printf("seeded %d filled orders", *rounds+1)
}

func units(whole int64) string {
	return token.Units(whole).String()
}

func (c *client) transfer(tokenAddr, from, to, amount string) {
	c.post("/api/v1/tokens/"+tokenAddr+"/transfer", api.TransferRequest{
		Caller: from, To: to, Amount: amount,
	}, nil)
}

func (c *client) approve(tokenAddr, owner, spender, amount string) {
	c.post("/api/v1/tokens/"+tokenAddr+"/approve", api.ApproveRequest{
		Caller: owner, Spender: spender, Amount: amount,
	}, nil)
}

func (c *client) deposit(caller, tokenAddr, amount string) {
	c.post("/api/v1/exchange/deposits", api.DepositRequest{
		Caller: caller, Token: tokenAddr, Amount: amount,
	}, nil)
}

func (c *client) makeOrder(caller, tokenGet, amountGet, tokenGive, amountGive string) uint64 {
	var resp api.SubmitResponse
	c.post("/api/v1/orders", api.MakeOrderRequest{
		Caller:     caller,
		TokenGet:   tokenGet,
		AmountGet:  amountGet,
		TokenGive:  tokenGive,
		AmountGive: amountGive,
	}, &resp)
	return resp.OrderID
}

func (c *client) orderAction(action, caller string, id uint64) {
	c.post(fmt.Sprintf("/api/v1/orders/%d/%s", id, action), api.OrderActionRequest{
		Caller: caller,
	}, nil)
}

func (c *client) get(path string, out interface{}) {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		log.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("GET %s: decode: %v", path, err)
		}
	}
}

func (c *client) post(path string, body, out interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("POST %s: marshal: %v", path, err)
	}
	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		log.Fatalf("POST %s: status %d: %s", path, resp.StatusCode, apiErr.Error)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("POST %s: decode: %v", path, err)
		}
	}
}
