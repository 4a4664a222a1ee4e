package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"indodax_bot/internal/models"
)

const (
	testAPIKey    = "test-api-key"
	testSecretKey = "test-secret-key"
)

func newTestClient(t *testing.T, handler http.Handler) *IndodaxClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewIndodaxClient(testAPIKey, testSecretKey)
	c.SetBaseURLs(srv.URL, srv.URL)
	return c
}

func TestGetTickerParsesStringPrices(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ticker/btcidr" {
			t.Errorf("path = %s, want /ticker/btcidr", r.URL.Path)
		}
		fmt.Fprint(w, `{"ticker":{"high":"70100000","low":"69000000","last":"70000000","buy":"69990000","sell":"70010000"}}`)
	}))

	ticker, err := c.GetTicker(context.Background(), "btcidr")
	if err != nil {
		t.Fatalf("GetTicker: %v", err)
	}
	if ticker.Last != 70_000_000 || ticker.Bid != 69_990_000 || ticker.Ask != 70_010_000 {
		t.Errorf("ticker = %+v", ticker)
	}
}

func TestGetTradesSkipsMalformedEntries(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"date":"1700000300","price":"70050000","amount":"0.002","tid":"1002","type":"sell"},
			{"date":"not-a-date","price":"70000000","amount":"0.001","tid":"1001","type":"buy"},
			{"date":"1700000000","price":"70000000","amount":"0.001","tid":"1000","type":"buy"}
		]`)
	}))

	ticks, err := c.GetTrades(context.Background(), "btcidr")
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("got %d ticks, want 2 (malformed one skipped)", len(ticks))
	}
	if ticks[0].TradeID != "1002" || ticks[0].Price != 70_050_000 || ticks[0].Timestamp != 1700000300 {
		t.Errorf("ticks[0] = %+v", ticks[0])
	}
}

func TestPrivateRequestSignedAndAuthenticated(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Key"); got != testAPIKey {
			t.Errorf("Key header = %q, want %q", got, testAPIKey)
		}

		body, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha512.New, []byte(testSecretKey))
		mac.Write(body)
		want := hex.EncodeToString(mac.Sum(nil))
		if got := r.Header.Get("Sign"); got != want {
			t.Errorf("Sign header = %q, want HMAC-SHA512 of the form body", got)
		}

		form, _ := url.ParseQuery(string(body))
		if form.Get("method") != "getInfo" {
			t.Errorf("method param = %q, want getInfo", form.Get("method"))
		}
		if form.Get("nonce") == "" {
			t.Error("nonce param missing")
		}

		fmt.Fprint(w, `{"success":1,"return":{"balance":{"idr":"1500000","btc":"0.001"}}}`)
	}))

	balance, err := c.GetBalance(context.Background(), "idr")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 1_500_000 {
		t.Errorf("balance = %f, want 1500000", balance)
	}
}

func TestNonceStrictlyIncreasing(t *testing.T) {
	var nonces []int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		n, err := strconv.ParseInt(form.Get("nonce"), 10, 64)
		if err != nil {
			t.Errorf("bad nonce %q: %v", form.Get("nonce"), err)
		}
		nonces = append(nonces, n)
		fmt.Fprint(w, `{"success":1,"return":{"balance":{}}}`)
	}))

	for i := 0; i < 4; i++ {
		if _, err := c.GetBalance(context.Background(), "idr"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	for i := 1; i < len(nonces); i++ {
		if nonces[i] <= nonces[i-1] {
			t.Fatalf("nonce %d (%d) not greater than previous (%d)", i, nonces[i], nonces[i-1])
		}
	}
}

func TestTradeBuySpendsQuoteCurrency(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		if form.Get("pair") != "btcidr" || form.Get("type") != "buy" {
			t.Errorf("order params = %v", form)
		}
		if form.Get("idr") != "50000" {
			t.Errorf("idr param = %q, want 50000", form.Get("idr"))
		}
		fmt.Fprint(w, `{"success":1,"return":{"order_id":94425,"receive_amount":"0.00071","spend_rp":50000}}`)
	}))

	order, err := c.Trade(context.Background(), "btcidr", models.SideBuy, 50_000)
	if err != nil {
		t.Fatalf("Trade: %v", err)
	}
	if order.OrderID != "94425" {
		t.Errorf("order id = %q, want 94425", order.OrderID)
	}
	if order.FilledQuantity != 0.00071 {
		t.Errorf("filled = %f, want 0.00071", order.FilledQuantity)
	}
}

func TestTradeSellSpendsAsset(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		if form.Get("type") != "sell" {
			t.Errorf("type = %q, want sell", form.Get("type"))
		}
		if form.Get("btc") != "0.0005" {
			t.Errorf("btc param = %q, want 0.0005", form.Get("btc"))
		}
		fmt.Fprint(w, `{"success":1,"return":{"order_id":94426}}`)
	}))

	order, err := c.Trade(context.Background(), "btcidr", models.SideSell, 0.0005)
	if err != nil {
		t.Fatalf("Trade: %v", err)
	}
	if order.FilledQuantity != 0.0005 {
		t.Errorf("filled = %f, want the sell quantity", order.FilledQuantity)
	}
}

func TestRejectionIsNotRetried(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"success":0,"error":"Insufficient balance.","error_code":"insufficient_balance"}`)
	}))

	_, err := c.Trade(context.Background(), "btcidr", models.SideBuy, 50_000)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("got %v, want ErrRejected", err)
	}
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Reason != "Insufficient balance." {
		t.Errorf("rejection reason not preserved: %v", err)
	}
	if calls != 1 {
		t.Errorf("server hit %d times, rejections must not be retried", calls)
	}
}

func TestTransientServerErrorIsRetried(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"ticker":{"last":"100","buy":"99","sell":"101"}}`)
	}))

	ticker, err := c.GetTicker(context.Background(), "btcidr")
	if err != nil {
		t.Fatalf("GetTicker after retry: %v", err)
	}
	if ticker.Last != 100 {
		t.Errorf("ticker.Last = %f, want 100", ticker.Last)
	}
	if calls != 2 {
		t.Errorf("server hit %d times, want 2 (one retry)", calls)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := c.GetTicker(context.Background(), "nosuchpair"); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
	if calls != 1 {
		t.Errorf("server hit %d times, 4xx must not be retried", calls)
	}
}
