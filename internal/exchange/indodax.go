package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"indodax_bot/internal/models"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultPublicURL  = "https://indodax.com/api"
	defaultPrivateURL = "https://indodax.com/tapi"
)

// IndodaxClient talks to the Indodax REST API. Private calls are signed with
// HMAC-SHA512 over the form body and carry a strictly monotonic nonce; the
// exchange rejects requests whose nonce does not increase.
type IndodaxClient struct {
	apiKey     string
	secretKey  []byte
	publicURL  string
	privateURL string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int

	nonceMu   sync.Mutex
	lastNonce int64
}

func NewIndodaxClient(apiKey, secretKey string) *IndodaxClient {
	return &IndodaxClient{
		apiKey:     apiKey,
		secretKey:  []byte(secretKey),
		publicURL:  defaultPublicURL,
		privateURL: defaultPrivateURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Indodax allows ~180 requests/min; stay well under it.
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		maxRetries: 3,
	}
}

// SetBaseURLs overrides the endpoints, used by tests against a local server.
func (c *IndodaxClient) SetBaseURLs(publicURL, privateURL string) {
	c.publicURL = strings.TrimRight(publicURL, "/")
	c.privateURL = strings.TrimRight(privateURL, "/")
}

func (c *IndodaxClient) GetTicker(ctx context.Context, pair string) (*models.Ticker, error) {
	body, err := c.publicRequest(ctx, "ticker/"+pair)
	if err != nil {
		return nil, err
	}

	js, err := simplejson.NewJson(body)
	if err != nil {
		return nil, fmt.Errorf("parse ticker response: %w", err)
	}

	t := js.Get("ticker")
	last, err := decimalField(t, "last")
	if err != nil {
		return nil, fmt.Errorf("ticker %s: %w", pair, err)
	}
	bid, _ := decimalField(t, "buy")
	ask, _ := decimalField(t, "sell")

	return &models.Ticker{Last: last, Bid: bid, Ask: ask}, nil
}

func (c *IndodaxClient) GetTrades(ctx context.Context, pair string) ([]models.Tick, error) {
	body, err := c.publicRequest(ctx, "trades/"+pair)
	if err != nil {
		return nil, err
	}

	js, err := simplejson.NewJson(body)
	if err != nil {
		return nil, fmt.Errorf("parse trades response: %w", err)
	}

	raw, err := js.Array()
	if err != nil {
		return nil, fmt.Errorf("unexpected trades payload for %s", pair)
	}

	ticks := make([]models.Tick, 0, len(raw))
	for i := range raw {
		item := js.GetIndex(i)

		tid := item.Get("tid").MustString()
		date, dateErr := strconv.ParseInt(item.Get("date").MustString(), 10, 64)
		price, priceErr := decimalField(item, "price")
		amount, amountErr := decimalField(item, "amount")
		if tid == "" || dateErr != nil || priceErr != nil || amountErr != nil {
			log.WithField("pair", pair).Debug("Skipping unparseable trade entry")
			continue
		}

		ticks = append(ticks, models.Tick{
			Pair:      pair,
			Timestamp: date,
			Price:     price,
			Quantity:  amount,
			TradeID:   tid,
		})
	}
	return ticks, nil
}

func (c *IndodaxClient) GetBalance(ctx context.Context, asset string) (float64, error) {
	js, err := c.privateRequest(ctx, "getInfo", nil)
	if err != nil {
		return 0, err
	}

	balances := js.GetPath("return", "balance")
	raw, ok := balances.CheckGet(asset)
	if !ok {
		return 0, nil
	}

	d, err := toDecimal(raw)
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", asset, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func (c *IndodaxClient) Trade(ctx context.Context, pair, side string, amount float64) (*models.OrderResult, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("type", side)
	// Market orders: buys spend quote currency, sells spend the asset itself.
	if side == models.SideBuy {
		params.Set("idr", decimal.NewFromFloat(amount).String())
	} else {
		asset := strings.TrimSuffix(pair, "idr")
		params.Set(asset, decimal.NewFromFloat(amount).String())
	}

	js, err := c.privateRequest(ctx, "trade", params)
	if err != nil {
		return nil, err
	}

	ret := js.Get("return")
	orderID, err := ret.Get("order_id").Int64()
	if err != nil {
		return nil, fmt.Errorf("trade response missing order_id")
	}

	filled := 0.0
	if side == models.SideBuy {
		if d, err := decimalField(ret, "receive_amount"); err == nil {
			filled = d
		}
	} else {
		filled = amount
	}

	return &models.OrderResult{
		OrderID:        strconv.FormatInt(orderID, 10),
		FilledQuantity: filled,
	}, nil
}

func (c *IndodaxClient) GetOrder(ctx context.Context, pair, orderID string) (*models.OrderResult, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("order_id", orderID)

	js, err := c.privateRequest(ctx, "getOrder", params)
	if err != nil {
		return nil, err
	}

	order := js.GetPath("return", "order")
	filled, _ := decimalField(order, "order_"+strings.TrimSuffix(pair, "idr"))
	return &models.OrderResult{OrderID: orderID, FilledQuantity: filled}, nil
}

func (c *IndodaxClient) CancelOrder(ctx context.Context, pair, orderID, side string) error {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("order_id", orderID)
	params.Set("type", side)

	_, err := c.privateRequest(ctx, "cancelOrder", params)
	return err
}

// publicRequest GETs a public endpoint with rate limiting and backoff on
// transient failures.
func (c *IndodaxClient) publicRequest(ctx context.Context, endpoint string) ([]byte, error) {
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.publicURL+"/"+endpoint, nil)
	})
}

// privateRequest POSTs a signed form to the trade API and validates the
// success envelope. A success=0 response is a rejection, not a transport
// error, and is never retried.
func (c *IndodaxClient) privateRequest(ctx context.Context, method string, params url.Values) (*simplejson.Json, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("method", method)
	params.Set("nonce", strconv.FormatInt(c.nextNonce(), 10))

	body := params.Encode()
	signature := c.sign(body)

	raw, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.privateURL, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Key", c.apiKey)
		req.Header.Set("Sign", signature)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	js, err := simplejson.NewJson(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", method, err)
	}

	if js.Get("success").MustInt() != 1 {
		reason := js.Get("error").MustString()
		if reason == "" {
			reason = "unknown error"
		}
		return nil, &RejectedError{Reason: reason}
	}
	return js, nil
}

func (c *IndodaxClient) doWithRetry(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if resp.StatusCode == http.StatusOK {
				return body, nil
			} else if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("exchange returned HTTP %d", resp.StatusCode)
			} else {
				return nil, fmt.Errorf("exchange returned HTTP %d", resp.StatusCode)
			}
		}

		if attempt < c.maxRetries {
			d := b.Duration()
			log.WithError(lastErr).Warnf("Exchange request failed, retrying in %s", d)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}
	}
	return nil, fmt.Errorf("exchange request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *IndodaxClient) sign(body string) string {
	mac := hmac.New(sha512.New, c.secretKey)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// nextNonce returns unix milliseconds, bumped by one whenever two calls land
// in the same millisecond so the sequence stays strictly increasing.
func (c *IndodaxClient) nextNonce() int64 {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	nonce := time.Now().UnixMilli()
	if nonce <= c.lastNonce {
		nonce = c.lastNonce + 1
	}
	c.lastNonce = nonce
	return nonce
}

// decimalField parses a numeric field that Indodax may send as either a JSON
// string or a bare number.
func decimalField(js *simplejson.Json, key string) (float64, error) {
	d, err := toDecimal(js.Get(key))
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func toDecimal(js *simplejson.Json) (decimal.Decimal, error) {
	if s, err := js.String(); err == nil {
		return decimal.NewFromString(s)
	}
	if f, err := js.Float64(); err == nil {
		return decimal.NewFromFloat(f), nil
	}
	if n, err := js.Int64(); err == nil {
		return decimal.NewFromInt(n), nil
	}
	return decimal.Zero, fmt.Errorf("not a number")
}
