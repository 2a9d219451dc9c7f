package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"go.uber.org/zap"
)

var (
	// ErrNotLoggedIn is returned for writes without a live session.
	ErrNotLoggedIn = errors.New("cart: not logged in")
	// ErrNoUserID is returned in remote mode when the profile has no id.
	ErrNoUserID = errors.New("cart: profile has no user id")
	// ErrBackend wraps failed cart requests.
	ErrBackend = errors.New("cart: backend request failed")
)

// Session is the part of the session controller a Cart depends on.
type Session interface {
	Snapshot() session.Snapshot
	IsLoggedIn() bool
	HTTPClient() *http.Client
	OnLogout(fn func(ctx context.Context, event goSession.LogoutEvent)) (unsubscribe func())
}

var _ Session = (*goSession.Controller)(nil)

// Product is a magic bag as listed in the storefront.
type Product struct {
	ID    session.ID `json:"id"`
	Title string     `json:"title"`
	Price float64    `json:"price"`
}

// Item is one cart line.
type Item struct {
	MagicBagID session.ID `json:"magicBagId"`
	MagicBag   Product    `json:"magicBag"`
	Quantity   int        `json:"quantity"`
}

// Options configures a Cart.
type Options struct {
	// BaseURL is the API prefix, e.g. "https://shop.example/api".
	BaseURL string
	// Remote sends changes to the backend. When false the cart is local.
	Remote bool
	Logger *zap.Logger
}

// Cart is safe for concurrent use.
type Cart struct {
	sess        Session
	opts        Options
	logger      *zap.Logger
	unsubscribe func()

	mu    sync.RWMutex
	items []Item
	// epoch advances on every logout; a fetch started in an older epoch
	// is discarded.
	epoch uint64
}

// New returns a Cart bound to s. It empties itself on every logout of s
// until Close.
func New(s Session, opts Options) *Cart {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cart{sess: s, opts: opts, logger: logger.Named("cart")}
	c.unsubscribe = s.OnLogout(func(_ context.Context, ev goSession.LogoutEvent) {
		c.mu.Lock()
		c.items = nil
		c.epoch++
		c.mu.Unlock()
		c.logger.Debug("cart cleared on logout", zap.String("reason", string(ev.Reason)))
	})
	return c
}

// Close detaches the cart from the session.
func (c *Cart) Close() {
	c.unsubscribe()
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Item(nil), c.items...)
}

// Count is the total quantity across lines.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Total is the sum of price times quantity.
func (c *Cart) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var sum float64
	for _, it := range c.items {
		sum += it.MagicBag.Price * float64(it.Quantity)
	}
	return sum
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items) == 0
}

// Clear drops every line locally.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Add puts one unit of p into the cart.
func (c *Cart) Add(ctx context.Context, p Product) error {
	if !c.sess.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	if !c.opts.Remote {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A logout that landed since the check above has already cleared.
		if !c.sess.IsLoggedIn() {
			return ErrNotLoggedIn
		}
		for i := range c.items {
			if c.items[i].MagicBagID == p.ID {
				c.items[i].Quantity++
				return nil
			}
		}
		c.items = append(c.items, Item{MagicBagID: p.ID, MagicBag: p, Quantity: 1})
		return nil
	}

	uid, err := c.userID()
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("magicbagId", string(p.ID))
	q.Set("quantity", strconv.Itoa(1))
	if _, err := c.do(ctx, http.MethodPost, "/cart/"+url.PathEscape(uid)+"/items?"+q.Encode()); err != nil {
		return err
	}
	return c.Fetch(ctx)
}

// Remove deletes the line for magic bag id.
func (c *Cart) Remove(ctx context.Context, id session.ID) error {
	if !c.opts.Remote {
		c.mu.Lock()
		defer c.mu.Unlock()
		kept := c.items[:0]
		for _, it := range c.items {
			if it.MagicBagID != id {
				kept = append(kept, it)
			}
		}
		c.items = kept
		return nil
	}

	uid, err := c.userID()
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(uid)+"/items/"+url.PathEscape(string(id))); err != nil {
		return err
	}
	return c.Fetch(ctx)
}

// Fetch replaces the cart with the backend copy. It is a no-op in local mode
// and without a session. On failure the cart is emptied. A response that
// arrives after a logout is discarded with ErrNotLoggedIn.
func (c *Cart) Fetch(ctx context.Context) error {
	if !c.opts.Remote || !c.sess.IsLoggedIn() {
		return nil
	}
	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	uid, err := c.userID()
	if err != nil {
		return err
	}

	body, err := c.do(ctx, http.MethodGet, "/cart/"+url.PathEscape(uid)+"/items")
	if err != nil {
		c.Clear()
		return err
	}
	var env struct {
		Data struct {
			Items []Item `json:"items"`
		} `json:"data"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			c.Clear()
			return fmt.Errorf("%w: decode items: %v", ErrBackend, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.logger.Debug("cart response dropped after logout")
		return ErrNotLoggedIn
	}
	c.items = env.Data.Items
	return nil
}

func (c *Cart) userID() (string, error) {
	p := c.sess.Snapshot().Profile
	if p == nil || p.ID == "" {
		return "", ErrNoUserID
	}
	return string(p.ID), nil
}

func (c *Cart) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.opts.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	resp, err := c.sess.HTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("cart request failed", zap.String("method", method), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrBackend, resp.StatusCode)
	}
	return body, nil
}
