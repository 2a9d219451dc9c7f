package orders

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

const defaultPageSize = 10

var (
	// ErrNotLoggedIn is returned by Fetch without a live session.
	ErrNotLoggedIn = errors.New("orders: not logged in")
	// ErrBackend wraps failed or malformed order responses.
	ErrBackend = errors.New("orders: backend request failed")
)

// Session is the part of the session controller a Book depends on.
type Session interface {
	IsLoggedIn() bool
	HTTPClient() *http.Client
	OnLogout(fn func(ctx context.Context, event goSession.LogoutEvent)) (unsubscribe func())
}

var _ Session = (*goSession.Controller)(nil)

// Order is one row of the order history.
type Order struct {
	ID          session.ID `json:"id"`
	OrderNo     string     `json:"orderNo,omitempty"`
	Status      string     `json:"status"`
	TotalAmount float64    `json:"totalAmount"`
	CreateTime  string     `json:"createTime,omitempty"`
}

// Page describes the position of the loaded orders.
type Page struct {
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
}

func firstPage() Page {
	return Page{CurrentPage: 1, PageSize: defaultPageSize, TotalPages: 1}
}

// Query selects a page. Zero PageNum and PageSize keep the current values.
type Query struct {
	PageNum   int
	PageSize  int
	Status    string
	StartDate string
	EndDate   string
}

// Book is safe for concurrent use.
type Book struct {
	sess        Session
	baseURL     string
	logger      *zap.Logger
	unsubscribe func()

	mu     sync.RWMutex
	orders []Order
	page   Page
	// epoch advances on every logout; responses to older requests are
	// discarded.
	epoch uint64
}

// New returns a Book bound to s that reads from baseURL + "/orders".
func New(s Session, baseURL string, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Book{
		sess:    s,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("orders"),
		page:    firstPage(),
	}
	b.unsubscribe = s.OnLogout(func(context.Context, goSession.LogoutEvent) {
		b.mu.Lock()
		b.orders = nil
		b.page = firstPage()
		b.epoch++
		b.mu.Unlock()
	})
	return b
}

// Close detaches the book from the session.
func (b *Book) Close() {
	b.unsubscribe()
}

// Orders returns a copy of the loaded page.
func (b *Book) Orders() []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Order(nil), b.orders...)
}

// Page returns the pagination of the loaded orders.
func (b *Book) Page() Page {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.page
}

// Reset forgets orders and pagination.
func (b *Book) Reset() {
	b.mu.Lock()
	b.orders = nil
	b.page = firstPage()
	b.mu.Unlock()
}

// Fetch loads one page. Any failure empties the loaded orders and keeps the
// previous pagination. A response that arrives after a logout is discarded
// with ErrNotLoggedIn.
func (b *Book) Fetch(ctx context.Context, q Query) error {
	if !b.sess.IsLoggedIn() {
		b.setOrders(nil)
		return ErrNotLoggedIn
	}

	b.mu.RLock()
	cur, epoch := b.page, b.epoch
	b.mu.RUnlock()
	if q.PageNum <= 0 {
		q.PageNum = cur.CurrentPage
	}
	if q.PageSize <= 0 {
		q.PageSize = cur.PageSize
	}

	data, err := b.get(ctx, q)
	if err != nil {
		b.setOrders(nil)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.epoch != epoch {
		b.logger.Debug("order response dropped after logout")
		return ErrNotLoggedIn
	}
	b.orders = data.Records
	b.page = Page{
		CurrentPage: data.Current,
		PageSize:    data.Size,
		TotalItems:  data.Total,
		TotalPages:  data.Pages,
	}
	return nil
}

type pageData struct {
	Records []Order `json:"records"`
	Current int     `json:"current"`
	Size    int     `json:"size"`
	Total   int     `json:"total"`
	Pages   int     `json:"pages"`
}

func (b *Book) get(ctx context.Context, q Query) (*pageData, error) {
	v := url.Values{}
	v.Set("pageNum", strconv.Itoa(q.PageNum))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.StartDate != "" {
		v.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("endDate", q.EndDate)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/orders?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	resp, err := b.sess.HTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	var env struct {
		Code    json.Number `json:"code"`
		Message string      `json:"message"`
		Data    *struct {
			pageData
			Records json.RawMessage `json:"records"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrBackend, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || env.Code.String() != "1" || env.Data == nil {
		msg := env.Message
		if msg == "" {
			msg = "failed to fetch orders"
		}
		b.logger.Info("order fetch rejected", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return nil, fmt.Errorf("%w: %s", ErrBackend, msg)
	}

	out := env.Data.pageData
	if err := json.Unmarshal(env.Data.Records, &out.Records); err != nil || out.Records == nil {
		return nil, fmt.Errorf("%w: invalid records", ErrBackend)
	}
	return &out, nil
}

func (b *Book) setOrders(o []Order) {
	b.mu.Lock()
	b.orders = o
	b.mu.Unlock()
}
