package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-decor-cartflow/internal/logger"
	"github.com/imrishuroy/go-decor-cartflow/internal/storage"
)

// Keys are the two storage keys a session owns.
type Keys struct {
	LineItems string
	Quotes    string
}

func KeysFor(session string) Keys {
	return Keys{
		LineItems: fmt.Sprintf("cart:%s:cart_items", session),
		Quotes:    fmt.Sprintf("cart:%s:custom_quotes", session),
	}
}

const lockStripes = 64

// Manager hands out Stores bound to a session. Stores for the same session
// share a lock, so read-modify-write operations inside one process do not
// interleave. Other processes writing the same keys still win by last write.
type Manager struct {
	kv      storage.KV
	log     *logger.Logger
	locks   [lockStripes]sync.Mutex
	nowFunc func() time.Time
}

func NewManager(kv storage.KV, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{kv: kv, log: log, nowFunc: time.Now}
}

// For returns the Store of one cart session.
func (m *Manager) For(session string) *Store {
	h := fnv.New32a()
	_, _ = h.Write([]byte(session))
	return &Store{
		kv:      m.kv,
		keys:    KeysFor(session),
		log:     m.log,
		mu:      &m.locks[h.Sum32()%lockStripes],
		nowFunc: m.nowFunc,
	}
}

// Store is the persisted cart of one session: catalog line items and custom
// quotes under two independent keys. Reads fail open to empty collections and
// writes swallow their errors after logging them; no operation returns an error.
type Store struct {
	kv      storage.KV
	keys    Keys
	log     *logger.Logger
	mu      *sync.Mutex
	nowFunc func() time.Time
}

// NewStore builds a standalone Store with its own lock.
func NewStore(kv storage.KV, session string, log *logger.Logger) *Store {
	return NewManager(kv, log).For(session)
}

func (s *Store) Keys() Keys { return s.keys }

func (s *Store) LineItems(ctx context.Context) []CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLineItems(ctx)
}

func (s *Store) Quotes(ctx context.Context) []CustomQuoteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readQuotes(ctx)
}

func (s *Store) SetLineItems(ctx context.Context, items []CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLineItems(ctx, items)
}

func (s *Store) SetQuotes(ctx context.Context, quotes []CustomQuoteRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeQuotes(ctx, quotes)
}

// Snapshot reads both collections and their totals under one lock.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.readLineItems(ctx)
	quotes := s.readQuotes(ctx)
	return Snapshot{Items: items, Quotes: quotes, Totals: ComputeTotals(items, quotes)}
}

func (s *Store) ComputeTotals(ctx context.Context) Totals {
	return s.Snapshot(ctx).Totals
}

// AddLineItem appends item as-is; duplicates by id are kept.
func (s *Store) AddLineItem(ctx context.Context, item CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.readLineItems(ctx)
	s.writeLineItems(ctx, append(items, item))
}

// MergeLineItem adds item.Quantity to the first line with the same id, or
// appends item when there is none.
func (s *Store) MergeLineItem(ctx context.Context, item CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.readLineItems(ctx)
	if i := indexOfItem(items, item.ID); i >= 0 {
		items[i].Quantity = min(items[i].Quantity+max(item.Quantity, 1), MaxQuantity)
	} else {
		items = append(items, item)
	}
	s.writeLineItems(ctx, items)
}

func (s *Store) RemoveLineItem(ctx context.Context, index int) bool {
	return s.mutateItems(ctx, atIndex(index), removeItem)
}

func (s *Store) IncreaseQuantity(ctx context.Context, index int) bool {
	return s.mutateItems(ctx, atIndex(index), increase)
}

func (s *Store) DecreaseQuantity(ctx context.Context, index int) bool {
	return s.mutateItems(ctx, atIndex(index), decrease)
}

// SetQuantity ignores raw values that do not parse to a positive integer.
func (s *Store) SetQuantity(ctx context.Context, index int, raw string) bool {
	return s.mutateItems(ctx, atIndex(index), setQuantity(raw))
}

func (s *Store) RemoveLineItemByID(ctx context.Context, id string) bool {
	return s.mutateItems(ctx, byItemID(id), removeItem)
}

func (s *Store) IncreaseQuantityByID(ctx context.Context, id string) bool {
	return s.mutateItems(ctx, byItemID(id), increase)
}

func (s *Store) DecreaseQuantityByID(ctx context.Context, id string) bool {
	return s.mutateItems(ctx, byItemID(id), decrease)
}

func (s *Store) SetQuantityByID(ctx context.Context, id, raw string) bool {
	return s.mutateItems(ctx, byItemID(id), setQuantity(raw))
}

func (s *Store) RemoveQuote(ctx context.Context, index int) bool {
	return s.removeQuote(ctx, func([]CustomQuoteRequest) int { return index })
}

func (s *Store) RemoveQuoteByID(ctx context.Context, id string) bool {
	return s.removeQuote(ctx, func(quotes []CustomQuoteRequest) int {
		for i, q := range quotes {
			if q.ID == id {
				return i
			}
		}
		return -1
	})
}

// AddQuote stamps draft as a pending client quote, persists it and returns it.
func (s *Store) AddQuote(ctx context.Context, draft QuoteDraft) CustomQuoteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	quotes := s.readQuotes(ctx)
	now := s.nowFunc().UTC()

	eventTime := draft.EventTime
	if eventTime == "" {
		eventTime = DefaultEventTime
	}
	q := CustomQuoteRequest{
		ID:             nextQuoteID(quotes, now),
		ClientName:     draft.ClientName,
		ClientEmail:    draft.ClientEmail,
		ClientPhone:    draft.ClientPhone,
		EventDate:      draft.EventDate,
		EventTime:      eventTime,
		EventLocation:  draft.EventLocation,
		ServiceType:    draft.ServiceType,
		Description:    draft.Description,
		ArcSizeMeters:  draft.ArcSizeMeters,
		Notes:          draft.Notes,
		EstimatedValue: decimal.Zero,
		Status:         QuoteStatusPending,
		CreatedVia:     CreatedViaClient,
		ImageDataURI:   draft.ImageDataURI,
		CreatedAt:      now.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	s.writeQuotes(ctx, append(quotes, q))
	return q
}

// Clear deletes both keys independently; a failure on one does not stop the other.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{s.keys.LineItems, s.keys.Quotes} {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.log.Error(s.log.WithField(ctx, "storage_key", key), "clearing cart state", err)
		}
	}
}

type locator func(items []CartLineItem) (int, bool)
type mutation func(items []CartLineItem, i int) ([]CartLineItem, bool)

func atIndex(index int) locator {
	return func([]CartLineItem) (int, bool) { return index, true }
}

func byItemID(id string) locator {
	return func(items []CartLineItem) (int, bool) {
		i := indexOfItem(items, id)
		return i, i >= 0
	}
}

func removeItem(items []CartLineItem, i int) ([]CartLineItem, bool) {
	return append(items[:i], items[i+1:]...), true
}

// increase stops at MaxQuantity; beyond it the stored value would not read back.
func increase(items []CartLineItem, i int) ([]CartLineItem, bool) {
	if items[i].Quantity >= MaxQuantity {
		return items, false
	}
	items[i].Quantity++
	return items, true
}

func decrease(items []CartLineItem, i int) ([]CartLineItem, bool) {
	if items[i].Quantity <= 1 {
		return items, false
	}
	items[i].Quantity--
	return items, true
}

func setQuantity(raw string) mutation {
	return func(items []CartLineItem, i int) ([]CartLineItem, bool) {
		n, ok := ParseQuantity(raw)
		if !ok {
			return items, false
		}
		items[i].Quantity = n
		return items, true
	}
}

// mutateItems locates a line, applies fn and persists when fn reports a change.
func (s *Store) mutateItems(ctx context.Context, find locator, fn mutation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.readLineItems(ctx)
	i, ok := find(items)
	if !ok || i < 0 || i >= len(items) {
		return false
	}
	items, changed := fn(items, i)
	if changed {
		s.writeLineItems(ctx, items)
	}
	return changed
}

func (s *Store) removeQuote(ctx context.Context, find func([]CustomQuoteRequest) int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	quotes := s.readQuotes(ctx)
	i := find(quotes)
	if i < 0 || i >= len(quotes) {
		return false
	}
	s.writeQuotes(ctx, append(quotes[:i], quotes[i+1:]...))
	return true
}

func indexOfItem(items []CartLineItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// nextQuoteID is the current Unix millisecond, bumped past any existing
// numeric id so quotes added within one millisecond stay distinct.
func nextQuoteID(quotes []CustomQuoteRequest, now time.Time) string {
	id := now.UnixMilli()
	for _, q := range quotes {
		if n, err := strconv.ParseInt(q.ID, 10, 64); err == nil && n >= id {
			id = n + 1
		}
	}
	return strconv.FormatInt(id, 10)
}

func (s *Store) readLineItems(ctx context.Context) []CartLineItem {
	var items []CartLineItem
	if !s.read(ctx, s.keys.LineItems, &items) {
		return []CartLineItem{}
	}
	return items
}

func (s *Store) readQuotes(ctx context.Context) []CustomQuoteRequest {
	var quotes []CustomQuoteRequest
	if !s.read(ctx, s.keys.Quotes, &quotes) {
		return []CustomQuoteRequest{}
	}
	return quotes
}

// read decodes the JSON array stored at key into out. Absent keys, null,
// non-arrays and undecodable values all report false.
func (s *Store) read(ctx context.Context, key string, out any) bool {
	lctx := s.log.WithField(ctx, "storage_key", key)
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Warn(lctx, "reading cart state", err)
		return false
	}
	if !found || raw == "" || raw == "null" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Warn(lctx, "discarding malformed cart state", err)
		return false
	}
	return true
}

func (s *Store) writeLineItems(ctx context.Context, items []CartLineItem) {
	if items == nil {
		items = []CartLineItem{}
	}
	for i := range items {
		items[i].Quantity = min(max(items[i].Quantity, 1), MaxQuantity)
		if !AmountInRange(items[i].Price) {
			items[i].Price = decimal.Zero
		}
	}
	s.write(ctx, s.keys.LineItems, items)
}

func (s *Store) writeQuotes(ctx context.Context, quotes []CustomQuoteRequest) {
	if quotes == nil {
		quotes = []CustomQuoteRequest{}
	}
	for i := range quotes {
		if !AmountInRange(quotes[i].EstimatedValue) {
			quotes[i].EstimatedValue = decimal.Zero
		}
	}
	s.write(ctx, s.keys.Quotes, quotes)
}

func (s *Store) write(ctx context.Context, key string, v any) {
	lctx := s.log.WithField(ctx, "storage_key", key)
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error(lctx, "encoding cart state, write skipped", err)
		return
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		s.log.Error(lctx, "persisting cart state, write skipped", err)
	}
}
