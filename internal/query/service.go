// Package query is the dashboard's data layer: one method per upstream
// operation, each with a cache key and a stale time, and one method per
// mutation that invalidates the keys the mutation affects.
package query

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/auth"
	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/cache"
	"github.com/sort-storage/admin/internal/model"
)

const (
	staleDefault = 5 * time.Minute
	staleShort   = 2 * time.Minute
)

// Upstream is satisfied by *backend.Client.
type Upstream interface {
	GetJSON(ctx context.Context, token, path string, query url.Values, out any) error
	SendJSON(ctx context.Context, token, method, path string, in, out any) error
}

// Publisher is satisfied by *ws.Hub.
type Publisher interface {
	Publish(topic string, keys []string)
}

type Service struct {
	storage Upstream
	users   Upstream
	cache   *cache.Cache
	pub     Publisher
	logger  *zap.Logger
}

// NewService wires the data layer. cache and pub may be nil.
func NewService(storage, users Upstream, c *cache.Cache, pub Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{storage: storage, users: users, cache: c, pub: pub, logger: logger}
}

// Invalidate drops cached entries under keys and tells connected dashboards.
func (s *Service) Invalidate(ctx context.Context, keys ...cache.Key) {
	if len(keys) == 0 {
		return
	}
	if s.cache != nil {
		if _, err := s.cache.Invalidate(ctx, keys...); err != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}
	if s.pub == nil {
		return
	}

	byTopic := make(map[string][]string)
	for _, k := range keys {
		topic := TopicFor(k)
		byTopic[topic] = append(byTopic[topic], k.String())
	}
	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	for _, t := range topics {
		s.pub.Publish(t, byTopic[t])
	}
}

// fetch serves key from the cache when fresh, otherwise loads and stores it.
// Cache failures degrade to an uncached load.
func fetch[T any](ctx context.Context, s *Service, sess *auth.Session, key cache.Key, stale time.Duration, load func(ctx context.Context, token string, out *T) error) (*T, error) {
	subject := sess.Subject()
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, subject, key)
		if err != nil {
			s.logger.Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
		}
		if ok {
			var out T
			if err := json.Unmarshal(data, &out); err == nil {
				return &out, nil
			}
		}
	}

	var out T
	if err := load(ctx, sess.Token, &out); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, subject, key, data, stale); err != nil {
				s.logger.Warn("cache write failed", zap.String("key", key.String()), zap.Error(err))
			}
		}
	}
	return &out, nil
}

// --- Storage locations ---

func (s *Service) StorageLocations(ctx context.Context, sess *auth.Session) (*model.StorageLocationList, error) {
	return fetch(ctx, s, sess, storageLocationsKey(), staleDefault, func(ctx context.Context, token string, out *model.StorageLocationList) error {
		return s.storage.GetJSON(ctx, token, "/admin/locations", nil, out)
	})
}

// AvailableLocations lists locations with room for capacity more boxes; zero
// means any free space.
func (s *Service) AvailableLocations(ctx context.Context, sess *auth.Session, capacity int) (*model.StorageLocationList, error) {
	return fetch(ctx, s, sess, availableLocationsKey(capacity), staleDefault, func(ctx context.Context, token string, out *model.StorageLocationList) error {
		var q url.Values
		if capacity > 0 {
			q = url.Values{"capacity": {strconv.Itoa(capacity)}}
		}
		return s.storage.GetJSON(ctx, token, "/admin/locations/available", q, out)
	})
}

func (s *Service) LocationStats(ctx context.Context, sess *auth.Session, id string) (*model.StorageLocationStats, error) {
	if id == "" {
		return nil, nil
	}
	return fetch(ctx, s, sess, locationStatsKey(id), staleShort, func(ctx context.Context, token string, out *model.StorageLocationStats) error {
		return s.storage.GetJSON(ctx, token, backend.Path("/admin/locations", id, "stats"), nil, out)
	})
}

func (s *Service) CreateLocation(ctx context.Context, sess *auth.Session, req model.CreateStorageLocationRequest) (*model.StorageLocation, error) {
	var out model.StorageLocation
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPost, "/admin/locations", req, &out); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, LocationCreated()...)
	return &out, nil
}

func (s *Service) UpdateLocation(ctx context.Context, sess *auth.Session, id string, req model.UpdateStorageLocationRequest) (*model.StorageLocation, error) {
	var out model.StorageLocation
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPatch, backend.Path("/admin/locations", id), req, &out); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, LocationUpdated(id)...)
	return &out, nil
}

func (s *Service) DeleteLocation(ctx context.Context, sess *auth.Session, id string) error {
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodDelete, backend.Path("/admin/locations", id), nil, nil); err != nil {
		return err
	}
	s.Invalidate(ctx, LocationDeleted(id)...)
	return nil
}

func (s *Service) TransferBoxes(ctx context.Context, sess *auth.Session, req model.TransferBoxesRequest) (*model.SuccessResponse, error) {
	var out model.SuccessResponse
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPost, "/admin/locations/transfer", req, &out); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, BoxesTransferred()...)
	return &out, nil
}

// --- Users ---

func (s *Service) Users(ctx context.Context, sess *auth.Session, page, limit int) (*model.PaginatedUsers, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return fetch(ctx, s, sess, usersKey(page, limit), staleDefault, func(ctx context.Context, token string, out *model.PaginatedUsers) error {
		q := url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(limit)}}
		return s.users.GetJSON(ctx, token, "/admin/users", q, out)
	})
}

// User returns nil without error when the user service does not know id.
func (s *Service) User(ctx context.Context, sess *auth.Session, id string) (*model.User, error) {
	if id == "" {
		return nil, nil
	}
	u, err := fetch(ctx, s, sess, userKey(id), staleDefault, func(ctx context.Context, token string, out *model.User) error {
		return s.users.GetJSON(ctx, token, backend.Path("/admin/users", id), nil, out)
	})
	if backend.IsNotFound(err) {
		return nil, nil
	}
	return u, err
}

func (s *Service) UserByEmail(ctx context.Context, sess *auth.Session, email string) (*model.User, error) {
	if email == "" {
		return nil, nil
	}
	u, err := fetch(ctx, s, sess, userByEmailKey(email), staleDefault, func(ctx context.Context, token string, out *model.User) error {
		return s.users.SendJSON(ctx, token, http.MethodPost, "/admin/users/by-email", map[string]string{"email": email}, out)
	})
	if backend.IsNotFound(err) {
		return nil, nil
	}
	return u, err
}

// --- Orders ---

func (s *Service) OrdersByStatus(ctx context.Context, sess *auth.Session, status string) (*model.OrdersResponse, error) {
	if status == "" {
		return &model.OrdersResponse{}, nil
	}
	return fetch(ctx, s, sess, ordersByStatusKey(status), staleDefault, func(ctx context.Context, token string, out *model.OrdersResponse) error {
		return s.storage.GetJSON(ctx, token, backend.Path("/admin/orders/status", status), nil, out)
	})
}

func (s *Service) PendingOrders(ctx context.Context, sess *auth.Session) (*model.OrdersResponse, error) {
	return fetch(ctx, s, sess, pendingOrdersKey(), staleDefault, func(ctx context.Context, token string, out *model.OrdersResponse) error {
		return s.storage.GetJSON(ctx, token, "/admin/orders/pending", nil, out)
	})
}

func (s *Service) UserOrders(ctx context.Context, sess *auth.Session, userID string, f model.OrderFilter) (*model.OrdersResponse, error) {
	if userID == "" {
		return &model.OrdersResponse{}, nil
	}
	return fetch(ctx, s, sess, userOrdersKey(userID, f), staleDefault, func(ctx context.Context, token string, out *model.OrdersResponse) error {
		return s.storage.GetJSON(ctx, token, backend.Path("/admin/orders/user", userID), FilterQuery(f), out)
	})
}

func (s *Service) Order(ctx context.Context, sess *auth.Session, id string) (*model.OrderDetail, error) {
	if id == "" {
		return nil, nil
	}
	return fetch(ctx, s, sess, orderKey(id), staleDefault, func(ctx context.Context, token string, out *model.OrderDetail) error {
		return s.storage.GetJSON(ctx, token, backend.Path("/admin/orders", id), nil, out)
	})
}

func (s *Service) ApproveOrder(ctx context.Context, sess *auth.Session, id string, req model.ApproveOrderRequest) (*model.SuccessResponse, error) {
	var out model.SuccessResponse
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPost, backend.Path("/admin/orders", id, "approve"), req, &out); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, OrderReviewed(id)...)
	return &out, nil
}

func (s *Service) RejectOrder(ctx context.Context, sess *auth.Session, id string, req model.RejectOrderRequest) (*model.SuccessResponse, error) {
	var out model.SuccessResponse
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPost, backend.Path("/admin/orders", id, "reject"), req, &out); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, OrderReviewed(id)...)
	return &out, nil
}

func (s *Service) BatchIntake(ctx context.Context, sess *auth.Session, orderID string, req model.BatchIntakeRequest) (*model.SuccessResponse, error) {
	var out model.SuccessResponse
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPost, backend.Path("/admin/orders", orderID, "intake"), req, &out); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, IntakeRecorded(orderID)...)
	return &out, nil
}

// --- Slots ---

func (s *Service) Slots(ctx context.Context, sess *auth.Session, start, end string) (*model.SlotsResponse, error) {
	if start == "" || end == "" {
		return &model.SlotsResponse{}, nil
	}
	return fetch(ctx, s, sess, slotsKey(start, end), staleDefault, func(ctx context.Context, token string, out *model.SlotsResponse) error {
		req := model.SlotRangeRequest{StartDate: start, EndDate: end}
		return s.storage.SendJSON(ctx, token, http.MethodPost, "/admin/slots/all", req, out)
	})
}

func (s *Service) AvailableSlots(ctx context.Context, sess *auth.Session, slotType, start, end string) (*model.SlotsResponse, error) {
	if slotType == "" || start == "" || end == "" {
		return &model.SlotsResponse{}, nil
	}
	return fetch(ctx, s, sess, availableSlotsKey(slotType, start, end), staleShort, func(ctx context.Context, token string, out *model.SlotsResponse) error {
		req := model.SlotRangeRequest{SlotType: slotType, StartDate: start, EndDate: end}
		return s.storage.SendJSON(ctx, token, http.MethodPost, "/admin/slots/available", req, out)
	})
}

func (s *Service) CreateSlot(ctx context.Context, sess *auth.Session, req model.CreateSlotRequest) (*model.Slot, error) {
	var out model.Slot
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPost, "/admin/slots", req, &out); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, SlotsCreated()...)
	return &out, nil
}

func (s *Service) CreateBatchSlots(ctx context.Context, sess *auth.Session, req model.CreateBatchSlotsRequest) (*model.BatchSlotsResponse, error) {
	var out model.BatchSlotsResponse
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPost, "/admin/slots/batch", req, &out); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, SlotsCreated()...)
	return &out, nil
}

// UpdateSlot sends only changed fields; an empty update makes no request.
func (s *Service) UpdateSlot(ctx context.Context, sess *auth.Session, id string, req model.UpdateSlotRequest) error {
	if req.IsEmpty() {
		return nil
	}
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodPatch, backend.Path("/admin/slots", id), req, nil); err != nil {
		return err
	}
	s.Invalidate(ctx, SlotChanged(id)...)
	return nil
}

func (s *Service) DeleteSlot(ctx context.Context, sess *auth.Session, id string) error {
	if err := s.storage.SendJSON(ctx, sess.Token, http.MethodDelete, backend.Path("/admin/slots", id), nil, nil); err != nil {
		return err
	}
	s.Invalidate(ctx, SlotChanged(id)...)
	return nil
}
