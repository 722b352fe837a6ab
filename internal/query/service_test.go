package query

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sort-storage/admin/internal/auth"
	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/cache"
	"github.com/sort-storage/admin/internal/model"
)

type call struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Token  string
}

type fakeUpstream struct {
	mu        sync.Mutex
	calls     []call
	responses map[string]any
	errs      map[string]error
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{responses: map[string]any{}, errs: map[string]error{}}
}

func (f *fakeUpstream) respond(path string, out any) error {
	if err, ok := f.errs[path]; ok {
		return err
	}
	resp, ok := f.responses[path]
	if !ok || out == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeUpstream) GetJSON(_ context.Context, token, path string, q url.Values, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: http.MethodGet, Path: path, Query: q, Token: token})
	return f.respond(path, out)
}

func (f *fakeUpstream) SendJSON(_ context.Context, token, method, path string, in, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: method, Path: path, Body: in, Token: token})
	return f.respond(path, out)
}

func (f *fakeUpstream) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeUpstream) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type published struct {
	topic string
	keys  []string
}

type fakePublisher struct {
	events []published
}

func (p *fakePublisher) Publish(topic string, keys []string) {
	p.events = append(p.events, published{topic: topic, keys: keys})
}

func session(subject string) *auth.Session {
	return &auth.Session{Token: "tok-" + subject, Claims: &auth.Claims{AccountType: "admin"}}
}

func adminSession(subject string) *auth.Session {
	s := session(subject)
	s.Claims.Subject = subject
	return s
}

func newService(t *testing.T) (*Service, *fakeUpstream, *fakeUpstream, *fakePublisher) {
	t.Helper()
	storage, users := newFakeUpstream(), newFakeUpstream()
	pub := &fakePublisher{}
	return NewService(storage, users, cache.New(cache.NewMemoryStore()), pub, nil), storage, users, pub
}

func TestStorageLocations_CachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	svc, storage, _, pub := newService(t)
	storage.responses["/admin/locations"] = model.StorageLocationList{
		Locations: []model.StorageLocation{{ID: "l1", Name: "North"}},
		Total:     1,
	}
	sess := adminSession("alice")

	first, err := svc.StorageLocations(ctx, sess)
	require.NoError(t, err)
	second, err := svc.StorageLocations(ctx, sess)
	require.NoError(t, err)

	assert.Equal(t, 1, storage.count())
	assert.Equal(t, first, second)
	assert.Equal(t, "tok-alice", storage.last().Token)

	storage.responses["/admin/locations"] = model.StorageLocationList{Total: 2}
	_, err = svc.CreateLocation(ctx, sess, model.CreateStorageLocationRequest{Name: "South", Address: "1 Road", Capacity: 10})
	require.NoError(t, err)

	third, err := svc.StorageLocations(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Total)
	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicLocations, pub.events[0].topic)
	assert.Equal(t, []string{"storage-locations", "storage-locations/available"}, pub.events[0].keys)
}

func TestQueries_CacheIsPerSubject(t *testing.T) {
	ctx := context.Background()
	svc, storage, _, _ := newService(t)
	storage.responses["/admin/orders/pending"] = model.OrdersResponse{}

	_, err := svc.PendingOrders(ctx, adminSession("alice"))
	require.NoError(t, err)
	_, err = svc.PendingOrders(ctx, adminSession("bob"))
	require.NoError(t, err)

	assert.Equal(t, 2, storage.count())
}

func TestUser_NotFoundIsNil(t *testing.T) {
	ctx := context.Background()
	svc, _, users, _ := newService(t)
	users.errs["/admin/users/ghost"] = &backend.StatusError{Status: http.StatusNotFound, Message: "not found"}

	u, err := svc.User(ctx, adminSession("alice"), "ghost")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUser_OtherErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	svc, _, users, _ := newService(t)
	users.errs["/admin/users/u1"] = &backend.StatusError{Status: http.StatusInternalServerError}

	_, err := svc.User(ctx, adminSession("alice"), "u1")
	assert.Error(t, err)
}

func TestEmptyIdentifiersShortCircuit(t *testing.T) {
	ctx := context.Background()
	svc, storage, users, _ := newService(t)
	sess := adminSession("alice")

	u, err := svc.User(ctx, sess, "")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = svc.UserByEmail(ctx, sess, "")
	require.NoError(t, err)
	assert.Nil(t, u)

	o, err := svc.Order(ctx, sess, "")
	require.NoError(t, err)
	assert.Nil(t, o)

	orders, err := svc.UserOrders(ctx, sess, "", model.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders.Orders)

	slots, err := svc.Slots(ctx, sess, "", "2025-01-01")
	require.NoError(t, err)
	assert.Empty(t, slots.Slots)

	slots, err = svc.AvailableSlots(ctx, sess, "", "2025-01-01", "2025-01-02")
	require.NoError(t, err)
	assert.Empty(t, slots.Slots)

	assert.Zero(t, storage.count())
	assert.Zero(t, users.count())
}

func TestUsers_DefaultsAndQuery(t *testing.T) {
	ctx := context.Background()
	svc, _, users, _ := newService(t)
	users.responses["/admin/users"] = model.PaginatedUsers{Total: 41, Page: 1, Limit: 20, TotalPages: 3}

	got, err := svc.Users(ctx, adminSession("alice"), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalPages)
	assert.Equal(t, "1", users.last().Query.Get("page"))
	assert.Equal(t, "20", users.last().Query.Get("limit"))
}

func TestUserOrders_FilterQueryAndKey(t *testing.T) {
	ctx := context.Background()
	svc, storage, _, _ := newService(t)
	sess := adminSession("alice")
	f := model.OrderFilter{Status: "pending", Page: 2, Limit: 50}

	_, err := svc.UserOrders(ctx, sess, "u 1", f)
	require.NoError(t, err)

	c := storage.last()
	assert.Equal(t, "/admin/orders/user/u%201", c.Path)
	assert.Equal(t, "50", c.Query.Get("page_size"))
	assert.Equal(t, "pending", c.Query.Get("status"))
	assert.Empty(t, c.Query.Get("order_type"))

	_, err = svc.UserOrders(ctx, sess, "u 1", model.OrderFilter{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, 2, storage.count(), "different filters are different cache entries")
}

func TestOrdersByStatus_EscapesStatus(t *testing.T) {
	svc, storage, _, _ := newService(t)
	_, err := svc.OrdersByStatus(context.Background(), adminSession("alice"), "in progress")
	require.NoError(t, err)
	assert.Equal(t, "/admin/orders/status/in%20progress", storage.last().Path)
}

func TestApproveOrder_InvalidatesOrderKeys(t *testing.T) {
	ctx := context.Background()
	svc, storage, _, pub := newService(t)
	sess := adminSession("alice")
	storage.responses["/admin/orders/o1"] = model.OrderDetail{OrderSummary: model.OrderSummary{ID: "o1", Status: "pending"}}
	storage.responses["/admin/orders/pending"] = model.OrdersResponse{Orders: []model.OrderSummary{{ID: "o1"}}}

	_, err := svc.Order(ctx, sess, "o1")
	require.NoError(t, err)
	_, err = svc.PendingOrders(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 2, storage.count())

	_, err = svc.ApproveOrder(ctx, sess, "o1", model.ApproveOrderRequest{Notes: "Order approved by admin"})
	require.NoError(t, err)
	assert.Equal(t, "/admin/orders/o1/approve", storage.last().Path)

	_, err = svc.Order(ctx, sess, "o1")
	require.NoError(t, err)
	_, err = svc.PendingOrders(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 5, storage.count())

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicOrders, pub.events[0].topic)
	assert.Equal(t, []string{"orders", "order/o1", "operations", "admin-orders"}, pub.events[0].keys)
}

func TestFailedMutationDoesNotInvalidate(t *testing.T) {
	ctx := context.Background()
	svc, storage, _, pub := newService(t)
	storage.errs["/admin/orders/o1/reject"] = &backend.StatusError{Status: http.StatusConflict}

	_, err := svc.RejectOrder(ctx, adminSession("alice"), "o1", model.RejectOrderRequest{Reason: "Reject"})
	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestBatchIntake_PublishesOnTwoTopics(t *testing.T) {
	svc, _, _, pub := newService(t)
	_, err := svc.BatchIntake(context.Background(), adminSession("alice"), "o1", model.BatchIntakeRequest{})
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, TopicLocations, pub.events[0].topic)
	assert.Equal(t, TopicOrders, pub.events[1].topic)
	assert.Equal(t, []string{"order/o1", "order-boxes/o1", "orders", "admin-orders"}, pub.events[1].keys)
}

func TestUpdateSlot_EmptyUpdateMakesNoRequest(t *testing.T) {
	ctx := context.Background()
	svc, storage, _, pub := newService(t)

	require.NoError(t, svc.UpdateSlot(ctx, adminSession("alice"), "s1", model.UpdateSlotRequest{}))
	assert.Zero(t, storage.count())
	assert.Empty(t, pub.events)

	capacity := 4
	require.NoError(t, svc.UpdateSlot(ctx, adminSession("alice"), "s1", model.UpdateSlotRequest{MaxCapacity: &capacity}))
	assert.Equal(t, http.MethodPatch, storage.last().Method)
	assert.Equal(t, "/admin/slots/s1", storage.last().Path)
	assert.Equal(t, []string{"slot/s1", "available-slots", "all-slots"}, pub.events[0].keys)
}

func TestSlots_RangeRequestAndStaleTimes(t *testing.T) {
	ctx := context.Background()
	svc, storage, _, _ := newService(t)
	sess := adminSession("alice")

	_, err := svc.Slots(ctx, sess, "2025-02-23T00:00:00.000Z", "2025-04-05T00:00:00.000Z")
	require.NoError(t, err)
	c := storage.last()
	assert.Equal(t, "/admin/slots/all", c.Path)
	assert.Equal(t, http.MethodPost, c.Method)
	assert.Equal(t, model.SlotRangeRequest{StartDate: "2025-02-23T00:00:00.000Z", EndDate: "2025-04-05T00:00:00.000Z"}, c.Body)

	_, err = svc.AvailableSlots(ctx, sess, "pickup", "2025-03-01", "2025-03-02")
	require.NoError(t, err)
	assert.Equal(t, "/admin/slots/available", storage.last().Path)
}

func TestTransferBoxes_InvalidatesLocationStats(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	storage := newFakeUpstream()
	svc := NewService(storage, newFakeUpstream(), cache.New(store), nil, nil)
	sess := adminSession("alice")

	_, err := svc.LocationStats(ctx, sess, "l1")
	require.NoError(t, err)
	_, err = svc.LocationStats(ctx, sess, "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, storage.count())
	assert.Equal(t, "/admin/locations/l1/stats", storage.last().Path)

	_, err = svc.TransferBoxes(ctx, sess, model.TransferBoxesRequest{BoxIDs: []string{"b1"}, TargetLocationID: "l2", ScheduledDate: time.Now()})
	require.NoError(t, err)
	_, err = svc.LocationStats(ctx, sess, "l1")
	require.NoError(t, err)
	assert.Equal(t, 3, storage.count())
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, TopicOrders, TopicFor(cache.K(KeyOrderBoxes, "o1")))
	assert.Equal(t, TopicLocations, TopicFor(cache.K(KeyUserBoxes)))
	assert.Equal(t, TopicSlots, TopicFor(cache.K(KeySlot, "s1")))
	assert.Equal(t, TopicUsers, TopicFor(cache.K(KeyAdminUser, "u1")))
	assert.Equal(t, TopicMisc, TopicFor(cache.K("something-else")))
	assert.Equal(t, TopicMisc, TopicFor(nil))
}

func TestPendingQueueAndStatusListingAreCachedApart(t *testing.T) {
	ctx := context.Background()
	svc, storage, _, _ := newService(t)
	storage.responses["/admin/orders/pending"] = model.OrdersResponse{Orders: []model.OrderSummary{{ID: "queued"}}}
	storage.responses["/admin/orders/status/pending"] = model.OrdersResponse{Orders: []model.OrderSummary{{ID: "listed"}}}
	sess := adminSession("alice")

	queue, err := svc.PendingOrders(ctx, sess)
	require.NoError(t, err)
	listed, err := svc.OrdersByStatus(ctx, sess, "pending")
	require.NoError(t, err)

	assert.Equal(t, 2, storage.count())
	assert.Equal(t, "queued", queue.Orders[0].ID)
	assert.Equal(t, "listed", listed.Orders[0].ID)
}
