package query

import (
	"net/url"
	"strconv"

	"github.com/sort-storage/admin/internal/cache"
	"github.com/sort-storage/admin/internal/model"
)

// Root key components.
const (
	KeyStorageLocations     = "storage-locations"
	KeyStorageLocation      = "storage-location"
	KeyStorageLocationStats = "storage-location-stats"
	KeyUserBoxes            = "user-boxes"
	KeyAdminUsers           = "admin-users"
	KeyAdminUser            = "admin-user"
	KeyAdminUserByEmail     = "admin-user-by-email"
	KeyAdminOrders          = "admin-orders"
	KeyOrders               = "orders"
	KeyOrder                = "order"
	KeyOrderBoxes           = "order-boxes"
	KeyOperations           = "operations"
	KeyAllSlots             = "all-slots"
	KeyAvailableSlots       = "available-slots"
	KeySlot                 = "slot"
)

// Live hub topics.
const (
	TopicOrders    = "orders"
	TopicLocations = "locations"
	TopicSlots     = "slots"
	TopicUsers     = "users"
	TopicMisc      = "misc"
)

var Topics = []string{TopicOrders, TopicLocations, TopicSlots, TopicUsers, TopicMisc}

// TopicFor maps a key onto the hub topic its invalidation is published on.
func TopicFor(key cache.Key) string {
	if len(key) == 0 {
		return TopicMisc
	}
	switch key[0] {
	case KeyAdminOrders, KeyOrders, KeyOrder, KeyOrderBoxes, KeyOperations:
		return TopicOrders
	case KeyStorageLocations, KeyStorageLocation, KeyStorageLocationStats, KeyUserBoxes:
		return TopicLocations
	case KeyAllSlots, KeyAvailableSlots, KeySlot:
		return TopicSlots
	case KeyAdminUsers, KeyAdminUser, KeyAdminUserByEmail:
		return TopicUsers
	}
	return TopicMisc
}

// --- Invalidation sets, one per mutation ---

func LocationCreated() []cache.Key {
	return []cache.Key{
		cache.K(KeyStorageLocations),
		cache.K(KeyStorageLocations, "available"),
	}
}

func LocationUpdated(id string) []cache.Key {
	return append([]cache.Key{cache.K(KeyStorageLocation, id)}, LocationCreated()...)
}

func LocationDeleted(id string) []cache.Key {
	return LocationUpdated(id)
}

func BoxesTransferred() []cache.Key {
	return []cache.Key{
		cache.K(KeyStorageLocations),
		cache.K(KeyStorageLocations, "available"),
		cache.K(KeyStorageLocationStats),
		cache.K(KeyUserBoxes),
	}
}

func IntakeRecorded(orderID string) []cache.Key {
	return []cache.Key{
		cache.K(KeyOrder, orderID),
		cache.K(KeyOrderBoxes, orderID),
		cache.K(KeyOrders),
		cache.K(KeyAdminOrders),
		cache.K(KeyStorageLocations),
		cache.K(KeyStorageLocations, "available"),
	}
}

func OrderReviewed(orderID string) []cache.Key {
	return []cache.Key{
		cache.K(KeyOrders),
		cache.K(KeyOrder, orderID),
		cache.K(KeyOperations),
		cache.K(KeyAdminOrders),
	}
}

// OrderUpdated covers the generic PATCH on an order.
func OrderUpdated(orderID string) []cache.Key {
	return OrderReviewed(orderID)
}

func SlotsCreated() []cache.Key {
	return []cache.Key{
		cache.K(KeyAvailableSlots),
		cache.K(KeyAllSlots),
	}
}

func SlotChanged(id string) []cache.Key {
	return append([]cache.Key{cache.K(KeySlot, id)}, SlotsCreated()...)
}

// --- Query keys ---

func storageLocationsKey() cache.Key { return cache.K(KeyStorageLocations) }

func availableLocationsKey(capacity int) cache.Key {
	return cache.K(KeyStorageLocations, "available", strconv.Itoa(capacity))
}

func locationStatsKey(id string) cache.Key { return cache.K(KeyStorageLocationStats, id) }

func usersKey(page, limit int) cache.Key {
	return cache.K(KeyAdminUsers, strconv.Itoa(page), strconv.Itoa(limit))
}

func userKey(id string) cache.Key           { return cache.K(KeyAdminUser, id) }
func userByEmailKey(email string) cache.Key { return cache.K(KeyAdminUserByEmail, email) }
func ordersByStatusKey(s string) cache.Key  { return cache.K(KeyAdminOrders, s) }
func orderKey(id string) cache.Key          { return cache.K(KeyOrder, id) }

// pendingOrdersKey belongs to the pending queue endpoint, a different
// upstream call from the "pending" status listing.
func pendingOrdersKey() cache.Key { return cache.K(KeyAdminOrders, "queue", "pending") }

func userOrdersKey(userID string, f model.OrderFilter) cache.Key {
	return cache.K(KeyAdminOrders, userID, FilterQuery(f).Encode())
}

func slotsKey(start, end string) cache.Key { return cache.K(KeyAllSlots, start, end) }

func availableSlotsKey(slotType, start, end string) cache.Key {
	return cache.K(KeyAvailableSlots, slotType, start, end)
}

// FilterQuery renders the per-user order filter the way the storage service
// expects it; limit travels as page_size.
func FilterQuery(f model.OrderFilter) url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.OrderType != "" {
		q.Set("order_type", f.OrderType)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("page_size", strconv.Itoa(f.Limit))
	}
	return q
}
