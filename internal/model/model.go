// Package model holds the JSON shapes exchanged with the storage and user
// services. The services own these records; the dashboard only reads them
// and builds requests.
package model

import "time"

// --- Common ---

type SuccessResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Field   string            `json:"field,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type Address struct {
	Street  string `json:"street"`
	ZipCode string `json:"zip_code"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Dimensions struct {
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// --- Users ---

type User struct {
	ID            string    `json:"id"`
	Auth0Sub      string    `json:"auth0_sub"`
	Email         string    `json:"email"`
	AccountType   string    `json:"account_type"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	AddressLine1  string    `json:"address_line_1"`
	AddressLine2  string    `json:"address_line_2"`
	City          string    `json:"city"`
	PostalCode    string    `json:"postal_code"`
	Country       string    `json:"country"`
	PhoneNumber   string    `json:"phone_number"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type PaginatedUsers struct {
	Users      []User `json:"users"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"total_pages"`
}

// --- Orders ---

// OrderSummary is a row of the order list endpoints.
type OrderSummary struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	OrderType     string     `json:"order_type"`
	Status        string     `json:"status"`
	BoxCount      int        `json:"box_count"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	PhotoURLs     []string   `json:"photo_urls"`
	CreatedAt     time.Time  `json:"created_at"`
}

type OrdersResponse struct {
	Orders []OrderSummary `json:"orders"`
}

type BoxInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status"`
}

type Operation struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id,omitempty"`
	BoxID         string     `json:"box_id,omitempty"`
	OperationType string     `json:"operation_type"`
	Context       string     `json:"context"`
	Status        string     `json:"status"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type OrderDetail struct {
	OrderSummary
	Address    *Address          `json:"address,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	Boxes      []BoxInfo         `json:"boxes,omitempty"`
	Operations []Operation       `json:"operations,omitempty"`
	ExtraData  map[string]string `json:"extra_data,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// OrderFilter narrows the per-user order listing.
type OrderFilter struct {
	Status    string
	OrderType string
	Page      int
	Limit     int
}

type ApproveOrderRequest struct {
	Notes         string     `json:"notes,omitempty"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
}

type RejectOrderRequest struct {
	Reason string `json:"reason"`
}

// --- Intake ---

type IntakeBox struct {
	VerifiedDimensions Dimensions `json:"verified_dimensions"`
	Weight             float64    `json:"weight"`
	LocationID         string     `json:"location_id"`
	Notes              string     `json:"notes,omitempty"`
}

type BatchIntakeRequest struct {
	Boxes []IntakeBox `json:"boxes"`
}

// --- Storage locations ---

type StorageLocation struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	Capacity        int       `json:"capacity"`
	CurrentLoad     int       `json:"current_load"`
	AvailableSpace  int       `json:"available_space"`
	UtilizationRate float64   `json:"utilization_rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type StorageLocationList struct {
	Locations []StorageLocation `json:"locations"`
	Total     int               `json:"total"`
}

type StorageLocationStats struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	TotalBoxes         int            `json:"total_boxes"`
	BoxesByStatus      map[string]int `json:"boxes_by_status"`
	UtilizationRate    float64        `json:"utilization_rate"`
	AverageStorageDays float64        `json:"average_storage_days"`
	IncomingOperations int            `json:"incoming_operations"`
	OutgoingOperations int            `json:"outgoing_operations"`
}

type CreateStorageLocationRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Capacity int    `json:"capacity"`
}

type UpdateStorageLocationRequest struct {
	Name     *string `json:"name,omitempty"`
	Address  *string `json:"address,omitempty"`
	Capacity *int    `json:"capacity,omitempty"`
}

type TransferBoxesRequest struct {
	BoxIDs           []string  `json:"box_ids"`
	TargetLocationID string    `json:"target_location_id"`
	Reason           string    `json:"reason"`
	ScheduledDate    time.Time `json:"scheduled_date"`
}

// --- Slots ---

type Slot struct {
	ID                string    `json:"id"`
	SlotType          string    `json:"slot_type"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	MaxCapacity       int       `json:"max_capacity"`
	CurrentCapacity   int       `json:"current_capacity"`
	AvailableCapacity int       `json:"available_capacity"`
	IsAvailable       bool      `json:"is_available"`
}

type SlotsResponse struct {
	Slots []Slot `json:"slots"`
}

type SlotRangeRequest struct {
	SlotType  string `json:"slot_type,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type CreateSlotRequest struct {
	SlotType    string    `json:"slot_type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxCapacity int       `json:"max_capacity"`
}

type CreateBatchSlotsRequest struct {
	SlotType    string   `json:"slot_type"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	TimeSlots   []string `json:"time_slots"`
	MaxCapacity int      `json:"max_capacity"`
	Weekdays    []int    `json:"weekdays"`
}

type BatchSlotsResponse struct {
	SlotIDs []string `json:"slot_ids"`
}

type UpdateSlotRequest struct {
	MaxCapacity *int `json:"max_capacity,omitempty"`
}

// IsEmpty reports whether the update carries no changed field.
func (r UpdateSlotRequest) IsEmpty() bool {
	return r.MaxCapacity == nil
}
