package enum

import "strings"

// ── Group A: Lifecycles owned by the storage service ──

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusScheduled  = "scheduled"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

const (
	BoxStatusInTransit     = "in_transit"
	BoxStatusPendingPack   = "pending_pack"
	BoxStatusPendingPickup = "pending_pickup"
	BoxStatusStored        = "stored"
	BoxStatusReturned      = "returned"
	BoxStatusDisposed      = "disposed"
)

const (
	OperationStatusScheduled  = "scheduled"
	OperationStatusInProgress = "in_progress"
	OperationStatusCompleted  = "completed"
	OperationStatusCancelled  = "cancelled"
)

// ── Group B: Types ──

const (
	OrderTypeSelfDropoff    = "self_dropoff"
	OrderTypeReadyForPickup = "ready_for_pickup"
	OrderTypeBoxProvided    = "box_provided"
)

const (
	SlotTypeDropoff = "dropoff"
	SlotTypePickup  = "pickup"
	SlotTypeReturn  = "return"
)

const (
	OperationTypeApproval  = "approval"
	OperationTypeRejection = "rejection"
	OperationTypeShipment  = "shipment"
	OperationTypePickup    = "pickup"
	OperationTypeDropoff   = "dropoff"
	OperationTypeIntake    = "intake"
	OperationTypeBoxReturn = "box_return"
	OperationTypeRelocate  = "relocate"
)

// ── Group C: Accounts (issued by the identity provider) ──

const (
	AccountTypeAdmin   = "admin"
	AccountTypeRegular = "regular"
)

// ── Labels ──

func OrderTypeLabel(t string) string {
	switch t {
	case OrderTypeSelfDropoff:
		return "Self Drop-off"
	case OrderTypeReadyForPickup:
		return "Ready for Pickup"
	case OrderTypeBoxProvided:
		return "Box Provided"
	}
	return t
}

func SlotTypeLabel(t string) string {
	switch t {
	case SlotTypeDropoff:
		return "Drop-off"
	case SlotTypePickup:
		return "Pick-up"
	case SlotTypeReturn:
		return "Return"
	}
	return "Unknown"
}

// SlotTypeAbbreviation is the single letter shown on crowded calendar cells.
func SlotTypeAbbreviation(t string) string {
	switch t {
	case SlotTypeDropoff:
		return "D"
	case SlotTypePickup:
		return "P"
	case SlotTypeReturn:
		return "R"
	}
	return "?"
}

func IsValidSlotType(t string) bool {
	switch t {
	case SlotTypeDropoff, SlotTypePickup, SlotTypeReturn:
		return true
	}
	return false
}

func OperationTypeLabel(t string) string {
	switch t {
	case OperationTypeApproval:
		return "Approval"
	case OperationTypeRejection:
		return "Rejection"
	case OperationTypeShipment:
		return "Shipment"
	case OperationTypePickup:
		return "Pickup"
	case OperationTypeDropoff:
		return "Drop-off"
	case OperationTypeIntake:
		return "Intake"
	case OperationTypeBoxReturn:
		return "Box Return"
	case OperationTypeRelocate:
		return "Relocate"
	}
	return t
}

func OperationStatusLabel(s string) string {
	switch s {
	case OperationStatusScheduled:
		return "Scheduled"
	case OperationStatusInProgress:
		return "In Progress"
	case OperationStatusCompleted:
		return "Completed"
	case OperationStatusCancelled:
		return "Cancelled"
	}
	return s
}

// StatusTone maps an order, box or operation status onto a small set of
// badge tones used by the templates.
func StatusTone(status string) string {
	switch strings.ToLower(status) {
	case OrderStatusPending:
		return "pending"
	case OrderStatusProcessing, OperationStatusInProgress, BoxStatusInTransit:
		return "active"
	case OrderStatusCompleted, BoxStatusStored:
		return "done"
	case OrderStatusCancelled, BoxStatusDisposed:
		return "danger"
	case OrderStatusScheduled:
		return "scheduled"
	}
	return "neutral"
}
