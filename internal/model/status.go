// Package model defines the domain entities and the closed status, branch
// and role tables that the rest of the application consults.  Statuses and
// roles are tagged enum types rather than free strings so that adding a new
// value is a compile-visible change at every switch that consumes it.
package model

// Status is the position of a repair in its lifecycle, from branch intake to
// customer pickup.  It is stored in the database under its enum name and
// displayed to users under its Arabic label.
type Status string

const (
	// Branch reception statuses, one per physical branch.
	StatusReceivedAqd     Status = "RECEIVED_AQD"
	StatusReceivedBabylon Status = "RECEIVED_BABYLON"
	StatusReceivedCamp    Status = "RECEIVED_CAMP"

	// Repair center statuses.
	StatusReceivedCenter Status = "RECEIVED_CENTER"
	StatusInRepair       Status = "IN_REPAIR"
	StatusRepairComplete Status = "REPAIR_COMPLETE"
	StatusUnrepairable   Status = "UNREPAIRABLE"

	// Return statuses.
	StatusReadyForPickup      Status = "READY_FOR_PICKUP"
	StatusDeliveredToCustomer Status = "DELIVERED_TO_CUSTOMER"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusReceivedAqd,
	StatusReceivedBabylon,
	StatusReceivedCamp,
	StatusReceivedCenter,
	StatusInRepair,
	StatusRepairComplete,
	StatusUnrepairable,
	StatusReadyForPickup,
	StatusDeliveredToCustomer,
}

// Label returns the Arabic display label for the status.  The switch is
// exhaustive over the closed set; an unknown value falls back to the raw
// enum name so a corrupt row is visible rather than blank.
func (s Status) Label() string {
	switch s {
	case StatusReceivedAqd:
		return "تم استلام في عكد النصارى"
	case StatusReceivedBabylon:
		return "تم استلام في بابلون مول"
	case StatusReceivedCamp:
		return "تم استلام في كمب سارة"
	case StatusReceivedCenter:
		return "تم استلام في مركز الصيانة"
	case StatusInRepair:
		return "قيد الصيانة حاليا"
	case StatusRepairComplete:
		return "مكتمل الصيانة"
	case StatusUnrepairable:
		return "غير قابل للصيانة"
	case StatusReadyForPickup:
		return "جاهز للاستلام"
	case StatusDeliveredToCustomer:
		return "تم استلام من قبل الزبون"
	}
	return string(s)
}

// ParseStatusLabel maps an Arabic display label back to its status value.
// The second return value reports whether the label is known.
func ParseStatusLabel(label string) (Status, bool) {
	for _, s := range AllStatuses {
		if s.Label() == label {
			return s, true
		}
	}
	return "", false
}

// ParseStatus maps a stored enum name to a Status.
func ParseStatus(v string) (Status, bool) {
	for _, s := range AllStatuses {
		if string(s) == v {
			return s, true
		}
	}
	return "", false
}

// Branch is one of the three fixed physical intake locations.  Branches are
// stored and displayed under their Arabic names.
type Branch string

const (
	BranchAqd     Branch = "عكد النصارى"
	BranchBabylon Branch = "بابلون مول"
	BranchCamp    Branch = "كمب سارة"
)

// AllBranches lists the fixed branches.  Order matters: the first entry is
// the documented fallback for InitialStatus.
var AllBranches = []Branch{BranchAqd, BranchBabylon, BranchCamp}

// ParseBranch reports whether v names a known branch.
func ParseBranch(v string) (Branch, bool) {
	for _, b := range AllBranches {
		if string(b) == v {
			return b, true
		}
	}
	return "", false
}

// InitialStatus returns the reception status for a branch.  Unrecognized
// branches are a caller validation error caught upstream; if looked up
// anyway the first branch's status is returned as a deterministic fallback.
func InitialStatus(b Branch) Status {
	switch b {
	case BranchAqd:
		return StatusReceivedAqd
	case BranchBabylon:
		return StatusReceivedBabylon
	case BranchCamp:
		return StatusReceivedCamp
	}
	return StatusReceivedAqd
}

// CostCenter classifies who bears the repair cost.  Empty means unset.
type CostCenter string

const (
	CostCenterCompany  CostCenter = "Company"
	CostCenterCustomer CostCenter = "Customer"
)

// ParseCostCenter accepts "Company", "Customer" or "" (clearing).
func ParseCostCenter(v string) (CostCenter, bool) {
	switch CostCenter(v) {
	case CostCenterCompany, CostCenterCustomer, "":
		return CostCenter(v), true
	}
	return "", false
}

// Label returns the Arabic display label for a cost center.
func (c CostCenter) Label() string {
	switch c {
	case CostCenterCompany:
		return "الشركة"
	case CostCenterCustomer:
		return "الزبون"
	}
	return ""
}
