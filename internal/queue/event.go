// Package queue defines the notification payloads exchanged over the message
// broker and the background consumer that delivers them to the webhook.
package queue

// Webhook action tags.  Completion, unrepairable and ready-for-pickup
// transitions get their own tags so downstream automation can message the
// customer differently; every other transition is a generic status update.
const (
	ActionNewRepair      = "new_repair"
	ActionStatusUpdate   = "status_update"
	ActionRepairComplete = "repair_completed"
	ActionUnrepairable   = "repair_unrepairable"
	ActionReadyForPickup = "ready_for_pickup"
)

// RepairEvent is published whenever a repair is created or its status
// changes.  It carries a flat record of case fields plus the customer-facing
// tracking link so downstream consumers need not query the primary database.
type RepairEvent struct {
	Action      string `json:"action"`
	RepairID    string `json:"repairId"`
	Status      string `json:"status"`
	Customer    string `json:"customer"`
	Phone       string `json:"phone"`
	Device      string `json:"device"`
	Issue       string `json:"issue,omitempty"`
	Branch      string `json:"branch"`
	Warranty    string `json:"warranty,omitempty"`
	Cost        string `json:"cost"`
	Date        string `json:"date,omitempty"`
	Notes       string `json:"notes,omitempty"`
	QRCodeURL   string `json:"qrCodeUrl,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	TrackingURL string `json:"trackingUrl"`
}
