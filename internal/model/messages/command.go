package messages

import "time"

const ActionToggle = "toggle"

// ApplianceCommand is consumed from greenhouse/<id>/command. ID is optional;
// without it the payload hash is used for deduplication.
type ApplianceCommand struct {
	ID           string `json:"id,omitempty"`
	GreenhouseID int    `json:"greenhouse_id"`
	ApplianceID  int    `json:"appliance_id"`
	Action       string `json:"action"`
}

// ApplianceResultEvent is published on greenhouse/<id>/result once a command
// has been applied or rejected.
type ApplianceResultEvent struct {
	CommandID    string    `json:"command_id"`
	GreenhouseID int       `json:"greenhouse_id"`
	ApplianceID  int       `json:"appliance_id"`
	Status       string    `json:"status"` // "OK" | "FAIL"
	Reason       string    `json:"reason,omitempty"`
	Appliance    string    `json:"appliance,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
