package model

// Availability lists the bookable slots of one local calendar day.
type Availability struct {
	ResourceID  string     `json:"resource_id"`
	Date        string     `json:"date"`
	Timezone    string     `json:"timezone"`
	SlotMinutes int        `json:"slot_minutes"`
	Blackout    bool       `json:"blackout"`
	Slots       []Interval `json:"slots"`
}
