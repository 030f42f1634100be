package booking

import "time"

// DriverLocation is the last GPS fix reported by the assigned driver. The
// service stores fixes as reported; plausibility is the client's concern.
type DriverLocation struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Accuracy    float64   `json:"accuracy"`
	LastUpdated time.Time `json:"lastUpdated"`
}
