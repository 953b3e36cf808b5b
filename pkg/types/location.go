package types

import "fmt"

// Location is an optional delivery pin dropped by the customer.
type Location struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// Validate checks the coordinates fall inside WGS84 bounds.
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("location: lat %v out of range", l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("location: lng %v out of range", l.Lng)
	}
	return nil
}
