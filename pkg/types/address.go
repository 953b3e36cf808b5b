package types

import "strings"

// DefaultCountry is applied when a delivery address omits the country.
const DefaultCountry = "Philippines"

// Address is the delivery address captured on an order. It is embedded into
// the orders table with an address_ column prefix.
type Address struct {
	Street     string `json:"street" gorm:"not null"`
	Barangay   string `json:"brgy" gorm:"not null"`
	City       string `json:"city" gorm:"not null"`
	Province   string `json:"province" gorm:"not null"`
	PostalCode string `json:"postalCode" gorm:"not null"`
	Country    string `json:"country" gorm:"not null"`
}

// Normalized trims every field and fills in the default country.
func (a Address) Normalized() Address {
	out := Address{
		Street:     strings.TrimSpace(a.Street),
		Barangay:   strings.TrimSpace(a.Barangay),
		City:       strings.TrimSpace(a.City),
		Province:   strings.TrimSpace(a.Province),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
	if out.Country == "" {
		out.Country = DefaultCountry
	}
	return out
}

// MissingFields lists the json names of required fields that are blank.
func (a Address) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"brgy", a.Barangay},
		{"city", a.City},
		{"province", a.Province},
		{"postalCode", a.PostalCode},
	}
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}
