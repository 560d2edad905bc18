package models

import (
	"time"
)

// OfferStatus is the single authoritative status of an offer on this device.
type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
	OfferStatusExpired  OfferStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed out of the status.
// Declined and expired offers are never revived; a re-offer needs a new offer ID.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusDeclined || s == OfferStatusExpired
}

// Offer is the immutable business data for a job opportunity pushed to the
// technician's device. Only its status (stored separately) ever changes.
type Offer struct {
	ID                string    `json:"id"`
	CustomerName      string    `json:"customer_name"`
	CustomerAddress   string    `json:"customer_address"`
	PoolSize          float64   `json:"pool_size"`
	SuggestedDay      string    `json:"suggested_day"`
	RouteProximityKm  float64   `json:"route_proximity_km"`
	NextAvailableDate time.Time `json:"next_available_date"`
	ExpiresAt         time.Time `json:"expires_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// IsExpired reports whether the offer lifetime has elapsed at the given instant.
func (o *Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
