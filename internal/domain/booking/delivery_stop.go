package booking

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the per-destination delivery state.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// DeliveryStop is one destination of a booking. It has no identity outside
// its booking; DestinationIndex is assigned once and never reused.
type DeliveryStop struct {
	DestinationIndex          int            `json:"destinationIndex"`
	CustomerEstablishmentName string         `json:"customerEstablishmentName"`
	DestinationAddress        string         `json:"destinationAddress"`
	ProductName               string         `json:"productName"`
	Quantity                  int            `json:"quantity"`
	GrossWeight               float64        `json:"grossWeight"`
	UnitPerPackage            int            `json:"unitPerPackage"`
	NumberOfPackages          int            `json:"numberOfPackages"`
	Status                    DeliveryStatus `json:"status"`
	DeliveredAt               *time.Time     `json:"deliveredAt,omitempty"`
	DeliveredBy               *uuid.UUID     `json:"deliveredBy,omitempty"`
	ProofOfDelivery           string         `json:"proofOfDelivery,omitempty"`
	Notes                     string         `json:"notes,omitempty"`
}

// IsDelivered reports whether the stop has been delivered.
func (s DeliveryStop) IsDelivered() bool {
	return s.Status == DeliveryDelivered
}

// StopDetails is the shipment content supplied when creating or editing a stop.
// DestinationIndex is only meaningful on edit, where it names an existing stop.
type StopDetails struct {
	DestinationIndex          *int
	CustomerEstablishmentName string
	DestinationAddress        string
	ProductName               string
	Quantity                  int
	GrossWeight               float64
	UnitPerPackage            int
	NumberOfPackages          int
}

func newStop(index int, d StopDetails) DeliveryStop {
	return DeliveryStop{
		DestinationIndex:          index,
		CustomerEstablishmentName: d.CustomerEstablishmentName,
		DestinationAddress:        d.DestinationAddress,
		ProductName:               d.ProductName,
		Quantity:                  d.Quantity,
		GrossWeight:               d.GrossWeight,
		UnitPerPackage:            d.UnitPerPackage,
		NumberOfPackages:          d.NumberOfPackages,
		Status:                    DeliveryPending,
	}
}

// withContent returns s with its shipment content replaced; delivery state is kept.
func (s DeliveryStop) withContent(d StopDetails) DeliveryStop {
	s.CustomerEstablishmentName = d.CustomerEstablishmentName
	s.DestinationAddress = d.DestinationAddress
	s.ProductName = d.ProductName
	s.Quantity = d.Quantity
	s.GrossWeight = d.GrossWeight
	s.UnitPerPackage = d.UnitPerPackage
	s.NumberOfPackages = d.NumberOfPackages
	return s
}

func (s DeliveryStop) sameContent(d StopDetails) bool {
	return s.CustomerEstablishmentName == d.CustomerEstablishmentName &&
		s.DestinationAddress == d.DestinationAddress &&
		s.ProductName == d.ProductName &&
		s.Quantity == d.Quantity &&
		s.GrossWeight == d.GrossWeight &&
		s.UnitPerPackage == d.UnitPerPackage &&
		s.NumberOfPackages == d.NumberOfPackages
}

func (s *DeliveryStop) markDelivered(by uuid.UUID, proofRef, notes string, at time.Time) {
	s.Status = DeliveryDelivered
	s.DeliveredAt = &at
	if by != uuid.Nil {
		s.DeliveredBy = &by
	}
	s.ProofOfDelivery = proofRef
	s.Notes = notes
}
