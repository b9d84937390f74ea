package model

import "time"

// Appointment represents a veterinary visit covering one or more sheep.
// The sheep are linked through `appointment_sheep`; medications are
// prescribed by the vet when the appointment is updated.
type Appointment struct {
	ID          uint64       `json:"id"`
	FarmID      uint64       `json:"farm_id"`
	VetID       uint64       `json:"vet_id"`
	Date        time.Time    `json:"date"`
	Reason      *string      `json:"reason"`
	Comments    *string      `json:"comments"`
	SheepIDs    []uint64     `json:"sheep_ids"`
	Medications []Medication `json:"medications"`
}

// Medication is a prescription attached to an appointment.
type Medication struct {
	ID            uint64  `json:"id"`
	AppointmentID uint64  `json:"appointment_id"`
	Name          string  `json:"name"`
	Dosage        *string `json:"dosage"`
	Indication    *string `json:"indication"`
}
