// Package model defines the domain types used across the application.
package model

import "time"

// All is the sentinel criteria value meaning "no constraint".
const All = "all"

// EventType drives the eligibility window policy of an event.
type EventType string

// Known event types. Any other value is treated as an instant-start type.
const (
	TypeExhibition   EventType = "exhibition"
	TypeVolunteering EventType = "volunteering"
	TypeInternship   EventType = "internship"
	TypeSeminar      EventType = "seminar"
	TypeConcert      EventType = "concert"
	TypeConference   EventType = "conference"
	TypeWorkshop     EventType = "workshop"
	TypeCompetition  EventType = "competition"
	TypeOther        EventType = "other"
)

// EventTypes lists the known event types in display order.
var EventTypes = []EventType{
	TypeExhibition, TypeVolunteering, TypeInternship, TypeSeminar, TypeConcert,
	TypeConference, TypeWorkshop, TypeCompetition, TypeOther,
}

// IsSpan reports whether visibility of the type is governed by its end date.
func (t EventType) IsSpan() bool {
	switch t {
	case TypeExhibition, TypeVolunteering, TypeInternship:
		return true
	}
	return false
}

// Payment describes how participation is paid for.
type Payment string

// Supported payment kinds.
const (
	PaymentFree           Payment = "free"
	PaymentPaid           Payment = "paid"
	PaymentStateSupported Payment = "state_supported"
)

// DocumentType is the document a participant receives.
type DocumentType string

// Supported document types.
const (
	DocumentNone               DocumentType = "none"
	DocumentCertificate        DocumentType = "certificate"
	DocumentParticipationProof DocumentType = "participation_proof"
)

// Visibility restricts who may see an event.
type Visibility string

// Supported visibility targets.
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Regions is the enumerated region list events may belong to.
var Regions = []string{
	"Baku", "Ganja", "Sumgait", "Mingachevir", "Lankaran", "Shaki",
	"Shirvan", "Nakhchivan", "Quba", "Shusha",
}

// EventRecord is one published event as fetched from the event store.
// Date and time fields keep their stored string form; see ParseDate and ParseClock.
type EventRecord struct {
	ID          string
	Name        string
	Description string
	Category    string
	Subcategory string
	Region      string
	Type        EventType
	StartDate   string
	StartTime   string
	EndDate     string
	EndTime     string
	Payment     Payment
	Document    DocumentType
	Visibility  Visibility
	Published   bool
	Deactivated bool
	CreatedAt   *time.Time
	OwnerID     string
}

// Follow is a follower/organiser relation.
type Follow struct {
	FollowerID  string
	OrganiserID string
	CreatedAt   time.Time
}

// Source is an organiser's published events feed polled by the importer.
type Source struct {
	ID              int64
	OwnerID         string
	Name            string
	URL             string
	IntervalMinutes int
	IsActive        bool
	LastCheckAt     *time.Time
	CreatedAt       time.Time
}

// Scope restricts which events a feed fetches.
// The zero value fetches every event in the store.
type Scope struct {
	// OwnerIDs limits results to events of these organisers.
	OwnerIDs []string
	// FollowerID, when set, resolves OwnerIDs from the follower's relations.
	FollowerID string
}

// Restricted reports whether the scope limits events by owner.
func (s Scope) Restricted() bool {
	return s.FollowerID != "" || len(s.OwnerIDs) > 0
}
