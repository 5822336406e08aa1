// Package model holds the client record exchanged with the Client Registry API
// and the form used to register one.
package model

import (
	"fmt"

	"go.eggybyte.com/carddesk/configx"
)

// CardStatus is the approval state of a client's card request.
type CardStatus string

const (
	StatusPending  CardStatus = "PENDING"
	StatusApproved CardStatus = "APPROVED"
	StatusRejected CardStatus = "REJECTED"
)

// Statuses lists every CardStatus in display order.
var Statuses = []CardStatus{StatusPending, StatusApproved, StatusRejected}

// ParseCardStatus accepts exactly PENDING, APPROVED or REJECTED.
func ParseCardStatus(s string) (CardStatus, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown card status %q", s)
}

// Valid reports whether s is one of the three known statuses.
func (s CardStatus) Valid() bool {
	_, err := ParseCardStatus(string(s))
	return err == nil
}

// Label is the human form shown in the status select.
func (s CardStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// Client is a registry record. ID is zero until the registry assigns one.
// OIB is the natural key for delete and status updates.
type Client struct {
	ID         int64      `json:"id,omitempty"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	OIB        string     `json:"oib"`
	CardStatus CardStatus `json:"cardStatus"`
}

// FullName joins the first and last name with a space.
func (c Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// NewClientForm is the body of a card request.
type NewClientForm struct {
	FirstName  string     `json:"firstName" form:"firstName" validate:"required"`
	LastName   string     `json:"lastName" form:"lastName" validate:"required"`
	OIB        string     `json:"oib" form:"oib" validate:"required"`
	CardStatus CardStatus `json:"cardStatus" form:"cardStatus" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

// DefaultForm is the empty form with status PENDING.
func DefaultForm() NewClientForm {
	return NewClientForm{CardStatus: StatusPending}
}

// StatusUpdate is the body of an edit-status request.
type StatusUpdate struct {
	CardStatus CardStatus `json:"cardStatus" form:"cardStatus" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

var validate = configx.NewValidator()

// Validate checks that every field is filled and the status is known.
func (f NewClientForm) Validate() error {
	return configx.ValidateStruct(validate, f)
}
