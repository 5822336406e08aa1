package model

import (
	"encoding/json"
	"testing"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/testingx"
)

func TestParseCardStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    CardStatus
		wantErr bool
	}{
		{"PENDING", StatusPending, false},
		{"APPROVED", StatusApproved, false},
		{"REJECTED", StatusRejected, false},
		{"approved", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCardStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCardStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCardStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClient_WireNames(t *testing.T) {
	raw := `{"id":7,"firstName":"Ana","lastName":"Kos","oib":"12345678901","cardStatus":"APPROVED"}`
	var c Client
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := Client{ID: 7, FirstName: "Ana", LastName: "Kos", OIB: "12345678901", CardStatus: StatusApproved}
	if c != want {
		t.Errorf("got %+v, want %+v", c, want)
	}

	out, err := json.Marshal(NewClientForm{FirstName: "Ana", LastName: "Kos", OIB: "1", CardStatus: StatusPending})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(out); got != `{"firstName":"Ana","lastName":"Kos","oib":"1","cardStatus":"PENDING"}` {
		t.Errorf("form JSON = %s", got)
	}
}

func TestNewClientForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		form    NewClientForm
		wantErr bool
	}{
		{"complete", NewClientForm{FirstName: "Ana", LastName: "Kos", OIB: "12345678901", CardStatus: StatusPending}, false},
		{"default form", DefaultForm(), true},
		{"missing oib", NewClientForm{FirstName: "Ana", LastName: "Kos", CardStatus: StatusPending}, true},
		{"unknown status", NewClientForm{FirstName: "Ana", LastName: "Kos", OIB: "1", CardStatus: "ARCHIVED"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.wantErr {
				testingx.AssertError(t, err, errors.CodeInvalidArgument)
				return
			}
			testingx.AssertNoError(t, err)
		})
	}
}

func TestCardStatus_Label(t *testing.T) {
	if got := StatusApproved.Label(); got != "Approved" {
		t.Errorf("Label() = %q", got)
	}
	if DefaultForm().CardStatus != StatusPending {
		t.Error("DefaultForm() should default to PENDING")
	}
}
