package models

import "fmt"

// PayableKind tags what a charge or payment is raised against. The set is
// closed: resolution dispatches over these tags explicitly, never over a
// free-form type string.
type PayableKind string

const (
	PayableInstallment    PayableKind = "installment"
	PayableTransferCharge PayableKind = "transfer_charge"
	PayableLatePenalty    PayableKind = "late_penalty"
)

// ValidPayableKind reports whether kind is one of the known tags
func ValidPayableKind(kind PayableKind) bool {
	switch kind {
	case PayableInstallment, PayableTransferCharge, PayableLatePenalty:
		return true
	}
	return false
}

// PayableRef is a tagged reference to a chargeable entity
type PayableRef struct {
	Kind PayableKind `json:"kind"`
	ID   uint        `json:"id"`
}

// Validate checks the tag and id are usable
func (r PayableRef) Validate() error {
	if !ValidPayableKind(r.Kind) {
		return fmt.Errorf("unknown payable kind %q", r.Kind)
	}
	if r.ID == 0 {
		return fmt.Errorf("payable id is required")
	}
	return nil
}

func (r PayableRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}
