package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/estatedesk/estatedesk-api/internal/models"
)

// PaymentFSM wraps a payment record with its state machine
type PaymentFSM struct {
	payment *models.PaymentRecord
	fsm     *fsm.FSM
}

// NewPaymentFSM creates a new payment record state machine
func NewPaymentFSM(payment *models.PaymentRecord) *PaymentFSM {
	pfsm := &PaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// pending → received
			{Name: "receive", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusReceived},

			// received → cleared (the only transition that settles money)
			{Name: "clear", Src: []string{models.PaymentStatusReceived}, Dst: models.PaymentStatusCleared},

			// received/cleared → bounced; bouncing a cleared record reverses
			// the counted balance at the service layer
			{Name: "bounce", Src: []string{models.PaymentStatusReceived, models.PaymentStatusCleared}, Dst: models.PaymentStatusBounced},

			// pending/received → cancelled; cleared records must bounce
			{Name: "cancel", Src: []string{models.PaymentStatusPending, models.PaymentStatusReceived}, Dst: models.PaymentStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Receive transitions the record to received state
func (p *PaymentFSM) Receive(ctx context.Context) error {
	if err := p.fsm.Event(ctx, "receive"); err != nil {
		return fmt.Errorf("failed to receive payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Clear transitions the record to cleared state
func (p *PaymentFSM) Clear(ctx context.Context) error {
	if !p.payment.MayClear() {
		return fmt.Errorf("payment cannot be cleared in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "clear"); err != nil {
		return fmt.Errorf("failed to clear payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Bounce transitions the record to bounced state
func (p *PaymentFSM) Bounce(ctx context.Context) error {
	if !p.payment.MayBounce() {
		return fmt.Errorf("payment cannot be bounced in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "bounce"); err != nil {
		return fmt.Errorf("failed to bounce payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Cancel transitions the record to cancelled state
func (p *PaymentFSM) Cancel(ctx context.Context) error {
	if !p.payment.MayCancel() {
		return fmt.Errorf("payment cannot be cancelled in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PaymentFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
