package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/estatedesk/estatedesk-api/internal/models"
)

// DealFSM wraps a deal with its state machine
type DealFSM struct {
	deal *models.Deal
	fsm  *fsm.FSM
}

// NewDealFSM creates a new deal state machine
func NewDealFSM(deal *models.Deal) *DealFSM {
	dfsm := &DealFSM{
		deal: deal,
	}

	dfsm.fsm = fsm.NewFSM(
		deal.Status,
		fsm.Events{
			// pending → confirmed (spawns the contract file)
			{Name: "confirm", Src: []string{models.DealStatusPending}, Dst: models.DealStatusConfirmed},

			// confirmed → completed (the only path that earns commission)
			{Name: "complete", Src: []string{models.DealStatusConfirmed}, Dst: models.DealStatusCompleted},

			// pending/confirmed → cancelled
			{Name: "cancel", Src: []string{models.DealStatusPending, models.DealStatusConfirmed}, Dst: models.DealStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return dfsm
}

// Confirm transitions the deal to confirmed state
func (d *DealFSM) Confirm(ctx context.Context) error {
	if !d.deal.MayConfirm() {
		return fmt.Errorf("deal cannot be confirmed in current state: %s", d.deal.Status)
	}

	if err := d.fsm.Event(ctx, "confirm"); err != nil {
		return fmt.Errorf("failed to confirm deal: %w", err)
	}

	d.deal.Status = d.fsm.Current()
	return nil
}

// Complete transitions the deal to completed state
func (d *DealFSM) Complete(ctx context.Context) error {
	if !d.deal.MayComplete() {
		return fmt.Errorf("deal cannot be completed in current state: %s", d.deal.Status)
	}

	if err := d.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete deal: %w", err)
	}

	d.deal.Status = d.fsm.Current()
	return nil
}

// Cancel transitions the deal to cancelled state
func (d *DealFSM) Cancel(ctx context.Context) error {
	if !d.deal.MayCancel() {
		return fmt.Errorf("deal cannot be cancelled in current state: %s", d.deal.Status)
	}

	if err := d.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel deal: %w", err)
	}

	d.deal.Status = d.fsm.Current()
	return nil
}

// Current returns the current state
func (d *DealFSM) Current() string {
	return d.fsm.Current()
}

// Can checks if a transition is possible
func (d *DealFSM) Can(event string) bool {
	return d.fsm.Can(event)
}
