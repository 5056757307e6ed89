package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/estatedesk/estatedesk-api/internal/models"
)

// FileFSM wraps a contract file with its state machine
type FileFSM struct {
	file *models.ContractFile
	fsm  *fsm.FSM
}

// NewFileFSM creates a new contract file state machine
func NewFileFSM(file *models.ContractFile) *FileFSM {
	ffsm := &FileFSM{
		file: file,
	}

	ffsm.fsm = fsm.NewFSM(
		file.Status,
		fsm.Events{
			// active → completed when remaining hits zero
			{Name: "complete", Src: []string{models.FileStatusActive}, Dst: models.FileStatusCompleted},

			// completed → active when a post-clearance bounce reopens the balance
			{Name: "reopen", Src: []string{models.FileStatusCompleted}, Dst: models.FileStatusActive},

			// active → transferred/cancelled/defaulted, all terminal
			{Name: "transfer", Src: []string{models.FileStatusActive}, Dst: models.FileStatusTransferred},
			{Name: "cancel", Src: []string{models.FileStatusActive}, Dst: models.FileStatusCancelled},
			{Name: "default", Src: []string{models.FileStatusActive}, Dst: models.FileStatusDefaulted},
		},
		fsm.Callbacks{},
	)

	return ffsm
}

// Complete transitions the file to completed state
func (f *FileFSM) Complete(ctx context.Context) error {
	if !f.file.IsSettled() {
		return fmt.Errorf("file cannot be completed: remaining amount is %s", f.file.RemainingAmount)
	}

	if err := f.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete file: %w", err)
	}

	f.file.Status = f.fsm.Current()
	return nil
}

// Reopen transitions the file from completed back to active
func (f *FileFSM) Reopen(ctx context.Context) error {
	if err := f.fsm.Event(ctx, "reopen"); err != nil {
		return fmt.Errorf("failed to reopen file: %w", err)
	}

	f.file.Status = f.fsm.Current()
	return nil
}

// Transfer transitions the file to transferred state
func (f *FileFSM) Transfer(ctx context.Context) error {
	if !f.file.MayTransfer() {
		return fmt.Errorf("file cannot be transferred in current state: %s", f.file.Status)
	}

	if err := f.fsm.Event(ctx, "transfer"); err != nil {
		return fmt.Errorf("failed to transfer file: %w", err)
	}

	f.file.Status = f.fsm.Current()
	return nil
}

// Cancel transitions the file to cancelled state
func (f *FileFSM) Cancel(ctx context.Context) error {
	if err := f.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel file: %w", err)
	}

	f.file.Status = f.fsm.Current()
	return nil
}

// Default transitions the file to defaulted state
func (f *FileFSM) Default(ctx context.Context) error {
	if err := f.fsm.Event(ctx, "default"); err != nil {
		return fmt.Errorf("failed to default file: %w", err)
	}

	f.file.Status = f.fsm.Current()
	return nil
}

// Current returns the current state
func (f *FileFSM) Current() string {
	return f.fsm.Current()
}

// Can checks if a transition is possible
func (f *FileFSM) Can(event string) bool {
	return f.fsm.Can(event)
}
