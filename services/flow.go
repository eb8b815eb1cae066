package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"line-register-bot/models"
)

// Flow events. Every legal step change is one of these
const (
	EventAccept  = "accept"
	EventSwap    = "swap"
	EventReport  = "report"
	EventCancel  = "cancel"
	EventRestart = "restart"
)

// EditEvent is the event entering the single-field edit of f from done
func EditEvent(f models.Field) string { return "edit_" + string(f) }

// Flow is the transition graph of the registration conversation
type Flow struct {
	fields []models.Field
	events fsm.Events
}

// NewFlow builds the graph. askDepartment decides whether the collection pass
// continues from birthday to department or finishes at birthday
func NewFlow(askDepartment bool) *Flow {
	fields := []models.Field{
		models.FieldRealName,
		models.FieldNickName,
		models.FieldAge,
		models.FieldBirthday,
	}
	if askDepartment {
		fields = append(fields, models.FieldDepartment)
	}

	var events fsm.Events
	var all []string
	for i, f := range fields {
		next := models.StepDone.String()
		if i+1 < len(fields) {
			next = models.Collect(fields[i+1]).String()
		}
		events = append(events,
			fsm.EventDesc{Name: EventAccept, Src: []string{models.Collect(f).String()}, Dst: next},
			fsm.EventDesc{Name: EventAccept, Src: []string{models.Edit(f).String()}, Dst: models.StepDone.String()},
			fsm.EventDesc{Name: EditEvent(f), Src: []string{models.StepDone.String()}, Dst: models.Edit(f).String()},
		)
		all = append(all, models.Collect(f).String(), models.Edit(f).String())
	}

	events = append(events,
		fsm.EventDesc{
			Name: EventSwap,
			Src:  []string{models.Collect(models.FieldNickName).String()},
			Dst:  models.Collect(models.FieldRealName).String(),
		},
		fsm.EventDesc{Name: EventReport, Src: []string{models.StepDone.String()}, Dst: models.StepReportTitle.String()},
		fsm.EventDesc{Name: EventAccept, Src: []string{models.StepReportTitle.String()}, Dst: models.StepReportDetail.String()},
		fsm.EventDesc{Name: EventAccept, Src: []string{models.StepReportDetail.String()}, Dst: models.StepReportPhoto.String()},
		fsm.EventDesc{Name: EventAccept, Src: []string{models.StepReportPhoto.String()}, Dst: models.StepDone.String()},
	)

	cancellable := []string{
		models.StepReportTitle.String(),
		models.StepReportDetail.String(),
		models.StepReportPhoto.String(),
	}
	for _, f := range fields {
		cancellable = append(cancellable, models.Edit(f).String())
	}
	events = append(events, fsm.EventDesc{Name: EventCancel, Src: cancellable, Dst: models.StepDone.String()})

	all = append(all, cancellable[:3]...)
	all = append(all, models.StepDone.String())
	events = append(events, fsm.EventDesc{
		Name: EventRestart,
		Src:  all,
		Dst:  models.Collect(models.FieldRealName).String(),
	})

	return &Flow{fields: fields, events: events}
}

// Fields returns the collected fields in order
func (f *Flow) Fields() []models.Field { return f.fields }

// Has reports whether field is part of this flow
func (f *Flow) Has(field models.Field) bool {
	for _, ff := range f.fields {
		if ff == field {
			return true
		}
	}
	return false
}

// Can reports whether event is legal from step
func (f *Flow) Can(from models.Step, event string) bool {
	return fsm.NewFSM(from.String(), f.events, nil).Can(event)
}

// Fire applies event to from and returns the resulting step. Firing an event
// whose destination equals the source leaves the step unchanged
func (f *Flow) Fire(ctx context.Context, from models.Step, event string) (models.Step, error) {
	machine := fsm.NewFSM(from.String(), f.events, nil)
	if err := machine.Event(ctx, event); err != nil {
		var same fsm.NoTransitionError
		if errors.As(err, &same) {
			return from, nil
		}
		return from, fmt.Errorf("step %s: event %s: %w", from, event, err)
	}
	return models.ParseStep(machine.Current())
}
