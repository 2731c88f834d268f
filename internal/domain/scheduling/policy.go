package scheduling

import (
	"fmt"

	"github.com/medibook/booking/internal/domain/identity"
)

type permission struct {
	role   identity.Role
	from   Status
	action Action
}

// transitions is the permission table. A missing key means the move is not
// allowed from that state. The empty From status stands for "no appointment
// yet".
var transitions = map[permission]Status{
	{identity.RolePatient, "", ActionRequest}: StatusPending,

	{identity.RoleDoctor, StatusPending, ActionApprove}: StatusApproved,
	{identity.RoleAdmin, StatusPending, ActionApprove}:  StatusApproved,
	{identity.RoleDoctor, StatusPending, ActionReject}:  StatusRejected,
	{identity.RoleAdmin, StatusPending, ActionReject}:   StatusRejected,

	{identity.RolePatient, StatusPending, ActionCancel}:  StatusCancelled,
	{identity.RolePatient, StatusApproved, ActionCancel}: StatusCancelled,
}

// roleActions lists, per role, every action the table grants it in any state.
var roleActions = func() map[identity.Role]map[Action]bool {
	out := make(map[identity.Role]map[Action]bool)
	for p := range transitions {
		if out[p.role] == nil {
			out[p.role] = make(map[Action]bool)
		}
		out[p.role][p.action] = true
	}
	return out
}()

// Authorize checks that actor may perform action on a at all. It ignores the
// appointment's current status; a nil a is the creation case.
func Authorize(actor identity.Actor, a *Appointment, action Action) error {
	if !roleActions[actor.Role][action] {
		return fmt.Errorf("%w: role %s may not %s", ErrUnauthorized, actor.Role, action)
	}
	if a == nil {
		return nil
	}
	switch actor.Role {
	case identity.RolePatient:
		if a.PatientID != actor.ID {
			return fmt.Errorf("%w: appointment belongs to another patient", ErrUnauthorized)
		}
	case identity.RoleDoctor:
		if a.DoctorID != actor.ID {
			return fmt.Errorf("%w: appointment is with another doctor", ErrUnauthorized)
		}
	}
	return nil
}

// NextStatus looks up where action leads from the from state for role.
func NextStatus(role identity.Role, from Status, action Action) (Status, error) {
	to, ok := transitions[permission{role, from, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s appointment", ErrInvalidTransition, action, from)
	}
	return to, nil
}

// AllowedActions returns the actions actor could perform on a right now, in a
// fixed order.
func AllowedActions(actor identity.Actor, a *Appointment) []Action {
	out := []Action{}
	for _, action := range []Action{ActionApprove, ActionReject, ActionCancel} {
		if Authorize(actor, a, action) != nil {
			continue
		}
		if _, err := NextStatus(actor.Role, a.Status, action); err == nil {
			out = append(out, action)
		}
	}
	return out
}
