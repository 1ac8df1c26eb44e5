// Package rbac is the single authority on which staff role may perform
// which order or catalog action. Handlers and services consult it before
// touching any state so the rule set stays auditable in one table.
package rbac

import (
	"errors"

	"github.com/delicias-restaurant/api/internal/enum"
)

// Action is a guarded operation.
type Action string

const (
	ActionConfirmOrder       Action = "order.confirm"
	ActionMarkItemReady      Action = "order.item_ready"
	ActionRecordPayment      Action = "order.record_payment"
	ActionCancelOrder        Action = "order.cancel"
	ActionViewAllOrders      Action = "order.view_all"
	ActionManageMenu         Action = "menu.manage"
	ActionToggleAvailability Action = "menu.toggle_availability"
	ActionFreeTable          Action = "table.set_status"
	ActionManageUsers        Action = "user.manage"
	ActionManageReservations Action = "reservation.manage"
	ActionViewReports        Action = "report.view"
)

// ErrInsufficientRole signals that the acting role may never perform the
// requested action. It is distinct from a state-conflict error: the
// caller's request was well-formed but forbidden.
var ErrInsufficientRole = errors.New("insufficient role")

// permissions lists the roles allowed per action. Admin is implicitly
// allowed everything and is not repeated here.
var permissions = map[Action][]string{
	ActionConfirmOrder:       {enum.RoleMesero},
	ActionMarkItemReady:      {enum.RoleCocinero},
	ActionRecordPayment:      {enum.RoleCajero},
	ActionCancelOrder:        {},
	ActionViewAllOrders:      {enum.RoleMesero, enum.RoleCocinero, enum.RoleCajero},
	ActionManageMenu:         {},
	ActionToggleAvailability: {enum.RoleCajero},
	ActionFreeTable:          {enum.RoleMesero},
	ActionManageUsers:        {},
	ActionManageReservations: {},
	ActionViewReports:        {enum.RoleCajero},
}

// Allow reports whether role may perform action.
func Allow(role string, action Action) bool {
	if role == enum.RoleAdmin {
		return true
	}
	for _, r := range permissions[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Check returns ErrInsufficientRole when role may not perform action.
func Check(role string, action Action) error {
	if !Allow(role, action) {
		return ErrInsufficientRole
	}
	return nil
}

// Roles returns every role permitted to perform action, admin included.
// Used to wire route-level role middleware from the same table.
func Roles(action Action) []string {
	return append([]string{enum.RoleAdmin}, permissions[action]...)
}
