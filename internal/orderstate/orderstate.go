// Package orderstate translates storefront order states into local workflow
// targets and invoice/shipment policies.
package orderstate

import "github.com/xelth-com/magebridge/internal/models"

// Local targets a storefront state can map to
const (
	StateQuotation      = "quotation"
	StateInvoiceWaiting = "invoice.waiting"
	StateProcessing     = "processing"
	StateDone           = "done"
	StateCancel         = "cancel"
)

// Translation is the local policy for one storefront state
type Translation struct {
	State          string
	InvoiceMethod  string
	ShipmentMethod string
}

// Translate maps a storefront state code. Unknown codes cancel.
func Translate(code string) Translation {
	switch code {
	case "new", "holded":
		return Translation{StateQuotation, models.MethodOrder, models.MethodOrder}
	case "pending_payment", "payment_review":
		return Translation{StateInvoiceWaiting, models.MethodOrder, models.MethodInvoice}
	case "closed", "complete":
		return Translation{StateDone, models.MethodOrder, models.MethodOrder}
	case "processing":
		return Translation{StateProcessing, models.MethodOrder, models.MethodOrder}
	default:
		return Translation{StateCancel, models.MethodManual, models.MethodManual}
	}
}

// Cancels reports whether an imported order in this state is cancelled outright
func (t Translation) Cancels() bool {
	return t.State == StateCancel
}

// Confirms reports whether an imported order is confirmed. Quotation states stay quotations.
func (t Translation) Confirms() bool {
	return t.State != StateQuotation && t.State != StateCancel
}

// Processes reports whether an imported order moves past confirmation
func (t Translation) Processes() bool {
	return t.State == StateProcessing || t.State == StateDone
}

// Action is a status update pushed back to the storefront
type Action int

const (
	ActionNone Action = iota
	ActionCancel
	ActionComplete
)

func (a Action) String() string {
	switch a {
	case ActionCancel:
		return "cancel"
	case ActionComplete:
		return "complete"
	default:
		return "none"
	}
}

// CompleteStatus is the storefront status set when a sale is done
const CompleteStatus = "complete"

// ExportAction returns the update to push for a local sale state.
// Only cancellation and completion are ever exported.
func ExportAction(state models.SaleState) Action {
	switch state {
	case models.SaleCancelled:
		return ActionCancel
	case models.SaleDone:
		return ActionComplete
	default:
		return ActionNone
	}
}
