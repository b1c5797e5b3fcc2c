package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapProviderEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		planType  string
		amount    float64
		wantKind  EventKind
		wantPlan  Plan
		wantErr   bool
	}{
		{
			name:      "payment approved monthly",
			eventType: "PAYMENT_APPROVED",
			planType:  "monthly",
			amount:    20,
			wantKind:  EventKindPaymentApproved,
			wantPlan:  PlanMonthly,
		},
		{
			name:      "subscription activated maps to payment approved",
			eventType: "SUBSCRIPTION_ACTIVATED",
			planType:  "annual",
			amount:    180,
			wantKind:  EventKindPaymentApproved,
			wantPlan:  PlanAnnual,
		},
		{
			name:      "semiannual provider name",
			eventType: "PAYMENT_APPROVED",
			planType:  "semiannual",
			amount:    110,
			wantKind:  EventKindPaymentApproved,
			wantPlan:  PlanBiannual,
		},
		{
			name:      "payment cancelled maps to payment failed",
			eventType: "PAYMENT_CANCELLED",
			wantKind:  EventKindPaymentFailed,
		},
		{
			name:      "subscription cancelled",
			eventType: "SUBSCRIPTION_CANCELLED",
			wantKind:  EventKindCancelled,
		},
		{
			name:      "subscription suspended",
			eventType: "SUBSCRIPTION_SUSPENDED",
			wantKind:  EventKindSuspended,
		},
		{
			name:      "subscription reactivated",
			eventType: "SUBSCRIPTION_REACTIVATED",
			wantKind:  EventKindReactivated,
		},
		{
			name:      "unknown event type is not an error",
			eventType: "SOMETHING_ELSE",
			wantKind:  EventKindUnrecognized,
		},
		{
			name:      "unknown plan type is an error",
			eventType: "PAYMENT_APPROVED",
			planType:  "weekly",
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := MapProviderEvent(tt.eventType, tt.planType, tt.amount)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPlan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, ev.Kind)
			assert.Equal(t, tt.wantPlan, ev.Plan)
			assert.Equal(t, tt.amount, ev.Amount)
		})
	}
}
