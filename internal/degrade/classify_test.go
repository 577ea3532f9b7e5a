package degrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want PathClass
	}{
		{"/transactions/validate", ClassCritical},
		{"/v1/transactions/validate", ClassCritical},
		{"/customers/CUST-1/compliance-status", ClassCritical},
		{"/warehouse/operations/validate", ClassCritical},
		{"/reports/summary", ClassDeferrable},
		{"/v1/reports/monthly", ClassDeferrable},
		{"/dashboard/overview", ClassDeferrable},
		{"/inspections/queue", ClassDeferrable},
		{"/health/live", ClassUngated},
		{"/health/ready", ClassUngated},
		{"/metrics", ClassUngated},
		// Unknown paths err on the side of admission.
		{"/overrides", ClassCritical},
		{"/some/new/endpoint", ClassCritical},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.path))
		})
	}
}
