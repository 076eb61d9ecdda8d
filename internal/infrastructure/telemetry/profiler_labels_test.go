package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels map[string]string
		want   []string
	}{
		{
			name:   "nil",
			labels: nil,
			want:   nil,
		},
		{
			name: "sorted and cleaned",
			labels: map[string]string{
				"Route":  "/api/v1/fulfillment/orders/:id/sync",
				"method": "POST",
				"":       "ignored",
				"empty":  "",
			},
			want: []string{"method", "POST", "route", "/api/v1/fulfillment/orders/:id/sync"},
		},
		{
			name: "drops high cardinality keys",
			labels: map[string]string{
				"order-id":  "3f0d5c2e",
				"operation": "catalog_sync_all",
			},
			want: []string{"operation", "catalog_sync_all"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeLabels(tt.labels)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeLabels_TruncatesLongValues(t *testing.T) {
	got := sanitizeLabels(map[string]string{"route": strings.Repeat("x", 300)})
	assert.Len(t, got[1], MaxLabelValueLength)
}

func TestSanitizeLabelKey(t *testing.T) {
	assert.Equal(t, "http_route", sanitizeLabelKey("HTTP Route"))
	assert.Equal(t, "shop_id", sanitizeLabelKey("shop-id!"))
	assert.Empty(t, sanitizeLabelKey("$$"))
}

func TestWithProfilingLabels_RunsFn(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	for _, labels := range []map[string]string{nil, OperationLabels("catalog_sync_all")} {
		called := false
		WithProfilingLabels(ctx, labels, func(inner context.Context) {
			called = true
			assert.Equal(t, "v", inner.Value(key{}))
		})
		assert.True(t, called)
	}
}
