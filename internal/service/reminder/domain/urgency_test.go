package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		days int
		want Tier
	}{
		{-5, TierCritical},
		{0, TierCritical},
		{1, TierCritical},
		{2, TierHigh},
		{3, TierHigh},
		{4, TierMedium},
		{7, TierMedium},
		{8, TierLow},
		{90, TierLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.days), "days=%d", tt.days)
	}
}
