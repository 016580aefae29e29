package dualwrite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neerajsamtani/ledgershift/pkg/models"
)

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		entity   models.EntityType
		critical bool
	}{
		{models.EntityCategory, true},
		{models.EntityPaymentMethod, true},
		{models.EntityParty, true},
		{models.EntityTag, true},
		{models.EntityEvent, true},
		{models.EntityAccount, true},
		{models.EntityUser, true},
		{models.EntityTransaction, false},
		{models.EntityLineItem, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.entity), func(t *testing.T) {
			assert.Equal(t, tt.critical, policy.Critical(tt.entity))
		})
	}
}

func TestPolicyUnknownEntityDefaultsCritical(t *testing.T) {
	policy := Policy{}
	assert.True(t, policy.Critical(models.EntityType("widgets")))
}
