// Copyright (c) 2026 Authgate. All rights reserved.

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/authgate/authgate/internal/platform/sec"
)

/*
TestLevel_AtLeast verifies the ordered privilege comparison, including the
equality tie-break (equal level satisfies the requirement).
*/
func TestLevel_AtLeast(t *testing.T) {
	tests := []struct {
		name    string
		level   sec.Level
		min     sec.Level
		allowed bool
	}{
		{"admin_on_member_route", sec.LevelAdmin, sec.LevelMember, true},
		{"member_on_admin_route", sec.LevelMember, sec.LevelAdmin, false},
		{"equal_levels_allowed", sec.LevelOperator, sec.LevelOperator, true},
		{"guest_on_guest_route", sec.LevelGuest, sec.LevelGuest, true},
		{"custom_five_on_five", sec.Level(5), sec.Level(5), true},
		{"custom_five_on_six", sec.Level(5), sec.Level(6), false},
		{"custom_six_on_five", sec.Level(6), sec.Level(5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.level.AtLeast(tt.min))
		})
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "admin", sec.LevelAdmin.String())
	assert.Equal(t, "guest", sec.LevelGuest.String())
	assert.Equal(t, "custom", sec.Level(7).String())
}
