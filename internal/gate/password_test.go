// Copyright (c) 2026 Authgate. All rights reserved.

package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/authgate/authgate/internal/gate"
)

func TestVerifyRoutePassword(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		provided string
		want     bool
	}{
		{"exact_match", "Password123", "Password123", true},
		{"case_mismatch", "Password123", "password123", false},
		{"empty_candidate", "Password123", "", false},
		{"prefix_only", "Password123", "Password", false},
		{"longer_candidate", "Password123", "Password1234", false},
		{"unicode_match", "pässwörd", "pässwörd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.VerifyRoutePassword(tt.secret, tt.provided))
		})
	}
}
