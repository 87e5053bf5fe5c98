package jdbc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDisconnect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres closed", errors.New("FATAL: terminating connection due to administrator command"), true},
		{"mysql link failure", errors.New("Communications link failure"), true},
		{"generic reset", errors.New("read tcp 127.0.0.1:5432: connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"oracle io", errors.New("IO Error occurred during the operation"), true},
		{"wrapped in bridge error", databaseError("execute", errors.New("Connection is closed")), true},
		{"ordinary sql failure", errors.New("duplicate key value violates unique constraint"), false},
		{"syntax error", errors.New("syntax error at or near \"SELEC\""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDisconnect(tt.err))
		})
	}
}
