package storefront

import (
	"errors"
	"fmt"
	"net/rpc"
	"testing"

	"github.com/kolo/xmlrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsFault(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"xmlrpc fault", xmlrpc.FaultError{Code: 101, String: "Product not exists."}, 101, "Product not exists."},
		{"server error", rpc.ServerError("Fault(102): Cannot do shipment for order."), 102, "Cannot do shipment for order."},
		{"wrapped server error", fmt.Errorf("call: %w", rpc.ServerError("Fault(5): Session expired.")), 5, "Session expired."},
		{"negative code", rpc.ServerError("Fault(-32700): parse error"), -32700, "parse error"},
		{"multiline message", rpc.ServerError("Fault(103): Status not changed\nsee log"), 103, "Status not changed\nsee log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f *Fault
			require.True(t, errors.As(asFault(tt.err), &f))
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, tt.message, f.Message)
			assert.True(t, IsFault(fmt.Errorf("outer: %w", asFault(tt.err)), tt.code))
		})
	}
}

func TestAsFaultLeavesOtherErrors(t *testing.T) {
	assert.NoError(t, asFault(nil))

	plain := errors.New("connection refused")
	assert.Same(t, plain, asFault(plain))

	server := rpc.ServerError("internal server error")
	assert.Equal(t, server, asFault(server))
	assert.False(t, IsFault(asFault(server), 101))
}
