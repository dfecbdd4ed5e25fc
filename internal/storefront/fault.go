package storefront

import (
	"errors"
	"fmt"
	"net/rpc"
	"regexp"
	"strconv"

	"github.com/kolo/xmlrpc"
)

// Fault codes with a meaning the integration relies on
const (
	FaultSessionExpired = 5
	FaultNotFound       = 101 // referenced entity does not exist remotely
	FaultAlreadyExists  = 102 // e.g. a shipment was already created for the order
	FaultRejected       = 103 // remote workflow refuses the status change
)

// ErrConnection is returned when the storefront cannot be reached or refuses the credentials
var ErrConnection = errors.New("storefront connection failed")

// Fault is an error reported by the storefront API
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("storefront fault %d: %s", f.Code, f.Message)
}

// IsFault reports whether err carries a storefront fault with the given code
func IsFault(err error, code int) bool {
	var f *Fault
	return errors.As(err, &f) && f.Code == code
}

// net/rpc flattens xmlrpc.FaultError into an rpc.ServerError carrying its Error() text
var serverFault = regexp.MustCompile(`(?s)^Fault\((-?\d+)\): (.*)$`)

// asFault converts an XML-RPC fault into a *Fault and leaves other errors alone
func asFault(err error) error {
	if err == nil {
		return nil
	}
	var fe xmlrpc.FaultError
	if errors.As(err, &fe) {
		return &Fault{Code: fe.Code, Message: fe.String}
	}
	var se rpc.ServerError
	if errors.As(err, &se) {
		if m := serverFault.FindStringSubmatch(string(se)); m != nil {
			code, convErr := strconv.Atoi(m[1])
			if convErr == nil {
				return &Fault{Code: code, Message: m[2]}
			}
		}
	}
	return err
}
