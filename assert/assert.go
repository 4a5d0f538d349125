package assert

import "github.com/oomph-ac/netmove/oerror"

// IsTrue panics if ok is false. It is used for invariants that can only be
// broken by a programming error, never by network input.
func IsTrue(ok bool, message string, args ...interface{}) {
	if !ok {
		panic(oerror.New(message, args...))
	}
}
