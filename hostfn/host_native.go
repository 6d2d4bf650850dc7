//go:build !(tinygo || wasip1)

package hostfn

import "errors"

// ErrNoHost is the panic value of Default when no host is installed.
var ErrNoHost = errors.New("hostfn: no host installed")

var installed Host

// Install makes h the host returned by Default and returns a function that
// restores the previous one. Execution is single threaded; installing a
// host while a contract runs is a usage bug.
func Install(h Host) (restore func()) {
	prev := installed
	installed = h
	return func() { installed = prev }
}

// Default returns the installed host.
func Default() Host {
	if installed == nil {
		panic(ErrNoHost)
	}
	return installed
}
