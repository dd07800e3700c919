package connpool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Opener establishes physical connections. cfg is the resolved pool
// configuration; openers read the Key* entries and ignore the rest.
type Opener interface {
	Open(ctx context.Context, cfg map[string]string) (Conn, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, cfg map[string]string) (Conn, error)

func (f OpenerFunc) Open(ctx context.Context, cfg map[string]string) (Conn, error) {
	return f(ctx, cfg)
}

var (
	openersMu sync.RWMutex
	openers   = make(map[string]Opener)
)

// RegisterOpener makes an opener available under the driver name used in
// the "driver" configuration key.
// If RegisterOpener is called twice with the same name or if opener is nil,
// it panics.
func RegisterOpener(name string, opener Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	if opener == nil {
		panic("connpool: RegisterOpener opener is nil")
	}
	if _, dup := openers[name]; dup {
		panic("connpool: RegisterOpener called twice for driver " + name)
	}
	openers[name] = opener
}

func unregisterAllOpeners() {
	openersMu.Lock()
	defer openersMu.Unlock()
	// For tests.
	openers = make(map[string]Opener)
}

// Openers returns a sorted list of the names of the registered openers.
func Openers() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	list := make([]string, 0, len(openers))
	for name := range openers {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// DriverOpener dispatches to the opener registered for the configured
// driver. It is the default Opener of a Pool.
var DriverOpener Opener = OpenerFunc(openRegistered)

func openRegistered(ctx context.Context, cfg map[string]string) (Conn, error) {
	name := CredentialsFrom(cfg).Driver
	openersMu.RLock()
	opener, ok := openers[name]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connpool: unknown driver %q (forgotten import?)", name)
	}
	return opener.Open(ctx, cfg)
}
