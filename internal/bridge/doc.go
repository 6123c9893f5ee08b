// Package bridge maintains one connection to a lighting bridge.
//
// The bridge protocol is half-duplex: a query is answered by the next frame
// the bridge sends, and responses do not say which query they answer. A
// Bridge therefore allows a single outstanding query, tracked as a
// RequestState, and decodes the next inbound frame according to that state.
//
// # Requests
//
// Request methods block until the response is decoded and applied to the
// cache:
//
//	b, err := bridge.Dial(ctx, bridge.Address("192.168.1.20", 0), bridge.Options{})
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	if err := b.RequestGroupList(ctx); err != nil {
//	    return err
//	}
//	for _, g := range b.Groups() {
//	    fmt.Println(g.ID, g.Name)
//	}
//
// A second request while one is outstanding fails immediately with a Busy
// error. A response that fails to decode still returns the connection to
// Idle and is reported as a protocol error. Requests are also bounded by
// Options.Timeout and by the caller's context.
//
// # Commands
//
// SendOnOff, SendLuminance, SendTemperature and SendColour are fire and
// forget. They only fail on bad arguments or transport errors, and on
// success update the cached lights they address.
//
// # Errors
//
// Every failure is a *BridgeError; use IsBusy, IsProtocolError,
// IsTransportError, IsTimeout, IsClosed and IsCancelled to classify it. A
// transport failure moves the connection to the terminal Disconnected
// state, after which every operation fails with a Closed error.
package bridge
