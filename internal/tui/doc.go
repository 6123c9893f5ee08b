// Package tui implements the interactive lightify dashboard.
//
// The dashboard is a Bubble Tea program showing a bridge's cached groups and
// lights side by side. The highlighted entry can be switched on or off and
// dimmed in steps; group commands reach every member light. A refresh
// re-reads the whole bridge, and cache updates caused by any other caller of
// the same bridge redraw the screen as they arrive.
//
// All screens use RenderApplicationContainer for a consistent header, content
// and footer layout. Key bindings are declared with bubbles/key and listed in
// the footer by bubbles/help.
//
// # Usage
//
//	b, err := bridge.Dial(ctx, addr, bridge.Options{})
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//	return tui.Run(ctx, b, tui.Options{Name: addr})
//
// # Thread Safety
//
// Bridge listeners only signal a buffered channel; the model reloads the
// cache on the Bubble Tea goroutine, so all model updates stay on one
// goroutine.
package tui
