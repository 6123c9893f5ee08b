package bridge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
)

// pendingRequest is the single outstanding query of a connection.
type pendingRequest struct {
	op      protocol.Opcode
	kind    protocol.ResponseKind
	address uint64 // light queried by LIGHT_STATUS
	done    chan error
}

// resolve hands the outcome to the waiting caller. done is buffered, so the
// reader never blocks on a caller that already gave up.
func (p *pendingRequest) resolve(err error) {
	p.done <- err
}

// RequestGroupList refreshes the set of groups. Groups the bridge no longer
// reports are dropped from the cache.
func (b *Bridge) RequestGroupList(ctx context.Context) error {
	return b.issue(ctx, protocol.OpGroupList, protocol.KindGroupList, 0, protocol.BuildGroupListQuery)
}

// RequestGroupInfo refreshes one group's name and members.
func (b *Bridge) RequestGroupInfo(ctx context.Context, groupID uint16) error {
	return b.issue(ctx, protocol.OpGroupInfo, protocol.KindGroupInfo, 0, func(seq uint8) []byte {
		return protocol.BuildGroupInfoQuery(seq, groupID)
	})
}

// RequestAllLightsStatus refreshes the status of every light the bridge reports.
func (b *Bridge) RequestAllLightsStatus(ctx context.Context) error {
	return b.issue(ctx, protocol.OpAllLightsStatus, protocol.KindAllLightsStatus, 0, protocol.BuildAllLightsStatusQuery)
}

// RequestLightStatus refreshes the status of the light at address.
func (b *Bridge) RequestLightStatus(ctx context.Context, address uint64) error {
	return b.issue(ctx, protocol.OpLightStatus, protocol.KindLightStatus, address, func(seq uint8) []byte {
		return protocol.BuildLightStatusQuery(seq, address)
	})
}

// Refresh requests the group list, the members of every group, and the
// status of every light, stopping at the first failure.
func (b *Bridge) Refresh(ctx context.Context) error {
	if err := b.RequestGroupList(ctx); err != nil {
		return err
	}
	for _, g := range b.Groups() {
		if err := b.RequestGroupInfo(ctx, g.ID); err != nil {
			return err
		}
	}
	return b.RequestAllLightsStatus(ctx)
}

// issue sends one query and blocks until its response has been applied, the
// request times out, ctx ends, or the connection fails. Only one query may
// be outstanding; a second fails with Busy and changes nothing.
func (b *Bridge) issue(ctx context.Context, op protocol.Opcode, kind protocol.ResponseKind, address uint64, build func(seq uint8) []byte) error {
	name := op.String()

	if err := ctx.Err(); err != nil {
		return newError(ErrTypeCancelled, name, "context ended before the request was sent", err)
	}

	b.mu.Lock()
	switch {
	case b.state == StateDisconnected:
		err := b.closedError(name)
		b.mu.Unlock()
		return err
	case b.state != StateIdle:
		err := newError(ErrTypeBusy, name, fmt.Sprintf("request outstanding (%s)", b.state), nil)
		b.mu.Unlock()
		return err
	}

	p := &pendingRequest{op: op, kind: kind, address: address, done: make(chan error, 1)}
	b.pending = p
	b.state = awaitingState(kind)
	b.mu.Unlock()

	if err := b.write(name, build(b.seq.Next())); err != nil {
		return err
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case err := <-p.done:
		return err
	case <-timer.C:
		b.timeouts.Add(1)
		b.log.Warn("Request timed out", zap.String("op", name), zap.Duration("timeout", b.timeout))
		return b.abandon(p, newError(ErrTypeTimeout, name, fmt.Sprintf("no response within %s", b.timeout), nil))
	case <-ctx.Done():
		return b.abandon(p, newError(ErrTypeCancelled, name, "request cancelled", ctx.Err()))
	}
}

// abandon gives up on p and returns the coordinator to Idle. If the response
// won the race, its outcome is returned instead of reason.
func (b *Bridge) abandon(p *pendingRequest, reason *BridgeError) error {
	b.mu.Lock()
	if b.pending != p {
		b.mu.Unlock()
		return <-p.done
	}
	b.pending = nil
	b.state = StateIdle
	b.mu.Unlock()
	return reason
}

// handleFrame correlates an inbound payload with the outstanding request.
// The request is resolved whether or not the payload decodes.
func (b *Bridge) handleFrame(payload []byte) {
	b.mu.Lock()
	p := b.pending
	if p == nil {
		b.mu.Unlock()
		b.unsolicited.Add(1)
		logging.LogRawBytes("Discarding unsolicited frame", payload)
		return
	}
	b.pending = nil
	b.state = StateIdle

	var (
		update store.Update
		result error
	)
	resp, err := protocol.ParseResponse(p.kind, payload)
	if err != nil {
		result = newError(ErrTypeProtocol, p.op.String(), "failed to decode response", err)
	} else {
		update = b.apply(p, resp)
	}
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	if result != nil {
		b.protocolErrors.Add(1)
		b.log.Warn("Malformed response", zap.String("op", p.op.String()), zap.Error(err))
	} else {
		b.log.Debug("Response applied", zap.String("response", resp.String()))
		notify(listeners, update)
	}

	p.resolve(result)
}

// apply reconciles a decoded response into the cache. Callers hold mu.
func (b *Bridge) apply(p *pendingRequest, resp protocol.Response) store.Update {
	switch r := resp.(type) {
	case *protocol.GroupListResponse:
		return b.cache.ApplyGroupList(r)
	case *protocol.GroupInfoResponse:
		return b.cache.ApplyGroupInfo(r)
	case *protocol.AllLightsStatusResponse:
		return b.cache.ApplyAllLightsStatus(r)
	case *protocol.LightStatusResponse:
		return b.cache.ApplyLightStatus(p.address, r)
	default:
		return store.Update{}
	}
}
