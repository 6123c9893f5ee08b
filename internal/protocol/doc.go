// Package protocol implements the Lightify bridge binary protocol.
//
// This package handles framing, command construction and response decoding
// for the gateway that fans commands out to lights and groups. All functions
// are pure transforms: no entity state is kept here.
//
// # Frame Format
//
// Every message on the TCP stream (default port 4000) is one frame:
//   - Length: 2 bytes (little-endian), count of bytes that follow
//   - Payload: exactly Length bytes
//
// ReadFrame delimits frames on a stream; DecodeFrame validates a buffer that
// should hold exactly one frame and reports ErrMalformedFrame otherwise.
//
// # Request Payloads
//
// Requests start with a 6-byte header followed by an optional 8-byte
// addressing block and command data:
//
//	flag | opcode | 0x00 | 0x00 | 0x07 | sequence | [address] | [data]
//
// The addressing mode is chosen by Target:
//   - Global: flag 0x02, no address (ALL_LIGHTS_STATUS, GROUP_LIST)
//   - Group: flag 0x02, group id LE + 6 zero bytes
//   - Device: flag 0x00, 64-bit device address LE
//
// # Response Payloads
//
// Responses carry a 7-byte header. They do not say what they answer, so
// ParseResponse is always told the ResponseKind of the pending request:
//   - GroupList: count + 18-byte records (id, name)
//   - GroupInfo: id, name, count + 18-byte member records
//   - AllLightsStatus: count + 50-byte light records
//   - LightStatus: status block of one light at offset 27
//
// Payloads shorter than their declared records yield ErrMalformedPayload.
//
// # Usage Example
//
//	var seq protocol.Sequencer
//	payload, err := protocol.BuildLuminance(seq.Next(), protocol.GroupTarget(1), 80, 10)
//	if err != nil {
//	    return err
//	}
//	if err := protocol.WriteFrame(conn, payload); err != nil {
//	    return err
//	}
//
//	frame, err := protocol.ReadFrame(conn)
//	if err != nil {
//	    return err
//	}
//	resp, err := protocol.ParseResponse(protocol.KindGroupList, frame.Payload)
//
// # Thread Safety
//
// Builders and parsers are stateless. Sequencer uses atomic operations.
package protocol
