// Package relay bridges a lighting bridge and an MQTT broker.
//
// The relay refreshes the bridge on an interval and publishes the state of
// every light and group as retained JSON. Commands published to the
// matching .../set topics are turned into bridge commands:
//
//	lightify/home/light/84182600000b2c1d/set
//	{"state":"ON","brightness":60,"transition":10}
//
//	lightify/home/group/3/set
//	{"color":{"r":255,"g":120,"b":0}}
//
// Availability of the relay itself is published to <prefix>/<bridge>/status
// as "online", with a retained "offline" last will.
package relay
