// Package store holds the reconciled group and light cache of a bridge.
//
// Groups and lights are created on first sighting in a decoded response and
// are never deleted individually. A group list is authoritative for which
// groups exist; group info is authoritative for one group's members. Light
// status responses only ever merge.
package store
