// Package msgs defines the messages exchanged with a radar daemon.
package msgs

// Messages are carried in a Typed envelope which tells the message type
// and correlates replies with commands by sequence number.
//
// Producer: rd03dd (events and replies)
// Consumer: remote clients, rd03dmon
