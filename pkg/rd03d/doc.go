// Package rd03d implements the UART protocol of the RD-03D mmWave radar.
package rd03d

// The sensor talks two kinds of frames over one ordered byte stream:
//
//   command/ack: FD FC FB FA | len(u16) | word(u16) value... | 04 03 02 01
//   report:      AA FF 03 00 | 3 x 8 bytes of target data    | 55 CC
//
// Everything is little-endian. Commands are only accepted while the sensor
// is in configuration mode, and every command is answered by exactly one ack
// whose word is the command word with 0x0100 set, followed by a 16-bit status.
// Reports are streamed unsolicited while the sensor runs in report mode.
//
// Producer: byte source (UART read loop), feeding Session.OnBytes.
// Consumer: Session callers issuing commands and waiting for acks.
