// Package deepblu implements the Deepblu ASCII-hex framed protocol
// (spec.md §6): `'#' hh(cmd) hh(csum) hh(size*2) hh*(data) '\n'`, reply
// frames use `'$'` in place of `'#'`.
package deepblu

import "github.com/divelogio/divecore/internal/bytesx"

const (
	reqMarker   byte = '#'
	replyMarker byte = '$'
)

// Command codes relevant to dive download; the rest of Deepblu's command
// set is out of scope per spec.md §1.
const (
	cmdHandshake byte = 0x00
	cmdDiveCount byte = 0xA0
	cmdDiveData  byte = 0xA1
)

// encodeFrame builds one Deepblu request frame. sizeField carries
// 2*len(data) per the wire layout; the checksum is the two's complement
// of the modular-8 sum over cmd, sizeField, and data (spec.md §6/§8 S5).
func encodeFrame(cmd byte, data []byte) []byte {
	sizeField := byte(len(data) * 2)
	csum := checksum(cmd, sizeField, data)

	out := make([]byte, 0, 7+len(data)*2)
	out = append(out, reqMarker)
	out = appendHexByte(out, cmd)
	out = appendHexByte(out, csum)
	out = appendHexByte(out, sizeField)
	for _, b := range data {
		out = appendHexByte(out, b)
	}
	out = append(out, '\n')
	return out
}

// checksum computes the frame's checksum byte: the value that makes
// (cmd + sizeField + sum(data) + checksum) mod 256 == 0.
func checksum(cmd, sizeField byte, data []byte) byte {
	s := uint8(cmd) + sizeField + bytesx.Sum8(data)
	return uint8(-int8(s))
}

// decodeFrame parses a Deepblu reply frame (marker '$'), validating its
// checksum. ok is false on any framing or checksum violation.
func decodeFrame(raw []byte) (cmd byte, data []byte, ok bool) {
	if len(raw) < 7 || raw[0] != replyMarker || raw[len(raw)-1] != '\n' {
		return 0, nil, false
	}
	body := raw[1 : len(raw)-1]
	if len(body) < 6 {
		return 0, nil, false
	}

	cmdByte, good := bytesx.HexDecodeByte(body[0], body[1])
	if !good {
		return 0, nil, false
	}
	csumByte, good := bytesx.HexDecodeByte(body[2], body[3])
	if !good {
		return 0, nil, false
	}
	sizeField, good := bytesx.HexDecodeByte(body[4], body[5])
	if !good {
		return 0, nil, false
	}

	dataHex := string(body[6:])
	if len(dataHex) != int(sizeField) {
		return 0, nil, false
	}
	dataBytes, good := bytesx.HexDecodeString(dataHex)
	if !good {
		return 0, nil, false
	}

	if checksum(cmdByte, sizeField, dataBytes) != csumByte {
		return cmdByte, dataBytes, false
	}
	return cmdByte, dataBytes, true
}

func appendHexByte(dst []byte, b byte) []byte {
	h := bytesx.HexEncodeByte(b)
	return append(dst, h[0], h[1])
}
