package gimbal

// Wire format, host <-> gimbal, little-endian throughout:
//
//	0xA5 0x5A | len | target | command | payload[len] | crc16 lo | crc16 hi
//
// len counts payload bytes only. The CRC (CRC16/XMODEM) covers
// len..payload.

const (
	sync0 = 0xA5
	sync1 = 0x5A

	headerSize  = 5 // sync(2) + len + target + command
	trailerSize = 2 // crc16
	maxPayload  = 64
)

// Frame is one decoded wire frame.
type Frame struct {
	Target  uint8
	Command uint8
	Data    []byte
}

// crc16 computes CRC16/XMODEM (poly 0x1021, init 0).
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// appendFrame encodes a frame and appends it to dst.
func appendFrame(dst []byte, target, command uint8, payload []byte) []byte {
	dst = append(dst, sync0, sync1, uint8(len(payload)), target, command)
	dst = append(dst, payload...)
	crc := crc16(dst[len(dst)-len(payload)-3:]) // len, target, command, payload
	return append(dst, uint8(crc&0xFF), uint8(crc>>8))
}

// decoder is a scanning frame decoder. It tolerates garbage between
// frames by resynchronizing on the sync bytes, and drops frames whose
// CRC does not check out.
type decoder struct {
	buf []byte
}

// Feed appends raw bytes and returns every complete, valid frame found.
func (d *decoder) Feed(data []byte) []Frame {
	d.buf = append(d.buf, data...)

	var frames []Frame
	for {
		// Hunt for the sync sequence.
		start := -1
		for i := 0; i+1 < len(d.buf); i++ {
			if d.buf[i] == sync0 && d.buf[i+1] == sync1 {
				start = i
				break
			}
		}
		if start < 0 {
			// Keep a trailing 0xA5 in case 0x5A arrives next.
			if n := len(d.buf); n > 0 && d.buf[n-1] == sync0 {
				d.buf = d.buf[n-1:]
			} else {
				d.buf = d.buf[:0]
			}
			return frames
		}
		d.buf = d.buf[start:]

		if len(d.buf) < headerSize {
			return frames
		}
		payloadLen := int(d.buf[2])
		if payloadLen > maxPayload {
			// Implausible length: false sync, skip one byte and rescan.
			d.buf = d.buf[1:]
			continue
		}
		total := headerSize + payloadLen + trailerSize
		if len(d.buf) < total {
			return frames
		}

		body := d.buf[2 : headerSize+payloadLen] // len, target, command, payload
		wireCRC := uint16(d.buf[total-2]) | uint16(d.buf[total-1])<<8
		if crc16(body) != wireCRC {
			// Corrupt frame: drop the sync and resynchronize.
			d.buf = d.buf[1:]
			continue
		}

		data := make([]byte, payloadLen)
		copy(data, d.buf[headerSize:headerSize+payloadLen])
		frames = append(frames, Frame{
			Target:  d.buf[3],
			Command: d.buf[4],
			Data:    data,
		})
		d.buf = d.buf[total:]
	}
}
