// Package gimbal implements the serial link to a Feiyu Tech two-axis
// gimbal running the 1.15 "rocker position mode" firmware.
//
// The gimbal carries independent MCUs per axis, addressed as frame
// targets: MCU0 owns yaw, MCU2 owns pitch. Joystick-emulation packets
// sent to MCU0 are forwarded on to MCU2.
package gimbal

import "encoding/binary"

// MCU targets.
const (
	TargetYaw   uint8 = 0
	TargetRoll  uint8 = 1
	TargetPitch uint8 = 2
)

// Commands.
const (
	CmdControl  uint8 = 0x01 // joystick-emulation control packet
	CmdMotors   uint8 = 0x03 // motor power on/off
	CmdSetParam uint8 = 0x05 // write one int16 parameter
	CmdGetParam uint8 = 0x06 // read one int16 parameter
)

// Parameter numbers.
const (
	ParamFollowVel    uint8 = 0x03 // follow-loop velocity output
	ParamYawEncoder   uint8 = 0x2c // absolute magnetic encoder on the yaw axis
	ParamFollowEnable uint8 = 0x63 // per-axis heading-follow enable
)

// Packet is one outbound framed message.
type Packet struct {
	Target  uint8
	Command uint8
	Data    []byte
}

// ControlData builds the payload of a CmdControl packet: three int16
// fields followed by the mode byte. The first field is the pitch
// command; the other two belong to a wiring topology not used here and
// stay zero. Mode 1 selects joystick emulation.
func ControlData(pitch int16) []byte {
	data := make([]byte, 7)
	binary.LittleEndian.PutUint16(data[0:], uint16(pitch))
	binary.LittleEndian.PutUint16(data[2:], 0)
	binary.LittleEndian.PutUint16(data[4:], 0)
	data[6] = 1
	return data
}
