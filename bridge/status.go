package bridge

import "fmt"

// Status is the value a load hook hands back to the VM.
type Status int32

// StatusErr is returned when initialization failed. The success value is
// VM specific and comes from VM.SuccessStatus.
const StatusErr Status = -1

// Version16 is the conventional success status of VMs speaking the 1.6
// native interface.
const Version16 Status = 0x00010006

func (s Status) String() string {
	if s == StatusErr {
		return "ERR"
	}
	return fmt.Sprintf("0x%08x", int32(s))
}
