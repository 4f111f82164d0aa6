//go:build samd51

package main

import (
	"unsafe"

	"sensorcam/core"
)

// Backup RAM keeps its contents through a system reset and in backup
// sleep. The linker never places anything there.
const backupRAMBase = 0x47000000

// BackupRAM implements core.RetainedMemory on the SAMD51 backup SRAM.
type BackupRAM struct{}

// RTCState implements core.RetainedMemory
func (BackupRAM) RTCState() *core.RTCState {
	return (*core.RTCState)(unsafe.Pointer(uintptr(backupRAMBase)))
}
