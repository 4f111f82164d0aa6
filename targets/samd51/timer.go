//go:build samd51

package main

import (
	"runtime/volatile"
	"unsafe"

	"device/sam"
)

// SAMD51 TC0 in 16-bit mode memory map
const (
	tc0Base       = 0x40003800
	tcCTRLA       = tc0Base + 0x00
	tcINTENSET    = tc0Base + 0x09 // 8-bit
	tcINTFLAG     = tc0Base + 0x0A // 8-bit
	tcWAVE        = tc0Base + 0x0C // 8-bit
	tcSYNCBUSY    = tc0Base + 0x10
	tcCOUNT       = tc0Base + 0x14 // 16-bit
	tcCC0         = tc0Base + 0x1C // 16-bit
	tcCtrlaEnable = 1 << 1
	tcCtrlaRunStb = 1 << 6
	tcDiv64       = 6 << 8
	tcWaveMFRQ    = 1
	tcIntOVF      = 1 << 0
	tcSyncEnable  = 1 << 1
	tcSyncCount   = 1 << 4
	tcSyncCC0     = 1 << 6

	// GCLK generator 4 runs from XOSC32K and feeds TC0/TC1 (channel 9).
	gclkBase         = 0x40001C00
	gclkGENCTRL4     = gclkBase + 0x20 + 4*4
	gclkPCHCTRLTC0   = gclkBase + 0x80 + 4*9
	gclkSrcXOSC32K   = 0x05
	gclkGenEnable    = 1 << 8
	gclkChanEnable   = 1 << 6
	gclkGen4         = 4
	mclkAPBAMaskTC0  = 1 << 14
	nvicICPR         = 0xE000E280
	timerIRQ         = sam.IRQ_TC0
	timerIRQWord     = nvicICPR + 4*(timerIRQ/32)
	timerIRQPosition = timerIRQ % 32
)

var (
	tcCtrlA    = (*volatile.Register32)(unsafe.Pointer(uintptr(tcCTRLA)))
	tcIntEnSet = (*volatile.Register8)(unsafe.Pointer(uintptr(tcINTENSET)))
	tcIntFlag  = (*volatile.Register8)(unsafe.Pointer(uintptr(tcINTFLAG)))
	tcWave     = (*volatile.Register8)(unsafe.Pointer(uintptr(tcWAVE)))
	tcSyncBusy = (*volatile.Register32)(unsafe.Pointer(uintptr(tcSYNCBUSY)))
	tcCount    = (*volatile.Register16)(unsafe.Pointer(uintptr(tcCOUNT)))
	tcCC0      = (*volatile.Register16)(unsafe.Pointer(uintptr(tcCC0)))
	genCtrl4   = (*volatile.Register32)(unsafe.Pointer(uintptr(gclkGENCTRL4)))
	pchCtrlTC0 = (*volatile.Register32)(unsafe.Pointer(uintptr(gclkPCHCTRLTC0)))
	nvicClear  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerIRQWord)))
)

// SAMTimer is the countdown timer: TC0 in match-frequency mode, clocked
// from the crystal through DIV64 (512 Hz). CC0 is the top value, so the
// overflow interrupt repeats every CC0+1 counts until Stop.
type SAMTimer struct{}

func tcSync(mask uint32) {
	for tcSyncBusy.Get()&mask != 0 {
	}
}

// InitTimer routes the crystal to TC0 and sets its mode. It runs once per
// boot; the timer is always stopped afterwards.
func InitTimer() {
	genCtrl4.Set(gclkSrcXOSC32K | gclkGenEnable)
	pchCtrlTC0.Set(gclkGen4 | gclkChanEnable)
	apbAMask.SetBits(mclkAPBAMaskTC0)

	tcCtrlA.ClearBits(tcCtrlaEnable)
	tcSync(tcSyncEnable)
	tcCtrlA.Set(tcDiv64 | tcCtrlaRunStb)
	tcWave.Set(tcWaveMFRQ)
	tcIntEnSet.Set(tcIntOVF)
}

// Start implements core.TimerDriver
func (t SAMTimer) Start(counts uint32) {
	t.Stop()
	tcCount.Set(0)
	tcSync(tcSyncCount)
	tcCC0.Set(uint16(counts - 1))
	tcSync(tcSyncCC0)
	tcCtrlA.SetBits(tcCtrlaEnable)
	tcSync(tcSyncEnable)
}

// Stop implements core.TimerDriver. The pending interrupt is cleared in
// the peripheral and in the NVIC.
func (SAMTimer) Stop() {
	tcCtrlA.ClearBits(tcCtrlaEnable)
	tcSync(tcSyncEnable)
	tcIntFlag.Set(tcIntOVF)
	nvicClear.Set(1 << timerIRQPosition)
}

// clearOverflow acknowledges the overflow interrupt
func (SAMTimer) clearOverflow() {
	tcIntFlag.Set(tcIntOVF)
}
