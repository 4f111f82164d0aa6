//go:build samd51

package main

import (
	"math/bits"
	"runtime/volatile"
	"unsafe"
)

// SAMD51 RTC in MODE0 (32-bit counter) memory map
const (
	rtcBase          = 0x40002400
	rtcCTRLA         = rtcBase + 0x00 // 16-bit
	rtcINTENCLR      = rtcBase + 0x08 // 16-bit
	rtcINTENSET      = rtcBase + 0x0A // 16-bit
	rtcINTFLAG       = rtcBase + 0x0C // 16-bit
	rtcSYNCBUSY      = rtcBase + 0x10
	rtcCOUNT         = rtcBase + 0x18
	rtcCOMP0         = rtcBase + 0x20
	osc32kRTCCTRL    = 0x40001400 + 0x10
	mclkAPBAMASK     = 0x40000800 + 0x14
	mclkAPBAMaskRTC  = 1 << 9
	rtcselXOSC32K    = 5
	rtcCtrlaEnable   = 1 << 1
	rtcCtrlaMatchClr = 1 << 7
	rtcCtrlaCntSync  = 1 << 15
	rtcPrescalerPos  = 8
	rtcIntCMP0       = 1 << 8
	rtcSyncEnable    = 1 << 1
	rtcSyncCount     = 1 << 3
	rtcSyncComp0     = 1 << 5
)

var (
	rtcCtrlA    = (*volatile.Register16)(unsafe.Pointer(uintptr(rtcCTRLA)))
	rtcIntEnClr = (*volatile.Register16)(unsafe.Pointer(uintptr(rtcINTENCLR)))
	rtcIntEnSet = (*volatile.Register16)(unsafe.Pointer(uintptr(rtcINTENSET)))
	rtcIntFlag  = (*volatile.Register16)(unsafe.Pointer(uintptr(rtcINTFLAG)))
	rtcSyncBusy = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcSYNCBUSY)))
	rtcCount    = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcCOUNT)))
	rtcComp0    = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcCOMP0)))
	rtcSel      = (*volatile.Register8)(unsafe.Pointer(uintptr(osc32kRTCCTRL)))
	apbAMask    = (*volatile.Register32)(unsafe.Pointer(uintptr(mclkAPBAMASK)))
)

// SAMRTC drives the RTC from the 32.768 kHz crystal. COMP0 with MATCHCLR
// sets the overflow interval: the counter runs 0..COMP0 and the CMP0 flag
// is raised on the same tock the counter wraps to zero. The RTC lives in
// the backup domain and keeps counting through a system reset.
type SAMRTC struct{}

func rtcSync(mask uint32) {
	for rtcSyncBusy.Get()&mask != 0 {
	}
}

// Configure implements core.RTCDriver
func (SAMRTC) Configure(prescaler, overflowTocks uint32) {
	if prescaler == 0 || prescaler > 1024 || prescaler&(prescaler-1) != 0 {
		panic("samd51: RTC prescaler must be a power of two up to 1024")
	}

	apbAMask.SetBits(mclkAPBAMaskRTC)
	rtcSel.Set(rtcselXOSC32K)

	rtcCtrlA.ClearBits(rtcCtrlaEnable)
	rtcSync(rtcSyncEnable)

	// PRESCALER field value n divides by 2^(n-1).
	div := uint16(bits.TrailingZeros32(prescaler) + 1)
	rtcCtrlA.Set(div<<rtcPrescalerPos | rtcCtrlaMatchClr | rtcCtrlaCntSync)
	rtcComp0.Set(overflowTocks - 1)
	rtcSync(rtcSyncComp0)
	rtcCount.Set(0)
	rtcSync(rtcSyncCount)

	rtcIntFlag.Set(rtcIntCMP0)
	rtcIntEnClr.Set(0xFFFF)
	rtcIntEnSet.Set(rtcIntCMP0)

	rtcCtrlA.SetBits(rtcCtrlaEnable)
	rtcSync(rtcSyncEnable)
}

// Enabled implements core.RTCDriver
func (SAMRTC) Enabled() bool {
	return rtcCtrlA.HasBits(rtcCtrlaEnable)
}

// Counter implements core.RTCDriver
func (SAMRTC) Counter() uint32 {
	rtcSync(rtcSyncCount)
	return rtcCount.Get()
}

// OverflowPending implements core.RTCDriver
func (SAMRTC) OverflowPending() bool {
	return rtcIntFlag.HasBits(rtcIntCMP0)
}

// clearOverflow acknowledges the overflow interrupt
func (SAMRTC) clearOverflow() {
	rtcIntFlag.Set(rtcIntCMP0)
}

// enableInterrupt re-enables the overflow interrupt after a warm start,
// where Configure is skipped.
func (SAMRTC) enableInterrupt() {
	rtcIntEnSet.Set(rtcIntCMP0)
}
