package fmxxx

// IO ids reported in the 8-byte and variable-length groups.
const (
	ICCID1         = 11
	ICCID2         = 14
	VIN            = 256
	CrashTraceData = 257
	FaultCodes     = 281
	ICCID          = 641
)
