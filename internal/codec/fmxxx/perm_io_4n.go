package fmxxx

// IO ids usually reported in the 4-byte group.
const (
	PulseCountDin1    = 4
	AIn1              = 9
	FuelUsedGPS       = 12
	AvgFuelUse        = 13
	TotalOdometer     = 16
	TripOdometer      = 199
	GsmCellID         = 205
	UserID            = 238
	ActiveGsmOperator = 241
	IgnitionOnCounter = 449
	ExternalVoltage   = 800
	ConnQuality       = 1148
)
