package fmxxx

// IO ids usually reported in the 2-byte group.
const (
	EcoScore             = 15
	AxisX                = 17
	AxisY                = 18
	AxisZ                = 19
	VehicleSpeed         = 24
	BLETemp1             = 25
	BLETemp2             = 26
	BLETemp3             = 27
	BLETemp4             = 28
	DTCCount             = 30
	EngineRPM            = 36
	MAFAirFlow           = 40
	RunTimeSinceStart    = 42
	DistanceMILOn        = 43
	RelFuelRailPressure  = 44
	DirFuelRailPressure  = 45
	DistanceSinceCleared = 49
	ControlModuleVolt    = 51
	TimeRunMILOn         = 54
	TimeSinceCleared     = 55
	AbsFuelRailPressure  = 56
	EngineOilTemp        = 58
	FuelInjectionTiming  = 59
	EngineFuelRate       = 60
	ExtVolt              = 66
	BatteryVolt          = 67
	BattCurrent          = 68
	PCBTemp              = 70
	BLEHumidity1         = 86
	BLEHumidity2         = 104
	BLEHumidity3         = 106
	BLEHumidity4         = 108
	GnssPDOP             = 181
	GnssHDOP             = 182
	GsmAreaCode          = 206
	GreenDrivingDuration = 243
	EcoDrivingValue      = 254
	OverspeedingEvent    = 255
	TimeFromLastFix      = 386
	CrashAvgVector       = 1429
	CrashMaxVector       = 1432
)
