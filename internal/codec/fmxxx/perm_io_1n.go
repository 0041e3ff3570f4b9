package fmxxx

// IO ids usually reported in the 1-byte group.
const (
	DIn1             = 1
	SDStatus         = 10
	GSMSignal        = 21
	BLEBatt2         = 20
	BLEBatt3         = 22
	BLEBatt4         = 23
	BLEBatt1         = 29
	EngineLoad       = 31
	CoolantTemp      = 32
	ShortFuelTrim    = 33
	FuelPressure     = 34
	IntakeMAP        = 35
	OBDSpeed         = 37
	TimingAdvance    = 38
	IntakeAirTemp    = 39
	ThrottlePos      = 41
	CommandedEGR     = 46
	EGRError         = 47
	OBDFuelLevel     = 48
	BaroPressure     = 50
	AbsoluteLoad     = 52
	AmbientAirTemp   = 53
	HybridBattLife   = 57
	GnssStatus       = 69
	DataMode         = 80
	BattLevel        = 113
	AutoGeofence     = 175
	DOut1            = 179
	SleepMode        = 200
	NetworkType      = 237
	Ignition         = 239
	Movement         = 240
	TowingDetection  = 246
	CrashDetection   = 247
	JammingDetection = 249
	TripEvent        = 250
	IdlingEvent      = 251
	UnplugEvent      = 252
	GreenDrivingType = 253
	InstantMov       = 303
	CustomScenario1  = 358
	CustomScenario2  = 359
	CustomScenario3  = 360
	AccelCalibration = 383
	DOut1Overcurrent = 841
	CurrentLogFile   = 13266
	MaxLogFileCount  = 13267
)
