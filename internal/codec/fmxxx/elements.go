package fmxxx

var (
	noYes = map[int64]string{0: "No", 1: "Yes"}

	customStatuses = "Custom Statuses"
)

var elements = map[uint16]Definition{
	DIn1:           {Label: "Digital Input 1", Values: map[int64]string{0: "0", 1: "1"}},
	PulseCountDin1: {Label: "Pulse counter DIN1"},
	AIn1:           {Label: "Analog Input 1", Dimension: "V"},
	SDStatus:       {Label: "SD Status", Values: map[int64]string{0: "Not present", 1: "Present"}},
	ICCID1:         {Label: "SIM ICCID1 number"},
	FuelUsedGPS:    {Label: "Fuel Used GPS"},
	AvgFuelUse:     {Label: "Average Fuel Use", Dimension: "L / 100 km"},
	ICCID2:         {Label: "SIM ICCID2 number"},
	EcoScore:       {Label: "Eco Score"},
	TotalOdometer:  {Label: "Total Odometer", Dimension: "m"},
	AxisX:          {Label: "Axis X", Dimension: "mg"},
	AxisY:          {Label: "Axis Y", Dimension: "mg"},
	AxisZ:          {Label: "Axis Z", Dimension: "mg"},
	BLEBatt2:       {Label: "BLE 2 Battery Voltage", Dimension: "%"},
	GSMSignal: {Label: "GSM Signal", Values: map[int64]string{
		1: "1", 2: "2", 3: "3", 4: "4", 5: "5",
	}},
	BLEBatt3:     {Label: "BLE 3 Battery Voltage", Dimension: "%"},
	BLEBatt4:     {Label: "BLE 4 Battery Voltage", Dimension: "%"},
	VehicleSpeed: {Label: "Speed", Dimension: "km/h"},
	BLETemp1:     {Label: "BLE 1 Temperature", Dimension: "C"},
	BLETemp2:     {Label: "BLE 2 Temperature", Dimension: "C"},
	BLETemp3:     {Label: "BLE 3 Temperature", Dimension: "C"},
	BLETemp4:     {Label: "BLE 4 Temperature", Dimension: "C"},
	BLEBatt1:     {Label: "BLE 1 Battery Voltage", Dimension: "%"},

	// OBD II
	DTCCount:             {Label: "Number of DTC"},
	EngineLoad:           {Label: "Calculated engine load value", Dimension: "%"},
	CoolantTemp:          {Label: "Engine coolant temperature", Dimension: "C"},
	ShortFuelTrim:        {Label: "Short term fuel trim 1", Dimension: "%"},
	FuelPressure:         {Label: "Fuel pressure", Dimension: "kPa"},
	IntakeMAP:            {Label: "Intake manifold absolute pressure", Dimension: "kPa"},
	EngineRPM:            {Label: "Engine RPM", Dimension: "rpm"},
	OBDSpeed:             {Label: "Vehicle speed", Dimension: "km/h"},
	TimingAdvance:        {Label: "Timing advance", Dimension: "O"},
	IntakeAirTemp:        {Label: "Intake air temperature", Dimension: "C"},
	MAFAirFlow:           {Label: "MAF air flow rate", Dimension: "g/sec, *0.01"},
	ThrottlePos:          {Label: "Throttle position", Dimension: "%"},
	RunTimeSinceStart:    {Label: "Run time since engine start", Dimension: "s"},
	DistanceMILOn:        {Label: "Distance traveled MIL on", Dimension: "Km"},
	RelFuelRailPressure:  {Label: "Relative fuel rail pressure", Dimension: "kPa*0.1"},
	DirFuelRailPressure:  {Label: "Direct fuel rail pressure", Dimension: "kPa*0.1"},
	CommandedEGR:         {Label: "Commanded EGR", Dimension: "%"},
	EGRError:             {Label: "EGR error", Dimension: "%"},
	OBDFuelLevel:         {Label: "Fuel level", Dimension: "%"},
	DistanceSinceCleared: {Label: "Distance traveled since codes cleared", Dimension: "Km"},
	BaroPressure:         {Label: "Barometric pressure", Dimension: "kPa"},
	ControlModuleVolt:    {Label: "Control module voltage", Dimension: "mV"},
	AbsoluteLoad:         {Label: "Absolute load value", Dimension: "%"},
	AmbientAirTemp:       {Label: "Ambient air temperature", Dimension: "C"},
	TimeRunMILOn:         {Label: "Time run with MIL on", Dimension: "min"},
	TimeSinceCleared:     {Label: "Time since trouble codes cleared", Dimension: "min"},
	AbsFuelRailPressure:  {Label: "Absolute fuel rail pressure", Dimension: "kPa*10"},
	HybridBattLife:       {Label: "Hybrid battery pack remaining life", Dimension: "%"},
	EngineOilTemp:        {Label: "Engine oil temperature", Dimension: "C"},
	FuelInjectionTiming:  {Label: "Fuel injection timing", Dimension: "O, *0.01"},
	EngineFuelRate:       {Label: "Engine fuel rate", Dimension: "L/h, *100"},

	ExtVolt:     {Label: "Ext Voltage", Dimension: "mV"},
	BatteryVolt: {Label: "Internal Battery Voltage", Dimension: "mV"},
	BattCurrent: {Label: "Internal Battery Current", Dimension: "mA"},
	GnssStatus: {Label: "GNSS Status", Values: map[int64]string{
		0: "OFF", 1: "ON with fix", 2: "ON without fix", 3: "In sleep state",
	}},
	PCBTemp: {Label: "PCB temperature", Dimension: "°C"},
	DataMode: {Label: "Data Mode", Values: map[int64]string{
		0: "Home On Stop", 1: "Home On Moving",
		2: "Roaming On Stop", 3: "Roaming On Moving",
		4: "Unknown On Stop", 5: "Unknown On Moving",
	}},
	BLEHumidity1: {Label: "BLE 1 Humidity", Dimension: "%RH"},
	BLEHumidity2: {Label: "BLE 2 Humidity", Dimension: "%RH"},
	BLEHumidity3: {Label: "BLE 3 Humidity", Dimension: "%RH"},
	BLEHumidity4: {Label: "BLE 4 Humidity", Dimension: "%RH"},
	BattLevel:    {Label: "Internal Battery level", Dimension: "%"},
	AutoGeofence: {Label: "Auto geofence"},
	DOut1:        {Label: "Digital Output"},
	GnssPDOP:     {Label: "PDOP", Dimension: "m"},
	GnssHDOP:     {Label: "HDOP", Dimension: "m"},
	TripOdometer: {Label: "Trip Odometer", Dimension: "m"},
	SleepMode: {Label: "Sleep Mode", Values: map[int64]string{
		0: "No Sleep", 1: "GPS Sleep", 2: "Deep Sleep",
	}},
	GsmCellID:            {Label: "GSM Cell ID"},
	GsmAreaCode:          {Label: "GSM Area Code"},
	NetworkType:          {Label: "Network Type"},
	UserID:               {Label: "User ID"},
	Ignition:             {Label: "Ignition", Values: noYes},
	Movement:             {Label: "Movement", Values: noYes},
	ActiveGsmOperator:    {Label: "GSM Operator"},
	GreenDrivingDuration: {Label: "Green Driving Event Duration", Dimension: "ms"},
	TowingDetection:      {Label: "Towing Detection", Values: map[int64]string{1: "Towing detected"}},
	CrashDetection: {Label: "Crash Detection", Values: map[int64]string{
		1: "Crash Detected", 2: "Crash Trace Record", 3: "Crash trace record(calibrated)",
	}},
	JammingDetection: {Label: "Jamming Detection", Values: map[int64]string{
		0: "Jamming Ended", 1: "Jamming Detected",
	}},
	TripEvent: {Label: "Trip Event", Values: map[int64]string{
		0: "Trip Ended", 1: "Trip Started", 2: "Business Status", 3: "Private Status",
		4: customStatuses, 5: customStatuses, 6: customStatuses,
		7: customStatuses, 8: customStatuses, 9: customStatuses,
	}},
	IdlingEvent: {Label: "Idling Event", Values: map[int64]string{
		0: "Idling ended event", 1: "Idling started event",
	}},
	UnplugEvent: {Label: "Unplug Event", Values: map[int64]string{1: "Send when unplug event happens"}},
	GreenDrivingType: {Label: "Green Driving Type", Values: map[int64]string{
		1: "Acceleration", 2: "Braking", 3: "Cornering",
	}},
	EcoDrivingValue:   {Label: "Eco driving value", Dimension: "G/rad"},
	OverspeedingEvent: {Label: "Overspeeding Event", Dimension: "km/h"},
	VIN:               {Label: "VIN"},
	CrashTraceData:    {Label: "Crash trace data"},
	FaultCodes:        {Label: "fault codes"},
	InstantMov:        {Label: "Instant Movement"},
	CustomScenario1:   {Label: "Custom scenario 1"},
	CustomScenario2:   {Label: "Custom scenario 2"},
	CustomScenario3:   {Label: "Custom scenario 3"},
	AccelCalibration:  {Label: "Accel calibration"},
	TimeFromLastFix:   {Label: "Time from last gnss fix", Dimension: "seconds"},
	IgnitionOnCounter: {Label: "Ignition On Counter", Dimension: "seconds"},
	ICCID:             {Label: "ICCID"},
	ExternalVoltage:   {Label: "External Voltage", Dimension: "mV"},
	DOut1Overcurrent:  {Label: "Digital Output 1 Overcurrent"},
	ConnQuality:       {Label: "Connectivity quality", Dimension: "dBm"},
	CrashAvgVector:    {Label: "Crash average vector", Dimension: "mG"},
	CrashMaxVector:    {Label: "Crash max vector", Dimension: "mG"},
	CurrentLogFile:    {Label: "Current log file"},
	MaxLogFileCount:   {Label: "Max log file count"},
}
