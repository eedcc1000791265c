package ingest

// Event type tags carried in the envelope's "file" field. The names follow
// the Notecard notefile convention: files the firmware writes directly
// (track.qo, alert.qo, ...) and files the Notecard emits on its own
// (_track.qo, _session.qo, ...).
const (
	FileTrack       = "track.qo"
	FilePower       = "power.qo"
	FileHealth      = "health.qo"
	FileTracking    = "_track.qo"
	FileGeolocation = "_geolocate.qo"
	FileAlert       = "alert.qo"
	FileCommandAck  = "command_ack.qo"
	FileSession     = "_session.qo"
)

// Operating modes reported by the device.
const (
	ModeDemo    = "demo"
	ModeTransit = "transit"
	ModeStorage = "storage"
)

// Location sources in priority order, best first.
const (
	SourceGPS           = "gps"
	SourceTriangulation = "triangulation"
	SourceTower         = "tower"
)

// Telemetry record discriminants.
const (
	DataTypeTelemetry  = "telemetry"
	DataTypePower      = "power"
	DataTypeHealth     = "health"
	DataTypeTracking   = "tracking"
	DataTypeModeChange = "mode_change"
)

// RawEvent is the inbound device-report envelope as delivered by the event
// router. It is untrusted input: every optional field may be absent and the
// body may carry fields belonging to a different event type.
type RawEvent struct {
	Device       string   `json:"device"`
	SerialNumber string   `json:"sn"`
	Fleets       []string `json:"fleets"`
	File         string   `json:"file"`
	When         int64    `json:"when"`
	Received     float64  `json:"received"`
	Body         *RawBody `json:"body"`

	BestLat          *float64 `json:"best_lat"`
	BestLon          *float64 `json:"best_lon"`
	BestLocationType string   `json:"best_location_type"`
	BestLocationWhen int64    `json:"best_location_when"`
	BestLocation     string   `json:"best_location"`

	TriLat  *float64 `json:"tri_lat"`
	TriLon  *float64 `json:"tri_lon"`
	TriWhen int64    `json:"tri_when"`

	TowerLat      *float64 `json:"tower_lat"`
	TowerLon      *float64 `json:"tower_lon"`
	TowerWhen     int64    `json:"tower_when"`
	TowerLocation string   `json:"tower_location"`

	// WhereWhen is the GPS fix capture time for _track.qo notes. Tracking
	// notes can be queued on the device and delivered late, so this is the
	// semantically correct event time when present.
	WhereWhen int64 `json:"where_when"`

	// FirmwareHost and FirmwareNotecard are JSON-encoded strings.
	FirmwareHost     string `json:"firmware_host"`
	FirmwareNotecard string `json:"firmware_notecard"`
	SKU              string `json:"sku"`
	PowerUSB         *bool  `json:"power_usb"`
}

// RawBody holds the union of all type-specific body fields.
type RawBody struct {
	// track.qo sensor readings
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
	Motion      *int     `json:"motion"`
	Locked      *bool    `json:"locked"`
	LockPending *bool    `json:"lock_pending"`

	// Reported operating mode; may ride along on any event type.
	Mode string `json:"mode"`

	// power.qo / health.qo battery fields
	Voltage       *float64 `json:"voltage"`
	MilliampHours *float64 `json:"milliamp_hours"`
	VoltageMode   string   `json:"voltage_mode"`

	// health.qo
	Method string `json:"method"`
	Text   string `json:"text"`

	// _track.qo kinematics
	Velocity *float64 `json:"velocity"`
	Bearing  *float64 `json:"bearing"`
	Distance *float64 `json:"distance"`
	Seconds  *int     `json:"seconds"`
	DOP      *float64 `json:"dop"`
	Journey  int64    `json:"journey"`
	JCount   int      `json:"jcount"`

	// alert.qo
	AlertType string   `json:"alert_type"`
	Value     *float64 `json:"value"`
	Threshold *float64 `json:"threshold"`
	Message   string   `json:"message"`

	// Some firmware versions report USB power inside the body.
	USB *bool `json:"usb"`
}

// Location is the best-available position resolved for an event.
type Location struct {
	Latitude  float64
	Longitude float64
	FixTime   int64 // unix seconds, 0 when the fix time is unknown
	Source    string
	Name      string
}

// SessionInfo carries firmware and power metadata extracted from the
// envelope, present on _session.qo and opportunistically on other events.
type SessionInfo struct {
	FirmwareVersion string
	NotecardVersion string
	SKU             string
	USBPowered      *bool
}

// NormalizedEvent is the canonical internal event every pipeline step
// consumes. It is built once per inbound request and never persisted
// itself; only records derived from it are.
type NormalizedEvent struct {
	DeviceID     string
	SerialNumber string
	Fleet        string
	File         string
	Timestamp    int64 // unix seconds
	ReceivedAt   float64
	Body         RawBody
	Location     *Location
	Session      SessionInfo
}

// TelemetryRecord is one append-only time-series row, keyed by
// (device_id, ts, data_type). Redelivery of the same event overwrites the
// row rather than duplicating it.
type TelemetryRecord struct {
	DeviceID  string
	Timestamp int64 // unix seconds
	DataType  string
	ExpiresAt int64 // unix seconds, rows past this are purged

	Temperature *float64
	Humidity    *float64
	Pressure    *float64
	Motion      *int

	Voltage       *float64
	MilliampHours *float64
	VoltageMode   string

	Method string
	Text   string

	Velocity *float64
	Bearing  *float64
	Distance *float64
	Seconds  *int
	DOP      *float64
	Journey  int64
	JCount   int

	PreviousMode string
	NewMode      string

	Location *Location
}

// DeviceState is the single current-value snapshot per device, distinct
// from the append-only telemetry history. The stored status only ever
// records liveness ("online" or a forced "alert"); staleness-derived
// "offline" is computed by readers.
type DeviceState struct {
	DeviceID     string
	SerialNumber string
	Fleet        string
	LastSeen     int64
	Status       string
	Mode         string
	Locked       bool
	LockPending  bool

	LocationLat    *float64
	LocationLon    *float64
	LocationSource string
	LocationName   string
	LocationAt     int64

	Temperature *float64
	Humidity    *float64
	Pressure    *float64
	Motion      *int
	TelemetryAt int64

	Voltage       *float64
	MilliampHours *float64
	PowerAt       int64

	FirmwareVersion string
	NotecardVersion string
	SKU             string
	USBPowered      bool

	CreatedAt int64
	UpdatedAt int64
}

// Journey statuses.
const (
	JourneyActive    = "active"
	JourneyCompleted = "completed"
)

// Journey is one aggregate row per (device_id, journey_id), where the
// journey id is the unix time in seconds of the journey's first point.
// Times on the record are in milliseconds.
type Journey struct {
	DeviceID      string
	JourneyID     int64
	Status        string
	StartTime     int64
	EndTime       int64
	PointCount    int
	TotalDistance float64
}

// Alert is an immutable threshold-breach record. Acknowledged is
// string-typed so it can serve as a filterable index key.
type Alert struct {
	ID           string
	DeviceID     string
	Fleet        string
	Timestamp    int64
	AlertType    string
	Value        *float64
	Threshold    *float64
	Message      string
	Lat          *float64
	Lon          *float64
	Acknowledged string
}
