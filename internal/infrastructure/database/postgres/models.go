package postgres

type telemetryModel struct {
	DeviceID  string `gorm:"column:device_id;primaryKey"`
	Timestamp int64  `gorm:"column:ts;primaryKey"`
	DataType  string `gorm:"column:data_type;primaryKey"`
	ExpiresAt int64  `gorm:"column:expires_at;index"`

	Temperature *float64 `gorm:"column:temperature"`
	Humidity    *float64 `gorm:"column:humidity"`
	Pressure    *float64 `gorm:"column:pressure"`
	Motion      *int     `gorm:"column:motion"`

	Voltage       *float64 `gorm:"column:voltage"`
	MilliampHours *float64 `gorm:"column:milliamp_hours"`
	VoltageMode   string   `gorm:"column:voltage_mode"`

	Method string `gorm:"column:method"`
	Text   string `gorm:"column:text"`

	Velocity *float64 `gorm:"column:velocity"`
	Bearing  *float64 `gorm:"column:bearing"`
	Distance *float64 `gorm:"column:distance"`
	Seconds  *int     `gorm:"column:seconds"`
	DOP      *float64 `gorm:"column:dop"`
	Journey  int64    `gorm:"column:journey_id"`
	JCount   int      `gorm:"column:jcount"`

	PreviousMode string `gorm:"column:previous_mode"`
	NewMode      string `gorm:"column:new_mode"`

	Lat            *float64 `gorm:"column:lat"`
	Lon            *float64 `gorm:"column:lon"`
	LocationSource string   `gorm:"column:location_source"`
	LocationName   string   `gorm:"column:location_name"`
	LocationAt     int64    `gorm:"column:location_at"`
}

func (telemetryModel) TableName() string {
	return "telemetry"
}

type deviceStateModel struct {
	DeviceID     string `gorm:"column:device_id;primaryKey"`
	SerialNumber string `gorm:"column:serial_number"`
	Fleet        string `gorm:"column:fleet"`
	LastSeen     int64  `gorm:"column:last_seen"`
	Status       string `gorm:"column:status"`
	Mode         string `gorm:"column:mode"`
	Locked       bool   `gorm:"column:locked"`
	LockPending  bool   `gorm:"column:lock_pending"`

	LocationLat    *float64 `gorm:"column:location_lat"`
	LocationLon    *float64 `gorm:"column:location_lon"`
	LocationSource string   `gorm:"column:location_source"`
	LocationName   string   `gorm:"column:location_name"`
	LocationAt     int64    `gorm:"column:location_at"`

	Temperature *float64 `gorm:"column:temperature"`
	Humidity    *float64 `gorm:"column:humidity"`
	Pressure    *float64 `gorm:"column:pressure"`
	Motion      *int     `gorm:"column:motion"`
	TelemetryAt int64    `gorm:"column:telemetry_at"`

	Voltage       *float64 `gorm:"column:voltage"`
	MilliampHours *float64 `gorm:"column:milliamp_hours"`
	PowerAt       int64    `gorm:"column:power_at"`

	FirmwareVersion string `gorm:"column:firmware_version"`
	NotecardVersion string `gorm:"column:notecard_version"`
	SKU             string `gorm:"column:sku"`
	USBPowered      bool   `gorm:"column:usb_powered"`

	CreatedAt *int64 `gorm:"column:created_at"`
	UpdatedAt int64  `gorm:"column:updated_at"`
}

func (deviceStateModel) TableName() string {
	return "device_states"
}

type journeyModel struct {
	DeviceID      string  `gorm:"column:device_id;primaryKey"`
	JourneyID     int64   `gorm:"column:journey_id;primaryKey"`
	Status        string  `gorm:"column:status;index"`
	StartTime     int64   `gorm:"column:start_time"`
	EndTime       int64   `gorm:"column:end_time"`
	PointCount    int     `gorm:"column:point_count"`
	TotalDistance float64 `gorm:"column:total_distance"`
}

func (journeyModel) TableName() string {
	return "journeys"
}

type alertModel struct {
	ID           string   `gorm:"column:id;primaryKey"`
	DeviceID     string   `gorm:"column:device_id;index"`
	Fleet        string   `gorm:"column:fleet"`
	Timestamp    int64    `gorm:"column:ts"`
	AlertType    string   `gorm:"column:alert_type"`
	Value        *float64 `gorm:"column:value"`
	Threshold    *float64 `gorm:"column:threshold"`
	Message      string   `gorm:"column:message"`
	Lat          *float64 `gorm:"column:lat"`
	Lon          *float64 `gorm:"column:lon"`
	Acknowledged string   `gorm:"column:acknowledged;index"`
}

func (alertModel) TableName() string {
	return "alerts"
}
