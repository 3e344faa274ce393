package entities

// GreenhouseSnapshot is the persisted shape of one greenhouse.
type GreenhouseSnapshot struct {
	ID              int                 `json:"id"`
	Sensors         []SensorSnapshot    `json:"sensors"`
	Appliances      []ApplianceSnapshot `json:"appliances"`
	Air             AirSnapshot         `json:"air"`
	Soil            SoilSnapshot        `json:"soil"`
	NextSensorID    int                 `json:"nextSensorId"`
	NextApplianceID int                 `json:"nextApplianceId"`
}

type SensorSnapshot struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

type ApplianceSnapshot struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Powered bool   `json:"powered"`
}

type AirSnapshot struct {
	Humidity          float64 `json:"humidity"`
	Lux               float64 `json:"lux"`
	Temperature       float64 `json:"temperature"`
	TargetHumidity    float64 `json:"targetHumidity"`
	TargetTemperature float64 `json:"targetTemperature"`
	TargetLux         float64 `json:"targetLux"`
}

type SoilSnapshot struct {
	Moisture float64 `json:"moisture"`
	PH       float64 `json:"ph"`
	Nitrogen float64 `json:"nitrogen"`
}
