package messages

import "time"

// ReadingsMessage is published on greenhouse/<id>/readings after every tick.
type ReadingsMessage struct {
	GreenhouseID int       `json:"greenhouse_id"`
	Readings     []Reading `json:"readings"`
	Timestamp    time.Time `json:"timestamp"`
}

type Reading struct {
	SensorID int     `json:"sensor_id"`
	Kind     string  `json:"kind"`
	Value    float64 `json:"value"`
}
