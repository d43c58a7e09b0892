package entities

import "time"

type CreateVehicleInput struct {
	UserID int
	Plate  string
	Make   string
	Model  string
	Class  string
}

type VehicleResponse struct {
	ID        int       `json:"id"`
	Plate     string    `json:"plate"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Class     string    `json:"class"`
	CreatedAt time.Time `json:"created_at"`
}

// ReservationEmailData feeds the notification templates.
type ReservationEmailData struct {
	UserEmail          string
	UserPhone          string
	ReservationCode    string
	LotName            string
	StartTimeFormatted string
	EndTimeFormatted   string
	Status             string
}
