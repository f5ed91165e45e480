package dto

import "time"

// TriggerConversionResponse respuesta inmediata al disparar la conversión.
type TriggerConversionResponse struct {
	JobID string `json:"job_id"`
}

// PhaseCountersDTO convertidos y errores de una clase.
type PhaseCountersDTO struct {
	Converted int `json:"converted"`
	Errors    int `json:"errors"`
}

// ConversionJobResponse snapshot del job para polling.
type ConversionJobResponse struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"`
	StartTime       *time.Time       `json:"start_time,omitempty"`
	EndTime         *time.Time       `json:"end_time,omitempty"`
	CurrentPhase    string           `json:"current_phase,omitempty"`
	PercentComplete int              `json:"percent_complete"`
	Items           PhaseCountersDTO `json:"items"`
	Purchases       PhaseCountersDTO `json:"purchases"`
	Sales           PhaseCountersDTO `json:"sales"`
	Assets          PhaseCountersDTO `json:"assets"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}
