package models

import "time"

// Session represents a patient workspace hosting one body map and one
// annotation board.
type Session struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patientId"`
	ReadOnly        bool      `json:"readOnly"`
	ImageID         string    `json:"imageId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	LastAccessed    time.Time `json:"lastAccessed"`
	PointCount      int       `json:"pointCount"`
	AnnotationCount int       `json:"annotationCount"`
}
