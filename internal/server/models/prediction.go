package models

import "time"

// PredictionFeatures are the soil and climate inputs of a recommendation.
type PredictionFeatures struct {
	N           float64 `json:"N"`
	P           float64 `json:"P"`
	K           float64 `json:"K"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"`
}

// PredictionLog is a stored recommendation made for a user.
type PredictionLog struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userId"`
	Features      PredictionFeatures `json:"inputFeatures"`
	PredictedCrop string             `json:"predictedCrop"`
	Confidence    float64            `json:"confidence"`
	ProcessingMS  int64              `json:"processingTimeMs,omitempty"`
	SessionID     string             `json:"sessionId,omitempty"`
	IPAddress     string             `json:"-"`
	UserAgent     string             `json:"-"`
	CreatedAt     time.Time          `json:"timestamp"`
}

// CropCount is one bucket of a crop distribution.
type CropCount struct {
	Crop  string `json:"crop"`
	Count int64  `json:"count"`
}

// UserPredictionStats summarizes one user's prediction history.
type UserPredictionStats struct {
	UserID            string      `json:"userId"`
	TotalPredictions  int64       `json:"totalPredictions"`
	AverageConfidence float64     `json:"averageConfidence"`
	FirstPredictionAt *time.Time  `json:"firstPrediction,omitempty"`
	LastPredictionAt  *time.Time  `json:"lastPrediction,omitempty"`
	CropDistribution  []CropCount `json:"cropDistribution"`
}

// GlobalStats summarizes predictions across all users.
type GlobalStats struct {
	TotalPredictions int64       `json:"totalPredictions"`
	TotalUsers       int64       `json:"totalUsers"`
	CropDistribution []CropCount `json:"cropDistribution"`
}
