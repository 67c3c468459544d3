package domain

import "fmt"

// SpeedTestResult is one crowd-sourced connectivity measurement.
type SpeedTestResult struct {
	ID           int64      `json:"id"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	City         string     `json:"city,omitempty"`
	Provider     string     `json:"provider"`
	DownloadMbps float64    `json:"downloadSpeed"`
	UploadMbps   float64    `json:"uploadSpeed"`
	PingMs       float64    `json:"ping"`
	CreatedAt    *Timestamp `json:"createdAt,omitempty"`
}

type SpeedTestInput struct {
	Latitude     float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64 `json:"longitude" validate:"min=-180,max=180"`
	City         string  `json:"city,omitempty" validate:"max=100"`
	Provider     string  `json:"provider" validate:"required,max=100"`
	DownloadMbps float64 `json:"downloadSpeed" validate:"min=0"`
	UploadMbps   float64 `json:"uploadSpeed" validate:"min=0"`
	PingMs       float64 `json:"ping" validate:"min=0"`
}

// SpeedTestFilter narrows a listing; empty fields do not filter.
type SpeedTestFilter struct {
	City     string
	Provider string
}

// Bounds is a geographic bounding box, inclusive on all edges.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Validate checks the box is well-formed.
func (b Bounds) Validate() error {
	switch {
	case b.MinLat < -90 || b.MaxLat > 90:
		return NewValidationError("latitude", "must be within [-90, 90]")
	case b.MinLng < -180 || b.MaxLng > 180:
		return NewValidationError("longitude", "must be within [-180, 180]")
	case b.MinLat > b.MaxLat:
		return NewValidationError("minLat", fmt.Sprintf("%v exceeds maxLat %v", b.MinLat, b.MaxLat))
	case b.MinLng > b.MaxLng:
		return NewValidationError("minLng", fmt.Sprintf("%v exceeds maxLng %v", b.MinLng, b.MaxLng))
	}
	return nil
}

// Contains reports whether the point lies inside the box.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// SpeedTestStats aggregates measurements per city or per provider.
type SpeedTestStats struct {
	Key         string  `json:"key"`
	Count       int     `json:"count"`
	AvgDownload float64 `json:"avgDownloadSpeed"`
	AvgUpload   float64 `json:"avgUploadSpeed"`
	AvgPing     float64 `json:"avgPing"`
	MaxDownload float64 `json:"maxDownloadSpeed"`
}
