package dto

// StationSummary is one row of the station list of a survey.
type StationSummary struct {
	StationID     string  `json:"station_id"`
	SiteName      string  `json:"site_name"`
	EventDate     string  `json:"event_date"`
	MaximumDepthM float64 `json:"maximum_depth_m"`
	Latitude      float64 `json:"decimal_latitude"`
	Longitude     float64 `json:"decimal_longitude"`
	HasMedia      bool    `json:"has_media"`
	FramesTotal   int     `json:"frames_total"`
	FramesDone    int     `json:"frames_done"`
	Complete      bool    `json:"complete"` // every extracted frame is annotated
}
