package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumEvents      int           // Number of rating events to generate
	Users          int           // Number of distinct synthetic users
	DuplicateRatio float64       // Fraction of events that replay an earlier event id
	TopN           int           // Recommendations fetched per user
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	WaitTimeout    time.Duration // How long to wait for queued ratings to apply
	OutputFile     string        // Optional JSON dump of generated events
	LogFile        string        // Log file for run output
	Verbose        bool          // Enable verbose logging
}

// Event is a rating submitted to POST /ratings.
type Event struct {
	EventID string  `json:"event_id"`
	UserID  string  `json:"user_id"`
	ItemID  string  `json:"item_id"`
	Rating  float64 `json:"rating"`
	TS      string  `json:"ts"`
}

// Movie is the subset of a catalog item the generator needs.
type Movie struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
}

// Recommendation is one ranked entry returned by the service.
type Recommendation struct {
	ItemID             string  `json:"item_id"`
	Title              string  `json:"title"`
	Score              float64 `json:"score"`
	ContentScore       float64 `json:"content_score"`
	CollaborativeScore float64 `json:"collaborative_score"`
}

// AckResponse is the body returned by POST /ratings.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ServerStats is the subset of GET /stats used to track processing.
type ServerStats struct {
	QueueLength    int   `json:"queue_length"`
	RatingsApplied int64 `json:"ratings_applied"`
}

// Stats holds run statistics.
type Stats struct {
	MoviesLoaded             int
	EventsGenerated          int
	EventsSubmitted          int
	EventsAccepted           int
	EventsDuplicate          int
	EventsThrottled          int
	EventsFailed             int
	UsersChecked             int
	RecommendationsRetrieved int
	Violations               int
	StartTime                time.Time
	EndTime                  time.Time
	Duration                 time.Duration
}
