package catalog

import "time"

/*
The catalog is a record of what a delivery run produced.
The catalog is a primitive for verifying, inventorying and auditing
deliveries handed to downstream partners.
*/

// File summarizes one staging file shipped by a run.
type File struct {
	Name       string `json:"name"`
	NumRecords int    `json:"num_records"`
	NumNew     int    `json:"num_new"`
	NumOld     int    `json:"num_old"`
}

// Catalog represents the manifest of a single delivery run.
type Catalog struct {
	DeliveryID          string    `json:"delivery_id"`
	DeliveryName        string    `json:"delivery_name"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	Source              string    `json:"source"`
	NumSourceRecords    int       `json:"num_source_records"`
	NumRecordsProcessed int       `json:"num_records_processed"`
	NumRecordsDropped   int       `json:"num_records_dropped"`
	Files               []File    `json:"files"`
	Completed           bool      `json:"completed"`
}
