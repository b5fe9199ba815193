package events

import "encoding/json"

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// EvaluationStartedData contains data for EvaluationStarted events
type EvaluationStartedData struct {
	EntityID string `json:"entity_id"`
	Sector   string `json:"sector,omitempty"`
}

// EventType returns the event type for EvaluationStartedData
func (d *EvaluationStartedData) EventType() EventType {
	return EvaluationStarted
}

// ReportGeneratedData contains data for ReportGenerated events
type ReportGeneratedData struct {
	ReportID   string   `json:"report_id"`
	EntityID   string   `json:"entity_id"`
	Category   string   `json:"category"`
	Score      *float64 `json:"score"`
	Narratives int      `json:"narratives"`
}

// EventType returns the event type for ReportGeneratedData
func (d *ReportGeneratedData) EventType() EventType {
	return ReportGenerated
}

// BatchCompletedData contains data for BatchCompleted events
type BatchCompletedData struct {
	Entities   int     `json:"entities"`
	DurationMS int64   `json:"duration_ms"`
	Failures   int     `json:"failures"`
	AvgScore   float64 `json:"avg_score"`
}

// EventType returns the event type for BatchCompletedData
func (d *BatchCompletedData) EventType() EventType {
	return BatchCompleted
}

// BenchmarksRefreshedData contains data for BenchmarksRefreshed events
type BenchmarksRefreshedData struct {
	Sector  string `json:"sector"`
	Metrics int    `json:"metrics"`
}

// EventType returns the event type for BenchmarksRefreshedData
func (d *BenchmarksRefreshedData) EventType() EventType {
	return BenchmarksRefreshed
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Databases int   `json:"databases"`
	SizeBytes int64 `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// MaintenanceCompletedData contains data for MaintenanceCompleted events
type MaintenanceCompletedData struct {
	ReportsPruned int64 `json:"reports_pruned"`
	CachePurged   int64 `json:"cache_purged"`
}

// EventType returns the event type for MaintenanceCompletedData
func (d *MaintenanceCompletedData) EventType() EventType {
	return MaintenanceCompleted
}

// ToMap converts typed event data into the map payload the bus carries.
// Round-trips through JSON so field names match the wire format.
func ToMap(data EventData) map[string]interface{} {
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
