package model

// TableInfo describes one database table for the admin introspection
// surface.
type TableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

type TableRecordsQuery struct {
	Page  int
	Limit int
}

// DatabaseStats is a point-in-time snapshot of the connection pool.
type DatabaseStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

type SystemHealth struct {
	Status        string        `json:"status"`
	Database      DatabaseStats `json:"database"`
	Goroutines    int           `json:"goroutines"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}
