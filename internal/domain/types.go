package domain

import "time"

type PropertyStatus string

const (
	StatusInProgress PropertyStatus = "in_progress"
	StatusCompleted  PropertyStatus = "completed"
	StatusDraft      PropertyStatus = "draft"
)

// Valid reports whether s is one of the known property statuses.
func (s PropertyStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusDraft:
		return true
	}
	return false
}

type Property struct {
	ID             string         `json:"id"`
	Client         string         `json:"client"`
	PropertyType   string         `json:"propertyType"`
	Area           float64        `json:"area"`
	Floors         int            `json:"floors"`
	Rooms          int            `json:"rooms"`
	Address        string         `json:"address"`
	InspectionDate time.Time      `json:"inspectionDate"`
	CreatedAt      time.Time      `json:"createdAt"`
	Status         PropertyStatus `json:"status"`
}

type Photo struct {
	ID             string    `json:"id"`
	ObservationID  int64     `json:"-"`
	ObservationKey string    `json:"observationKey"`
	StorageKey     string    `json:"-"`
	MimeType       string    `json:"mimeType"`
	Caption        string    `json:"caption,omitempty"`
	Position       int       `json:"position"`
	CapturedAt     time.Time `json:"timestamp"`
}

type Observation struct {
	ID            int64      `json:"-"`
	Key           string     `json:"key"`
	PropertyID    string     `json:"propertyId"`
	EnvironmentID string     `json:"environmentId"`
	CategoryID    string     `json:"category"`
	Status        Severity   `json:"status"`
	Description   string     `json:"observation"`
	Photos        []*Photo   `json:"photos"`
	CreatedAt     time.Time  `json:"timestamp"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// Profile identifies the inspector printed on the report cover.
type Profile struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// HasIdentity reports whether the cover should carry an author block.
func (p Profile) HasIdentity() bool {
	return p.Name != "" || p.Company != ""
}

type Settings struct {
	Theme        string `json:"theme"`
	AutoSave     bool   `json:"autoSave"`
	PhotoQuality string `json:"photoQuality"`
	PDFFormat    string `json:"pdfFormat"`
	Language     string `json:"language"`
}

func DefaultSettings() Settings {
	return Settings{
		Theme:        "light",
		AutoSave:     true,
		PhotoQuality: "high",
		PDFFormat:    "a4",
		Language:     "pt-BR",
	}
}
