package models

// Тела HTTP-запросов админки.

// CreateLocationRequest — POST /locations/{level}.
type CreateLocationRequest struct {
	Name     string `json:"name"`
	Flag     string `json:"flag,omitempty"`
	ParentID int64  `json:"parent_id,omitempty"`
}

// RenameLocationRequest — PUT /locations/{level}/{id}.
type RenameLocationRequest struct {
	Name string `json:"name"`
}

// JournalResponse — GET /locations/journal.
type JournalResponse struct {
	Items []JournalEntry `json:"items"`
}
