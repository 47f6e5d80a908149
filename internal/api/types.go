package api

import "time"

// Overview summarizes the remote service.
type Overview struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Healthy bool   `json:"healthy"`
}

// Item is one entry on the remote workboard.
type Item struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the item needs no further attention.
func (i Item) Done() bool {
	return i.Status == "done"
}

type itemListResponse struct {
	Items []Item `json:"items"`
}
