package model

type Image struct {
	ID       int64  `json:"id"`
	User     string `json:"user"`
	Filename string `json:"filename"`
}

// DefaultCategories are created for every new account.
var DefaultCategories = []string{
	"Nature & Outdoor",
	"Entertainment & Leisure",
	"Culture",
	"Food & Drink",
	"Adventure & Sports",
	"Festival & Event",
	"Wellness",
	"Accommodation",
}

type Category struct {
	ID      int64   `json:"id"`
	User    string  `json:"-"`
	Name    string  `json:"name"`
	Color   *string `json:"color"`
	ImageID *int64  `json:"image_id"`
	Image   string  `json:"image,omitempty"`
}

type Place struct {
	ID          int64     `json:"id"`
	User        string    `json:"-"`
	Name        string    `json:"name"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Place       string    `json:"place"`
	CategoryID  int64     `json:"category_id"`
	Category    *Category `json:"category,omitempty"`
	ImageID     *int64    `json:"image_id"`
	Image       string    `json:"image,omitempty"`
	AllowDog    *bool     `json:"allowdog"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Duration    *int      `json:"duration"`
	Favorite    *bool     `json:"favorite"`
	Visited     *bool     `json:"visited"`
	Restroom    *bool     `json:"restroom"`
	GPX         *string   `json:"gpx,omitempty"`
}
