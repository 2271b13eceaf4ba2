package models

// Category is a named movie bucket used to partition catalog listings.
// The set is closed; display metadata is resolved once at configuration
// time, not re-derived per request.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	IconColor string `json:"icon_color"`
	Accent    string `json:"accent"`
}

var Categories = []Category{
	{ID: "now_playing", Name: "Now Playing", Icon: "star-icon", IconColor: "gold", Accent: "green"},
	{ID: "upcoming", Name: "Upcoming", Icon: "star-icon", IconColor: "gold", Accent: "pink"},
	{ID: "popular", Name: "Popular", Icon: "star-icon", IconColor: "gold", Accent: "blue"},
	{ID: "top_rated", Name: "Top Rated", Icon: "star-icon", IconColor: "gold", Accent: "orange"},
}

// CategoryByID looks up a category variant; ok is false for unknown ids.
func CategoryByID(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
