package models

// Movie is owned by the remote catalog; this service never mutates it.
type Movie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	Tagline      string  `json:"tagline,omitempty"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	Homepage     string  `json:"homepage,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
}

// MoviePage is one page of a paginated listing (category or wishlist).
type MoviePage struct {
	Results      []Movie `json:"results"`
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}
