package catalog

// Wire types for the Jikan v4 API. Successful responses wrap the payload in a
// "data" field, list endpoints add pagination.

// Manga is a catalog entry.
type Manga struct {
	MalID         int     `json:"mal_id"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	TitleEnglish  string  `json:"title_english"`
	TitleJapanese string  `json:"title_japanese"`
	Type          string  `json:"type"`
	Chapters      *int    `json:"chapters"`
	Volumes       *int    `json:"volumes"`
	Status        string  `json:"status"`
	Publishing    bool    `json:"publishing"`
	Synopsis      string  `json:"synopsis"`
	Score         float64 `json:"score"`
	ScoredBy      int     `json:"scored_by"`
	Rank          int     `json:"rank"`
	Popularity    int     `json:"popularity"`
	Images        Images  `json:"images"`
	Genres        []Genre `json:"genres"`
	Themes        []Genre `json:"themes"`
	Authors       []Named `json:"authors"`
}

// Genre is a genre/theme descriptor, also returned by the genres endpoint.
type Genre struct {
	MalID int    `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Count int    `json:"count,omitempty"`
}

// Named is a lightweight reference (author, magazine).
type Named struct {
	MalID int    `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// Images holds the image variants for an entry.
type Images struct {
	JPG  Image `json:"jpg"`
	WebP Image `json:"webp"`
}

// Image holds the resolution variants of one format.
type Image struct {
	ImageURL      string `json:"image_url"`
	SmallImageURL string `json:"small_image_url"`
	LargeImageURL string `json:"large_image_url"`
}

// Pagination is Jikan's list-page metadata.
type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	CurrentPage     int  `json:"current_page"`
	Items           struct {
		Count   int `json:"count"`
		Total   int `json:"total"`
		PerPage int `json:"per_page"`
	} `json:"items"`
}

// MangaPage is one page of manga results.
type MangaPage struct {
	Data       []Manga    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Recommendation is a related-title suggestion for an entry.
type Recommendation struct {
	Entry RecommendationEntry `json:"entry"`
	Votes int                 `json:"votes"`
}

// RecommendationEntry identifies the recommended title.
type RecommendationEntry struct {
	MalID  int    `json:"mal_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Images Images `json:"images"`
}

type single[T any] struct {
	Data T `json:"data"`
}

type list[T any] struct {
	Data []T `json:"data"`
}
