package deezer

// searchResponse is the Deezer /search response shape.
type searchResponse struct {
	Data  []trackResult `json:"data"`
	Total int           `json:"total"`
}

// trackResult is one search hit; only fields TuneSwipe reads.
type trackResult struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
	Artist  struct {
		Name string `json:"name"`
	} `json:"artist"`
}

// errorResponse wraps the error object Deezer returns with HTTP 200.
type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
