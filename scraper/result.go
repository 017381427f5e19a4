package scraper

// Page is a fetched HTML document.
type Page struct {
	// HTML is the raw page body.
	HTML string

	// Title is the text of the first <title> element.
	Title string

	// FinalURL is the URL after redirects. Relative image URLs resolve against it.
	FinalURL string

	StatusCode int
}
