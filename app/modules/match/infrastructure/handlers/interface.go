package matchhandlers

import "net/http"

// Handlers defines the HTTP surface of the match module.
type Handlers interface {
	// HandlePage renders the match page.
	HandlePage(w http.ResponseWriter, r *http.Request)

	// HandleRounds returns the grouped rounds of a match as JSON.
	HandleRounds(w http.ResponseWriter, r *http.Request)

	// HandleRoundChart returns a PNG bar chart of one round.
	HandleRoundChart(w http.ResponseWriter, r *http.Request)

	// HandleExport returns the match as an XLSX workbook.
	HandleExport(w http.ResponseWriter, r *http.Request)

	// HandleWebSocket streams every refreshed view of a match.
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}
