package http

import (
	_ "embed"
	"net/http"
)

//go:embed modal.html
var modalPage []byte

// ModalHandler serves the modal shell page. The shell mounts the Villa
// iframe, forwards its window messages to the relay and obeys the frame
// commands streamed over SSE.
//
//	@Summary		Modal shell page
//	@Description	Serves the HTML shell that hosts the embedded sign-in iframe.
//	@Tags			Modal
//	@Produce		html
//	@Param			session_id	query	string	true	"session id"
//	@Param			ticket		query	string	true	"session ticket"
//	@Success		200
//	@Router			/modal [get].
func ModalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(modalPage)
	}
}
