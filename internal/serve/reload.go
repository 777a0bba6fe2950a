package serve

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"sitegen/internal/render"
)

// EventsPath is the server-sent events endpoint previews subscribe to.
const EventsPath = "/_sitegen/events"

const reloadScript = `<script>new EventSource("` + EventsPath + `").onmessage=function(e){if(e.data==="reload")location.reload()}</script>
`

// reloadInjection puts the live reload client in front of </body>. It only
// touches responses of the preview server, never the files on disk.
var reloadInjection = &render.Injection{Marker: "</body>", HTML: reloadScript}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan string, 8)
	s.sseMu.Lock()
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()
	defer func() {
		s.sseMu.Lock()
		delete(s.sseConns, ch)
		s.sseMu.Unlock()
	}()

	fmt.Fprint(w, "data: hello\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// broadcast never blocks: a client that is not keeping up misses the event.
func (s *Server) broadcast(msg string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		select {
		case ch <- msg:
		default:
		}
	}
}

// servePage writes an HTML page with the reload client added. It reports
// false when the request does not resolve to an HTML file, leaving it to the
// file server.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) bool {
	p := path.Clean("/" + r.URL.Path)
	switch {
	case strings.HasSuffix(r.URL.Path, "/"):
		p = path.Join(p, "index.html")
	case path.Ext(p) != ".html":
		return false
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.Build.OutputRoot, filepath.FromSlash(p)))
	if err != nil {
		return false
	}
	body, _ := reloadInjection.Apply(string(data))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_, _ = w.Write([]byte(body))
	return true
}
