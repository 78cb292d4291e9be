package api

import "net/http"

// demoPage is a minimal exercise surface for the four endpoints.
const demoPage = `<!DOCTYPE html>
<html>
<head><title>docharvest</title></head>
<body>
<h1>docharvest</h1>

<h2>Process a PDF</h2>
<form action="/process-pdf" method="post" enctype="multipart/form-data">
  <input type="file" name="file" accept="application/pdf">
  <button type="submit">Process (open)</button>
</form>
<form action="/process-pdf/enterprise" method="post" enctype="multipart/form-data">
  <input type="file" name="file" accept="application/pdf">
  <button type="submit">Process (enterprise)</button>
</form>

<h2>Scrape a URL</h2>
<p>POST JSON to <code>/scrape-web</code> or <code>/scrape-web/enterprise</code>:</p>
<pre>{"urls": ["https://example.com"]}</pre>
</body>
</html>
`

func (s *Server) handleDemoPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(demoPage))
}
