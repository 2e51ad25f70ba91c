package handlers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
)

//go:embed openapi.json
var openAPISpec []byte

const openAPIPath = "/v1/openapi.json"

// docsPage renders the Redoc reference. Title and summary come from the
// embedded document so the page cannot drift from it.
var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}} v{{.Version}} reference</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <meta name="description" content="{{.Description}}" />
    <style>
      body {
        margin: 0;
        padding: 0;
        font-family: system-ui, sans-serif;
      }
      redoc {
        display: block;
        height: 100vh;
      }
      noscript p {
        padding: 1rem;
      }
    </style>
  </head>
  <body>
    <noscript>
      <p>{{.Title}}: the interactive reference needs JavaScript. The raw document is at <a href="{{.SpecURL}}">{{.SpecURL}}</a>.</p>
    </noscript>
    <redoc spec-url="{{.SpecURL}}"
      required-props-first="true"
      expand-responses="200,400,401,403"
      path-in-middle-panel="true"
      hide-hostname="true"
      theme='{"colors":{"primary":{"main":"#6d4c41"}},"sidebar":{"backgroundColor":"#faf6f2"}}'></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`))

type docsInfo struct {
	Title       string
	Version     string
	Description string
	SpecURL     string
}

var docsHTML = renderDocs(openAPISpec)

func renderDocs(spec []byte) []byte {
	var doc struct {
		Info docsInfo `json:"info"`
	}
	_ = json.Unmarshal(spec, &doc)
	info := doc.Info
	if info.Title == "" {
		info.Title = "Photo Restore API"
	}
	info.SpecURL = openAPIPath
	var buf bytes.Buffer
	if err := docsPage.Execute(&buf, info); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(docsHTML)
}
