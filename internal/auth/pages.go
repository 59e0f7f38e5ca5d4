package auth

import (
	"html/template"
	"net/http"
)

// Result pages shown in the user's browser after the redirect. Kept
// self-contained: no external assets, closable tab.
var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body {
    margin: 0;
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: {{.Background}};
    height: 100vh;
    display: flex;
    align-items: center;
    justify-content: center;
  }
  .card {
    text-align: center;
    background: white;
    padding: 3rem;
    border-radius: 12px;
    box-shadow: 0 20px 60px rgba(0, 0, 0, 0.3);
    max-width: 400px;
  }
  .icon {
    width: 80px;
    height: 80px;
    margin: 0 auto 1.5rem;
    background: {{.IconColor}};
    border-radius: 50%;
    display: flex;
    align-items: center;
    justify-content: center;
    font-size: 40px;
    color: white;
  }
  h1 { color: #333; margin-bottom: 1rem; font-size: 1.75rem; }
  p { color: #666; font-size: 1rem; line-height: 1.5; }
  .details { color: #999; font-size: 0.9rem; margin-top: 1rem; }
</style>
</head>
<body>
<div class="card">
  <div class="icon">{{.Icon}}</div>
  <h1>{{.Title}}</h1>
  {{range .Lines}}<p>{{.}}</p>
  {{end}}{{if .Details}}<p class="details">{{.Details}}</p>
  {{end}}<p>You can close this window.</p>
</div>
</body>
</html>
`))

type pageData struct {
	Title      string
	Icon       string
	IconColor  template.CSS
	Background template.CSS
	Lines      []string
	Details    string
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTmpl.Execute(w, data)
}

func renderSuccessPage(w http.ResponseWriter) {
	renderPage(w, http.StatusOK, pageData{
		Title:      "Authorization Successful",
		Icon:       "✓",
		IconColor:  "#52c41a",
		Background: "#00c896",
		Lines:      []string{"You are authenticated. Return to the terminal."},
	})
}

func renderErrorPage(w http.ResponseWriter, oauthErr, description string) {
	renderPage(w, http.StatusBadRequest, pageData{
		Title:      "Authorization Failed",
		Icon:       "✕",
		IconColor:  "#ff4d4f",
		Background: "#e74c3c",
		Lines:      []string{"Error: " + oauthErr},
		Details:    description,
	})
}

func renderInvalidPage(w http.ResponseWriter) {
	renderPage(w, http.StatusBadRequest, pageData{
		Title:      "Invalid Callback",
		Icon:       "!",
		IconColor:  "#faad14",
		Background: "#f39c12",
		Lines:      []string{"Missing code or state parameter."},
	})
}

func renderSecurityPage(w http.ResponseWriter) {
	renderPage(w, http.StatusBadRequest, pageData{
		Title:      "Security Error",
		Icon:       "⛨",
		IconColor:  "#ff4d4f",
		Background: "#e74c3c",
		Lines:      []string{"State mismatch - possible CSRF attack."},
	})
}
