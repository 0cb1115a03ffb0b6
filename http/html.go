package http

import (
	"html/template"
	"net/http"
)

// Minimal pages for the browser-navigated confirm/unsubscribe flows.
// The marketing site proper renders everything else.
var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

var unsubscribeFormTmpl = template.Must(template.New("unsubscribe").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Unsubscribe</title></head>
<body>
<h1>Unsubscribe</h1>
<p>Click the button below to stop receiving the newsletter at {{.Email}}.</p>
<form method="POST" action="/unsubscribe">
<input type="hidden" name="email" value="{{.Email}}">
<input type="hidden" name="token" value="{{.Token}}">
<button type="submit">Unsubscribe</button>
</form>
</body>
</html>
`))

func renderPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTmpl.Execute(w, struct {
		Title   string
		Message string
	}{Title: title, Message: message})
}

func renderUnsubscribeForm(w http.ResponseWriter, email, token string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = unsubscribeFormTmpl.Execute(w, struct {
		Email string
		Token string
	}{Email: email, Token: token})
}
