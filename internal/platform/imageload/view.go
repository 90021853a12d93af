package imageload

import "github.com/a-h/templ"

// UnavailableText is shown once retries are exhausted.
const UnavailableText = "Image unavailable"

// View renders the current visual state of l.
func View(l *Loader) templ.Component {
	return StateView(l.Request(), l.State())
}

func imageSrc(req Request, state State) string {
	return string(templ.URL(AttemptLocator(req.Locator, state.Attempt)))
}
