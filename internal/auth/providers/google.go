package providers

import "golang.org/x/oauth2/google"

func init() {
	register(Info{
		Name:        "google",
		DisplayName: "Google",
		Endpoint:    google.Endpoint,
	})
}
