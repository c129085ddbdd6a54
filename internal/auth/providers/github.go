package providers

import "golang.org/x/oauth2/github"

func init() {
	register(Info{
		Name:        "github",
		DisplayName: "GitHub",
		Endpoint:    github.Endpoint,
	})
}
