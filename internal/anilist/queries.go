package anilist

import (
	"embed"
	"fmt"

	"github.com/aniscope/aniscope/internal/domain"
)

//go:embed queries/*.gql
var queryFS embed.FS

// Well-known template names. Variables are never interpolated into the query
// text; they travel as a separate JSON object in the request body.
const (
	QueryGetID = "get_id.gql"
	QueryMedia = "media.gql"
	QueryImage = "image.gql"
)

// UserQuery returns the statistics template name for the given format.
func UserQuery(format domain.Format) string {
	return format.String() + "_user.gql"
}

// LoadQuery resolves a template name to its query text.
func LoadQuery(name string) (string, error) {
	payload, err := queryFS.ReadFile("queries/" + name)
	if err != nil {
		return "", fmt.Errorf("load query %s: %w", name, err)
	}
	return string(payload), nil
}
