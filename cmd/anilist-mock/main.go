// anilist-mock serves canned GraphQL responses for local development and
// smoke tests: user id lookup, per-format statistics, paginated media pages,
// and cover images, plus switches for 404/429 behaviour.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

type fixture struct {
	PageSize int                    `json:"pageSize"`
	Users    map[string]userFixture `json:"users"`
	Media    []mediaFixture         `json:"media"`
}

type userFixture struct {
	ID    int            `json:"id"`
	Name  string         `json:"name"`
	Anime []scoreFixture `json:"anime"`
	Manga []scoreFixture `json:"manga"`
}

type scoreFixture struct {
	Score    int   `json:"score"`
	MediaIDs []int `json:"mediaIds"`
}

type mediaFixture struct {
	ID           int      `json:"id"`
	AverageScore *int     `json:"averageScore"`
	Popularity   *int     `json:"popularity"`
	TitleRomaji  *string  `json:"titleRomaji"`
	Genres       []string `json:"genres"`
	CoverImage   string   `json:"coverImage"`
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func main() {
	var (
		port      = flag.String("port", "9099", "port to listen on")
		data      = flag.String("data", "mock-anilist.json", "path to mock data file")
		throttled = flag.Bool("throttle", false, "answer every request with 429")
	)
	flag.Parse()

	payload, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var fx fixture
	if err := json.Unmarshal(payload, &fx); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}
	if fx.PageSize <= 0 {
		fx.PageSize = 50
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if *throttled {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch {
		case strings.Contains(req.Query, "User(name:"):
			handleGetID(w, fx, req)
		case strings.Contains(req.Query, "statistics"):
			handleUserStats(w, fx, req)
		case strings.Contains(req.Query, "coverImage"):
			handleCoverImage(w, fx, req)
		default:
			handleMediaPage(w, fx, req)
		}
	})

	addr := ":" + *port
	log.Printf("mock anilist listening on %s (%d users, %d media)", addr, len(fx.Users), len(fx.Media))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func findUser(fx fixture, name string) (userFixture, bool) {
	user, ok := fx.Users[name]
	return user, ok
}

func handleGetID(w http.ResponseWriter, fx fixture, req graphqlRequest) {
	name, _ := req.Variables["name"].(string)
	user, ok := findUser(fx, name)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"data": map[string]any{"User": map[string]any{"id": user.ID}},
	})
}

func handleUserStats(w http.ResponseWriter, fx fixture, req graphqlRequest) {
	id := int(asFloat(req.Variables["id"]))
	var found *userFixture
	for _, user := range fx.Users {
		if user.ID == id {
			u := user
			found = &u
			break
		}
	}
	if found == nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	scores := found.Anime
	key := "anime"
	if strings.Contains(req.Query, "manga") {
		scores = found.Manga
		key = "manga"
	}

	entries := make([]map[string]any, 0, len(scores))
	for _, s := range scores {
		entries = append(entries, map[string]any{"score": s.Score, "mediaIds": s.MediaIDs})
	}

	writeJSON(w, map[string]any{
		"data": map[string]any{
			"Page": map[string]any{
				"users": []map[string]any{{
					"id":   found.ID,
					"name": found.Name,
					"statistics": map[string]any{
						key: map[string]any{"scores": entries},
					},
				}},
			},
		},
	})
}

func handleCoverImage(w http.ResponseWriter, fx fixture, req graphqlRequest) {
	id := int(asFloat(req.Variables["id"]))
	for _, media := range fx.Media {
		if media.ID == id {
			writeJSON(w, map[string]any{
				"data": map[string]any{
					"Media": map[string]any{
						"coverImage": map[string]any{"extraLarge": media.CoverImage},
					},
				},
			})
			return
		}
	}
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

func handleMediaPage(w http.ResponseWriter, fx fixture, req graphqlRequest) {
	page := int(asFloat(req.Variables["page"]))
	if page < 1 {
		page = 1
	}

	wanted := make(map[int]bool)
	if raw, ok := req.Variables["id_in"].([]any); ok {
		for _, v := range raw {
			wanted[int(asFloat(v))] = true
		}
	}

	var matched []mediaFixture
	for _, media := range fx.Media {
		if len(wanted) == 0 || wanted[media.ID] {
			matched = append(matched, media)
		}
	}

	start := (page - 1) * fx.PageSize
	end := start + fx.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	records := make([]map[string]any, 0, end-start)
	for _, media := range matched[start:end] {
		records = append(records, map[string]any{
			"id":           media.ID,
			"averageScore": media.AverageScore,
			"popularity":   media.Popularity,
			"genres":       media.Genres,
			"title":        map[string]any{"romaji": media.TitleRomaji},
		})
	}

	writeJSON(w, map[string]any{
		"data": map[string]any{
			"Page": map[string]any{
				"pageInfo": map[string]any{"hasNextPage": end < len(matched)},
				"media":    records,
			},
		},
	})
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}
