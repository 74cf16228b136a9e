package instagram

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

type postNode struct {
	Owner struct {
		Username string `json:"username"`
	} `json:"owner"`
	EdgeMediaToCaption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	Caption *struct {
		Text string `json:"text"`
	} `json:"caption"`
	User *struct {
		Username string `json:"username"`
	} `json:"user"`
}

type postMetadata struct {
	Node postNode `json:"node"`
}

// readMetadata returns the author and caption of a downloaded post.
// The JSON sidecar is preferred; the .txt caption file is the fallback.
func readMetadata(dir, shortcode string) (author, caption string) {
	if data, err := os.ReadFile(filepath.Join(dir, shortcode+".json")); err == nil {
		var meta postMetadata
		if json.Unmarshal(data, &meta) == nil {
			author = meta.Node.Owner.Username
			if author == "" && meta.Node.User != nil {
				author = meta.Node.User.Username
			}
			if edges := meta.Node.EdgeMediaToCaption.Edges; len(edges) > 0 {
				caption = edges[0].Node.Text
			} else if meta.Node.Caption != nil {
				caption = meta.Node.Caption.Text
			}
		}
	}
	if caption == "" {
		if data, err := os.ReadFile(filepath.Join(dir, shortcode+".txt")); err == nil {
			caption = strings.TrimSpace(string(data))
		}
	}
	if author == "" {
		author = "unknown"
	}
	return author, caption
}
