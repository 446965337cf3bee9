// Package grounding turns the grounding chunks attached to a generated answer
// into an ordered list of citations.
package grounding

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"evai/internal/logging"
)

// Citation is a single source reference shown next to a plan or chat reply.
type Citation struct {
	URI   string `json:"uri" yaml:"uri"`
	Title string `json:"title" yaml:"title"`
}

// Normalize walks a JSON array of grounding chunks and keeps, per chunk, the
// web reference if it has a uri, otherwise the maps reference if it has one.
// Anything else is dropped. Review snippets under maps references are never
// promoted to citations. Input order is preserved. The result is nil when no
// chunk yields a citation, including when raw is empty or not an array.
func Normalize(raw json.RawMessage) []Citation {
	if len(raw) == 0 {
		return nil
	}
	if !gjson.ValidBytes(raw) {
		logging.GroundingDebug("grounding chunks are not valid JSON (%d bytes), ignoring", len(raw))
		return nil
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		logging.GroundingDebug("grounding chunks are not an array (type %s), ignoring", root.Type)
		return nil
	}

	var citations []Citation
	dropped := 0
	root.ForEach(func(_, chunk gjson.Result) bool {
		if c, ok := fromChunk(chunk); ok {
			citations = append(citations, c)
		} else {
			dropped++
		}
		return true
	})
	if dropped > 0 {
		logging.GroundingDebug("kept %d citations, dropped %d chunks without a usable reference", len(citations), dropped)
	}
	return citations
}

func fromChunk(chunk gjson.Result) (Citation, bool) {
	if !chunk.IsObject() {
		return Citation{}, false
	}
	if c, ok := reference(chunk.Get("web")); ok {
		return c, true
	}
	return reference(chunk.Get("maps"))
}

// reference reads {uri,title} from a web or maps object. Only the top-level
// pair is read.
func reference(ref gjson.Result) (Citation, bool) {
	if !ref.IsObject() {
		return Citation{}, false
	}
	uri := ref.Get("uri")
	if uri.Type != gjson.String || uri.Str == "" {
		return Citation{}, false
	}
	c := Citation{URI: uri.Str}
	if title := ref.Get("title"); title.Type == gjson.String {
		c.Title = title.Str
	}
	return c, true
}
