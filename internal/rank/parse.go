// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// versionSuffix matches an arXiv version tag such as "v2".
var versionSuffix = regexp.MustCompile(`v\d+$`)

// preferredListKeys are tried first when the reply is an object wrapping the list.
var preferredListKeys = []string{"rankings", "ranking", "papers", "results", "scores"}

// ParseReply extracts scores from a model reply for window w. The reply is
// expected to be a JSON list of {"paper_id", "score", "justification"}
// objects, or an object containing such a list; Markdown code fences and
// surrounding prose are tolerated. Items that are malformed or name an id
// outside the window are skipped. A reply yielding no scores is a *ParseError.
func ParseReply(text string, w Window) (Result, error) {
	fail := func(err error) (Result, error) {
		return nil, &ParseError{Window: w.Index, Snippet: snippet(text), Err: err}
	}

	items, err := findRankingList(text)
	if err != nil {
		return fail(err)
	}

	known := make(map[string]string, len(w.IDs))
	for _, id := range w.IDs {
		known[canonicalID(id)] = id
	}

	result := make(Result)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rawID, ok := stringField(obj, "paper_id", "id")
		if !ok {
			continue
		}
		score, ok := numberField(obj, "score")
		if !ok {
			continue
		}
		id, ok := known[canonicalID(rawID)]
		if !ok {
			// Keep the raw id so RankAll can record the anomaly.
			id = rawID
		}
		just, _ := stringField(obj, "justification", "reason")
		result[id] = Score{Value: score, Justification: just}
	}

	if len(result) == 0 {
		return fail(errors.New("no well-formed ranking items"))
	}
	return result, nil
}

// findRankingList scans text for the first JSON value that carries a list of
// ranking objects. Each '[' or '{' is tried as a start in turn, so brackets
// in surrounding prose or Markdown fences do not hide the real payload.
func findRankingList(text string) ([]any, error) {
	err := errors.New("no JSON found")
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		var raw any
		if decErr := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); decErr != nil {
			err = decErr
			continue
		}
		list, listErr := rankingList(raw)
		if listErr != nil {
			err = listErr
			continue
		}
		if !hasObject(list) {
			err = errors.New("no well-formed ranking items")
			continue
		}
		return list, nil
	}
	return nil, err
}

func hasObject(list []any) bool {
	for _, v := range list {
		if _, ok := v.(map[string]any); ok {
			return true
		}
	}
	return false
}

// rankingList unwraps the list of ranking items from a decoded reply.
func rankingList(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, k := range preferredListKeys {
			if list, ok := v[k].([]any); ok {
				return list, nil
			}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if list, ok := v[k].([]any); ok {
				return list, nil
			}
		}
		return nil, errors.New("JSON object contains no list")
	default:
		return nil, fmt.Errorf("unexpected JSON type %T", raw)
	}
}

// canonicalID normalizes an arXiv id as a model may echo it back:
// "arXiv:2401.01234v2" becomes "2401.01234".
func canonicalID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 6 && strings.EqualFold(id[:6], "arxiv:") {
		id = id[6:]
	}
	return versionSuffix.ReplaceAllString(id, "")
}

func stringField(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}

func numberField(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func snippet(text string) string {
	const n = 120
	r := []rune(strings.TrimSpace(text))
	if len(r) > n {
		return string(r[:n])
	}
	return string(r)
}
