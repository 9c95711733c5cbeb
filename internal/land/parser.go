package land

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedState is returned by Parse when a required key is absent or
// has an unexpected type.
var ErrMalformedState = errors.New("land: malformed raw state")

// Parse converts a raw game blob into a ParsedLandState. It is pure and
// total over well-formed input.
func Parse(raw RawState) (ParsedLandState, error) {
	nft, ok := raw["nft"].(map[string]interface{})
	if !ok {
		return ParsedLandState{}, ErrMalformedState
	}
	landNumber, ok := coerceInt(nft["tokenId"])
	if !ok {
		return ParsedLandState{}, ErrMalformedState
	}

	permissions, ok := raw["permissions"].(map[string]interface{})
	if !ok {
		return ParsedLandState{}, ErrMalformedState
	}
	use, ok := permissions["use"].([]interface{})
	if !ok || len(use) == 0 {
		return ParsedLandState{}, ErrMalformedState
	}
	firstUse, _ := use[0].(string)
	isBlocked := firstUse != "ANY"

	entities, ok := raw["entities"].(map[string]interface{})
	if !ok {
		return ParsedLandState{}, ErrMalformedState
	}

	players, _ := raw["players"].([]interface{})

	parsed := ParsedLandState{
		LandNumber:   landNumber,
		IsBlocked:    isBlocked,
		TotalPlayers: len(players),
	}

	for _, v := range entities {
		record, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		entity, _ := record["entity"].(string)
		switch {
		case strings.HasPrefix(entity, "ent_tree"):
			parsed.Trees = append(parsed.Trees, parseTree(record))
		case strings.HasPrefix(entity, "ent_windmill"):
			parsed.Windmills = append(parsed.Windmills, parseIndustry(record))
		case strings.HasPrefix(entity, "ent_winery"):
			parsed.Wineries = append(parsed.Wineries, parseIndustry(record))
		case strings.HasPrefix(entity, "ent_landbbq"):
			parsed.Grills = append(parsed.Grills, parseIndustry(record))
		case strings.HasPrefix(entity, "ent_kiln"):
			parsed.Kilns = append(parsed.Kilns, parseIndustry(record))
		}
	}

	return parsed, nil
}

func parseTree(record map[string]interface{}) Tree {
	generic, _ := record["generic"].(map[string]interface{})
	statics := staticsOf(generic)

	t := Tree{
		Mid:      stringField(record, "mid"),
		Entity:   stringField(record, "entity"),
		Position: positionOf(record),
		State:    stringField(generic, "state"),
	}
	t.UtcRefresh = epochMillis(statics["utcRefresh"])
	t.Chops = int(statics.int("chops"))
	t.LastTimer = epochMillis(statics["lastTimer"])
	t.LastChop = epochMillis(statics["lastChop"])
	return t
}

func parseIndustry(record map[string]interface{}) Industry {
	generic, _ := record["generic"].(map[string]interface{})
	statics := staticsOf(generic)

	i := Industry{
		Mid:         stringField(record, "mid"),
		Entity:      stringField(record, "entity"),
		Position:    positionOf(record),
		State:       stringField(generic, "state"),
		AllowPublic: statics.int("allowPublic") != 0,
	}
	i.InUseBy = statics["inUseBy"]
	i.FinishTime = epochMillis(statics["finishTime"])
	i.FiredUntil = epochMillis(statics["firedUntil"])
	return i
}

func positionOf(record map[string]interface{}) Position {
	pos, ok := record["position"].(map[string]interface{})
	if !ok {
		return Position{}
	}
	x, _ := coerceInt(pos["x"])
	y, _ := coerceInt(pos["y"])
	return Position{X: x, Y: y}
}

// staticsMap is a name→string view of a generic entity's statics sequence,
// built once per entity with explicit default handling for missing names.
type staticsMap map[string]string

func (s staticsMap) int(name string) int64 {
	v, ok := s[name]
	if !ok || v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// staticsOf flattens the `generic.statics` sequence of {name,value} pairs
// into a name→string mapping. Missing or ill-typed entries are skipped;
// callers fall back to the documented defaults.
func staticsOf(generic map[string]interface{}) staticsMap {
	out := staticsMap{}
	if generic == nil {
		return out
	}
	seq, _ := generic["statics"].([]interface{})
	for _, item := range seq {
		pair, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := pair["name"].(string)
		if name == "" {
			continue
		}
		switch v := pair["value"].(type) {
		case string:
			out[name] = v
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return out
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// epochMillis converts a millisecond-epoch static value into a time.Time,
// returning the zero time when the static is absent, empty, or zero.
func epochMillis(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.Unix(ms/1000, 0).UTC()
}

// coerceInt accepts the handful of JSON shapes a token id or coordinate can
// arrive in: a float64 (decoded number), a string (decoded as text), or
// json.Number if the caller decoded with UseNumber.
func coerceInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(parsed), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
