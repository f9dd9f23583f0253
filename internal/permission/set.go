package permission

import "encoding/json"

// Set is an ordered list of permission ids as stored on a role. Order is
// preserved for display; membership checks are linear, the catalog is
// small enough that this never matters.
type Set []Permission

// Contains reports whether the set grants p, either literally or through
// the wildcard. Unrecognized is never granted, so checks against unknown
// permission strings fail closed.
func (s Set) Contains(p Permission) bool {
	if p == Unrecognized {
		return false
	}
	for _, member := range s {
		if member == Wildcard || member == p {
			return true
		}
	}
	return false
}

func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = string(p)
	}
	return out
}

// ParseSet decodes the JSON permission column of a role. Unknown ids are
// preserved as Unrecognized members so they surface in introspection but
// never satisfy a check.
func ParseSet(raw string) (Set, error) {
	if raw == "" {
		return Set{}, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}

	set := make(Set, 0, len(ids))
	for _, id := range ids {
		set = append(set, FromString(id))
	}
	return set, nil
}

// Encode serializes the set for the roles.permissions column.
func (s Set) Encode() (string, error) {
	data, err := json.Marshal(s.Strings())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
