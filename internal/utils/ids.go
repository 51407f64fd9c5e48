package utils

import "github.com/google/uuid"

// ContainsID reports whether id is present in ids.
func ContainsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AppendUniqueIDs appends each id not already present, preserving order.
func AppendUniqueIDs(ids []uuid.UUID, add ...uuid.UUID) []uuid.UUID {
	for _, id := range add {
		if !ContainsID(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// RemoveIDs returns ids without any of the given values. The result is never nil.
func RemoveIDs(ids []uuid.UUID, remove ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !ContainsID(remove, id) {
			out = append(out, id)
		}
	}
	return out
}

// UniqueIDs removes duplicates and uuid.Nil, preserving first occurrence order.
func UniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IntersectIDs keeps the ids of a that also appear in b, in a's order.
func IntersectIDs(a, b []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(a))
	for _, id := range UniqueIDs(a) {
		if ContainsID(b, id) {
			out = append(out, id)
		}
	}
	return out
}
