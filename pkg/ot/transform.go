package ot

// transformInsertInsert rewrites an incoming insert against an already
// applied insert (spec §4.1 "Insert vs Insert").
func transformInsertInsert(in, applied SimpleOp) SimpleOp {
	switch {
	case in.Pos < applied.Pos:
		return in
	case in.Pos > applied.Pos:
		in.Pos += len(applied.Text)
		return in
	default:
		// Tie-break: smaller user_id stays left, larger shifts right.
		if in.UserID < applied.UserID {
			return in
		}
		in.Pos += len(applied.Text)
		return in
	}
}

// transformInsertDelete rewrites an incoming insert against an already
// applied delete (spec §4.1 "Insert vs Delete").
func transformInsertDelete(in, applied SimpleOp) SimpleOp {
	switch {
	case in.Pos <= applied.Pos:
		return in
	case in.Pos >= applied.Pos+applied.Length:
		in.Pos -= applied.Length
		return in
	default:
		// Insert fell inside the deleted range: clamp to the start of it.
		in.Pos = applied.Pos
		return in
	}
}

// transformDeleteInsert rewrites an incoming delete against an already
// applied insert (spec §4.1 "Delete vs Insert").
func transformDeleteInsert(in, applied SimpleOp) SimpleOp {
	switch {
	case in.Pos+in.Length <= applied.Pos:
		return in
	case in.Pos >= applied.Pos:
		in.Pos += len(applied.Text)
		return in
	default:
		// The insert landed inside the delete range: widen the delete to
		// also remove it.
		in.Length += len(applied.Text)
		return in
	}
}

// transformDeleteDelete rewrites an incoming delete against an already
// applied delete (spec §4.1 "Delete vs Delete").
func transformDeleteDelete(in, applied SimpleOp) SimpleOp {
	switch {
	case in.Pos+in.Length <= applied.Pos:
		return in
	case in.Pos >= applied.Pos+applied.Length:
		in.Pos -= applied.Length
		return in
	default:
		overlapStart := max(in.Pos, applied.Pos)
		overlapEnd := min(in.Pos+in.Length, applied.Pos+applied.Length)
		overlapLen := overlapEnd - overlapStart

		in.Length -= overlapLen
		if in.Length < 0 {
			in.Length = 0
		}

		if in.Pos >= applied.Pos {
			shift := in.Pos - applied.Pos
			if shift > applied.Length {
				shift = applied.Length
			}
			in.Pos -= shift
		}
		return in
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Transform rewrites incoming so it is safe to apply to a document that
// has already had every op in missed applied, in applied_version
// ascending order (spec §4.1 "Composite transformation"). missed must
// already be restricted to applied_version > incoming.BaseVersion and
// ordered ascending — callers (the Edit Pipeline) own that filtering.
func Transform(incoming Edit, userID string, missed []AppliedOp) Edit {
	pos := incoming.Position
	insertText := incoming.InsertText
	deleteLen := incoming.DeleteLen

	for _, m := range missed {
		applied := m.asSimpleOp()

		// Transform the delete component first, only if there is one.
		if deleteLen > 0 {
			del := SimpleOp{Kind: KindDelete, Pos: pos, Length: deleteLen, UserID: userID}
			var transformed SimpleOp
			if applied.Kind == KindInsert {
				transformed = transformDeleteInsert(del, applied)
			} else {
				transformed = transformDeleteDelete(del, applied)
			}
			pos = transformed.Pos
			deleteLen = transformed.Length
		}

		// Then transform the insert component, using the updated pos.
		if insertText != "" {
			ins := SimpleOp{Kind: KindInsert, Pos: pos, Text: insertText, UserID: userID}
			var transformed SimpleOp
			if applied.Kind == KindInsert {
				transformed = transformInsertInsert(ins, applied)
			} else {
				transformed = transformInsertDelete(ins, applied)
			}
			pos = transformed.Pos
			insertText = transformed.Text
		}
	}

	return Edit{
		Position:    pos,
		InsertText:  insertText,
		DeleteLen:   deleteLen,
		BaseVersion: incoming.BaseVersion,
	}
}
