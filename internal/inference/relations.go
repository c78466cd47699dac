package inference

// InferRelations finds cross-table column pairs that plausibly form a
// foreign-key relationship. The only join-key discovery heuristic is an
// exact, case-sensitive column-name match; no value containment is
// checked, which trades recall for simplicity and misses renamed keys.
//
// Edges are normalized to point from the referencing (non-unique) side to
// the referenced (strict-unique) side:
//
//   - both sides strict-unique: 1:1, oriented toward the stronger key
//     (identity-like beats primary-key candidate beats plain unique)
//   - exactly one side strict-unique: m:1 from the non-unique side
//   - neither side unique: m:1 from the first column encountered, marked
//     Weak — no key side could be established
//
// Output order is deterministic for a fixed input order: table pairs in
// input order, columns of the first table then the second in their given
// order. The result is always a complete replacement, never a patch.
func InferRelations(tables []TableProfile) []RelationEdge {
	edges := []RelationEdge{}

	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			a, b := tables[i], tables[j]

			byName := make(map[string]ColumnProfile, len(b.Columns))
			for _, col := range b.Columns {
				byName[col.Name] = col
			}

			// One edge per matching column pair; a table pair can carry
			// several independent relations.
			for _, ca := range a.Columns {
				cb, ok := byName[ca.Name]
				if !ok {
					continue
				}
				edges = append(edges, classify(a.ID, ca, b.ID, cb))
			}
		}
	}

	return edges
}

func classify(aID string, a ColumnProfile, bID string, b ColumnProfile) RelationEdge {
	switch {
	case a.IsStrictUnique && b.IsStrictUnique:
		if keyStrength(a) > keyStrength(b) {
			return RelationEdge{
				FromTableID: bID, FromField: b.Name,
				ToTableID: aID, ToField: a.Name,
				Cardinality: OneToOne,
			}
		}
		return RelationEdge{
			FromTableID: aID, FromField: a.Name,
			ToTableID: bID, ToField: b.Name,
			Cardinality: OneToOne,
		}

	case b.IsStrictUnique:
		return RelationEdge{
			FromTableID: aID, FromField: a.Name,
			ToTableID: bID, ToField: b.Name,
			Cardinality: ManyToOne,
		}

	case a.IsStrictUnique:
		return RelationEdge{
			FromTableID: bID, FromField: b.Name,
			ToTableID: aID, ToField: a.Name,
			Cardinality: ManyToOne,
		}

	default:
		// Best-effort fallback: no key side exists, keep encounter order.
		return RelationEdge{
			FromTableID: aID, FromField: a.Name,
			ToTableID: bID, ToField: b.Name,
			Cardinality: ManyToOne,
			Weak:        true,
		}
	}
}

// keyStrength ranks how convincingly a strict-unique column acts as a key,
// used only to orient 1:1 edges toward the likelier referenced side.
func keyStrength(p ColumnProfile) int {
	s := 0
	if p.IsIdentityLike {
		s += 2
	}
	if p.IsPrimaryKeyCandidate {
		s++
	}
	return s
}
