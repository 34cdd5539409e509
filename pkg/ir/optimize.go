package ir

import "slices"

// NormalizeJumps points every jump at its final destination, skipping labels
// and chains of gotos, then drops gotos that jump to the next statement.
func NormalizeJumps(b *Body) {
	index := make(map[Stmt]int, len(b.Stmts))
	for i, s := range b.Stmts {
		index[s] = i
	}
	resolve := func(t Stmt) Stmt {
		seen := make(map[Stmt]bool)
		for !seen[t] {
			seen[t] = true
			switch j := t.(type) {
			case *GotoStmt:
				t = j.Target
			case *NopStmt:
				i, ok := index[t]
				if !ok || i+1 >= len(b.Stmts) {
					return t
				}
				t = b.Stmts[i+1]
			default:
				return t
			}
		}
		return t
	}
	for _, s := range b.Stmts {
		if t := target(s); t != nil {
			setTarget(s, resolve(t))
		}
	}

	for i := 0; i < len(b.Stmts)-1; {
		g, ok := b.Stmts[i].(*GotoStmt)
		if !ok || g.Target != b.Stmts[i+1] {
			i++
			continue
		}
		retarget(b.Stmts, g, b.Stmts[i+1])
		b.Stmts = slices.Delete(b.Stmts, i, i+1)
		// the statement before may now jump to its successor too
		if i > 0 {
			i--
		}
	}
}

// EliminateNops removes labels, moving jumps that targeted them to the next
// real statement. A targeted label at the very end is kept.
func EliminateNops(b *Body) {
	targeted := make(map[Stmt]bool)
	for _, s := range b.Stmts {
		if t := target(s); t != nil {
			targeted[t] = true
		}
	}

	next := make(map[Stmt]Stmt)
	kept := make([]Stmt, 0, len(b.Stmts))
	var pending []Stmt
	for _, s := range b.Stmts {
		if _, ok := s.(*NopStmt); ok {
			pending = append(pending, s)
			continue
		}
		for _, p := range pending {
			next[p] = s
		}
		pending = pending[:0]
		kept = append(kept, s)
	}

	var tail Stmt
	for _, p := range pending {
		if !targeted[p] {
			continue
		}
		if tail == nil {
			tail = p
			kept = append(kept, p)
		}
		next[p] = tail
	}

	for _, s := range kept {
		if n, ok := next[target(s)]; ok {
			setTarget(s, n)
		}
	}
	b.Stmts = kept
}

func retarget(stmts []Stmt, from, to Stmt) {
	for _, s := range stmts {
		if target(s) == from {
			setTarget(s, to)
		}
	}
}

// Finish runs the footer every synthesized body ends with: jump
// normalization, label elimination and validation.
func Finish(b *Body) error {
	NormalizeJumps(b)
	EliminateNops(b)
	return b.Validate()
}
