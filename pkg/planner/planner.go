// Package planner implements the forest's binary-counter merge scheme
// (spec §4.I), ported directly from original_source/src/planner.rs: the set
// of currently-occupied tree slots is treated as a binary number, an
// incoming batch's row count contributes another binary number, and adding
// them with carry propagation tells the forest which existing trees must be
// read (inputs) and which new slot trees must be written (outputs).
package planner

// Plan is the result of a planning pass: which existing slots must be read
// and merged (Inputs) and which slots the merge result must be written to
// (Outputs), both trimmed of trailing false bits.
type Plan struct {
	Inputs  []bool
	Outputs []bool
}

// New computes a Plan for inserting n new rows given the current occupied
// slots bitmap (trees[i] == true means slot i currently holds a tree).
func New(n uint64, trees []bool) Plan {
	staging := NumToBits(n)
	sum := add(trees, staging)
	inputs := make([]bool, len(sum))
	outputs := make([]bool, len(sum))
	for i := range sum {
		t := false
		if i < len(trees) {
			t = trees[i]
		}
		s := sum[i]
		inputs[i] = t && !s
		outputs[i] = !t && s
	}
	return Plan{Inputs: trim(inputs), Outputs: trim(outputs)}
}

// NumToBits renders n in little-endian binary, the tightest representation
// (no leading false padding).
func NumToBits(n uint64) []bool {
	var bits []bool
	for i := uint64(1); i <= n; i *= 2 {
		bits = append(bits, (n/i)%2 == 1)
	}
	return bits
}

// BitsToNum is the inverse of NumToBits.
func BitsToNum(bits []bool) uint64 {
	var n uint64
	for i, b := range bits {
		if b {
			n += 1 << uint(i)
		}
	}
	return n
}

// add performs bitwise binary-counter addition with carry propagation. The
// result may need one more bit than either input (e.g. 0b111 + 0b1 =
// 0b1000): the final carry, if still set after the last input bit, is
// appended rather than discarded, or a batch that overflows the forest's
// current highest occupied slot would silently lose its destination slot.
func add(a, b []bool) []bool {
	l := len(a)
	if len(b) > l {
		l = len(b)
	}
	out := make([]bool, 0, l+1)
	carry := uint64(0)
	for i := 0; i < l; i++ {
		n := carry
		if i < len(a) && a[i] {
			n++
		}
		if i < len(b) && b[i] {
			n++
		}
		out = append(out, n%2 == 1)
		carry = n / 2
	}
	for carry > 0 {
		out = append(out, carry%2 == 1)
		carry /= 2
	}
	return out
}

func trim(v []bool) []bool {
	i := len(v) - 1
	for i >= 0 && !v[i] {
		i--
	}
	if i < 0 {
		return nil
	}
	return v[:i+1]
}

// RebuildDepth caps how many of the lowest occupied slots a forced optimize
// pass folds into one another, independent of the natural binary-counter
// carry chain (spec §9 supplemented feature, from
// original_source/examples/optimize.rs): depth 0 (or any depth >=
// len(trees)) merges every occupied slot into a single tree written to slot
// 0; depth > 0 merges the bottom `depth` occupied slots (and anything the
// carry chain pulls in above them) into a single output slot.
func RebuildDepth(depth int, trees []bool) Plan {
	if depth <= 0 || depth >= len(trees) {
		allOnes := make([]bool, len(trees))
		for i := range allOnes {
			allOnes[i] = trees[i]
		}
		return Plan{Inputs: trim(allOnes), Outputs: trim([]bool{true})}
	}
	forced := make([]bool, depth)
	for i := range forced {
		forced[i] = true
	}
	merged := make([]bool, len(trees))
	copy(merged, trees)
	for i := 0; i < depth && i < len(merged); i++ {
		merged[i] = false
	}
	plan := New(1<<uint(depth), merged)
	inputs := make([]bool, len(trees))
	for i := 0; i < depth && i < len(trees); i++ {
		inputs[i] = trees[i]
	}
	for i, v := range plan.Inputs {
		if i < len(inputs) {
			inputs[i] = inputs[i] || v
		}
	}
	return Plan{Inputs: trim(inputs), Outputs: plan.Outputs}
}
