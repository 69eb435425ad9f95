package genome

import "fmt"

// Samples is an ordered list of sample identifiers (indices into a
// nametable.Table) with a per-sample diploid flag. Study samples are always
// diploid in this system (phased, unphased study samples are a non-goal),
// but the flag is retained because reference samples and study samples
// share this type.
type Samples struct {
	Names   []int
	Diploid []bool
}

// NewSamples validates that Names and Diploid are the same length.
func NewSamples(names []int, diploid []bool) (*Samples, error) {
	if len(names) != len(diploid) {
		return nil, fmt.Errorf("names/diploid length mismatch: %d vs %d", len(names), len(diploid))
	}
	return &Samples{Names: names, Diploid: diploid}, nil
}

// Len returns the number of samples.
func (s *Samples) Len() int { return len(s.Names) }

// NHaps returns the total number of haplotypes across all samples (2 per
// diploid sample).
func (s *Samples) NHaps() int {
	n := 0
	for _, d := range s.Diploid {
		if d {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// Panels describes the reference panel structure: which panel each
// reference haplotype belongs to, and panel labels.
type Panels struct {
	Labels        []int // dense panel index -> nametable index, len == P
	RefHapToPanel []int // len == 2*Nref (or Nref for haploid refs)
}

// NewPanels validates panel indices are dense [0,P) and that every
// reference haplotype maps to exactly one panel (trivially true of a
// []int, but out-of-range values are rejected).
func NewPanels(labels []int, refHapToPanel []int) (*Panels, error) {
	p := len(labels)
	for h, panel := range refHapToPanel {
		if panel < 0 || panel >= p {
			return nil, fmt.Errorf("reference haplotype %d has out-of-range panel %d (P=%d)", h, panel, p)
		}
	}
	return &Panels{Labels: labels, RefHapToPanel: refHapToPanel}, nil
}

// NPanels returns P.
func (p *Panels) NPanels() int { return len(p.Labels) }

// NRefHaps returns the total number of reference haplotypes.
func (p *Panels) NRefHaps() int { return len(p.RefHapToPanel) }

// NPanelHaps returns, for each panel, the number of reference haplotypes
// assigned to it.
func (p *Panels) NPanelHaps() []int {
	counts := make([]int, p.NPanels())
	for _, panel := range p.RefHapToPanel {
		counts[panel]++
	}
	return counts
}

// AncestrySet is the dense [0,A) ancestry index set together with the
// panels eligible to represent each ancestry.
type AncestrySet struct {
	Labels      []int   // dense ancestry index -> nametable index, len == A
	AncToPanels [][]int // AncToPanels[a] is a nonempty sorted set of panel indices
}

// NewAncestrySet validates A>=2 and that every ancToPanels entry is
// nonempty and sorted.
func NewAncestrySet(labels []int, ancToPanels [][]int) (*AncestrySet, error) {
	if len(labels) < 2 {
		return nil, fmt.Errorf("ancestry set must have at least 2 ancestries, got %d", len(labels))
	}
	if len(ancToPanels) != len(labels) {
		return nil, fmt.Errorf("ancToPanels length %d does not match A=%d", len(ancToPanels), len(labels))
	}
	for a, panels := range ancToPanels {
		if len(panels) == 0 {
			return nil, fmt.Errorf("ancestry %d has no eligible panels", a)
		}
		for i := 1; i < len(panels); i++ {
			if panels[i] <= panels[i-1] {
				return nil, fmt.Errorf("ancestry %d panel list not sorted/unique", a)
			}
		}
	}
	return &AncestrySet{Labels: labels, AncToPanels: ancToPanels}, nil
}

// NAncestries returns A.
func (as *AncestrySet) NAncestries() int { return len(as.Labels) }

// IdentityAncestrySet builds the default A=P, identity-map ancestry set
// from a Panels structure.
func IdentityAncestrySet(panels *Panels) *AncestrySet {
	p := panels.NPanels()
	ancToPanels := make([][]int, p)
	for a := range ancToPanels {
		ancToPanels[a] = []int{a}
	}
	return &AncestrySet{Labels: append([]int(nil), panels.Labels...), AncToPanels: ancToPanels}
}
