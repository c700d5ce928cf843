/*
DESCRIPTION
  gop.go provides the group of pictures planner: the per-position slice
  type and pyramid level table precomputed from the configuration, and
  the derived frame number and picture order count moduli.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package encoder

import (
	"math/bits"

	"github.com/ausocean/vkvideo/encoder/config"
)

// GopEntry is the planned role of one position within a group of
// pictures. The reference POC offsets are meaningful for B positions
// only.
type GopEntry struct {
	SliceType       SliceType
	IsReference     bool
	PyramidLevel    int
	LeftRefPocDiff  int32
	RightRefPocDiff int32
}

// gopPlan is the precomputed group structure and its derived moduli.
type gopPlan struct {
	entries []GopEntry

	idrPeriod           uint32
	ipPeriod            uint32
	numBFrames          uint32
	bPyramid            bool
	highestPyramidLevel int
	numIFrames          uint32
	iPeriod             uint32
	intraOnly           bool

	numRefFrames uint32
	refNumList0  uint32
	refNumList1  uint32

	log2MaxFrameNum    uint32
	maxFrameNum        uint32
	log2MaxPicOrderCnt uint32
	maxPicOrderCnt     uint32
}

// planGOP computes the group table from the configuration and the
// driver's reference list capability.
func planGOP(c *config.Config, maxRefsL0, maxRefsL1 uint32) *gopPlan {
	p := &gopPlan{}

	idr := uint32(c.IdrPeriod)
	if idr == 0 {
		// Roughly one IDR per second.
		idr = (uint32(c.FrameRateNum) + uint32(c.FrameRateDen) - 1) / uint32(c.FrameRateDen)
	}
	if idr > config.MaxIdrPeriod {
		idr = config.MaxIdrPeriod
	}
	if idr == 0 {
		idr = 1
	}
	p.idrPeriod = idr

	nb := uint32(c.NumBFrames)
	switch {
	case idr > 8:
		if nb > (idr-1)/2 {
			nb = (idr - 1) / 2
		}
	case idr >= 2:
		if nb > idr-2 {
			nb = idr - 2
		}
	default:
		nb = 0
	}
	bpyr := c.BPyramid
	numI := uint32(c.NumIFrames)
	refs := uint32(c.RefFrames)

	l0 := uint32(c.RefNumList0)
	if l0 == 0 || l0 > maxRefsL0 {
		l0 = maxRefsL0
	}
	l1 := uint32(c.RefNumList1)
	if l1 == 0 || l1 > maxRefsL1 {
		l1 = maxRefsL1
	}

	if maxRefsL0 == 0 || refs == 0 {
		p.intraOnly = true
		nb = 0
		bpyr = false
		numI = idr - 1
		refs = 0
		l0, l1 = 0, 0
	}
	if refs <= 1 {
		nb = 0
		l1 = 0
	}
	if refs <= 2 {
		bpyr = false
	}
	if l1 == 0 {
		nb = 0
		bpyr = false
	}
	if nb == 0 {
		bpyr = false
	}
	// Only one future anchor is ever available in the scheduling
	// window, so a deeper backward list could never fill.
	if nb > 0 && l1 > 1 {
		l1 = 1
	}

	p.numBFrames = nb
	p.bPyramid = bpyr
	p.numIFrames = numI
	p.numRefFrames = refs
	p.refNumList0 = l0
	p.refNumList1 = l1
	if bpyr {
		p.highestPyramidLevel = bits.Len32(nb) - 1
	}

	if !p.intraOnly {
		p.ipPeriod = 1 + nb
		gopRefNum := (idr + nb) / (nb + 1)
		if (idr+nb)%(nb+1) != 0 {
			gopRefNum++
		}
		if (idr-1)%p.ipPeriod != 0 {
			// The group does not end on a P slot; the forced final P
			// adds a reference.
			gopRefNum++
		}
		if numI > 0 {
			p.iPeriod = gopRefNum / (numI + 1) * p.ipPeriod
		}
	}

	log2 := uint32(bits.Len32(idr - 1))
	if idr == 1 {
		log2 = 0
	}
	if log2 < 4 {
		log2 = 4
	}
	if log2 > 16 {
		log2 = 16
	}
	p.log2MaxFrameNum = log2
	p.maxFrameNum = 1 << log2
	p.log2MaxPicOrderCnt = log2 + 1
	p.maxPicOrderCnt = 1 << (log2 + 1)

	p.fillEntries()
	return p
}

// fillEntries builds the per-position table. Anchor slots land on
// multiples of the IP period with the group always terminated by an
// anchor; the B runs between consecutive anchors are levelled against
// their actual enclosing anchors, so a run truncated by the final
// anchor gets offsets that point inside the group.
func (p *gopPlan) fillEntries() {
	p.entries = make([]GopEntry, p.idrPeriod)
	p.entries[0] = GopEntry{SliceType: SliceI, IsReference: true}

	if p.intraOnly {
		for i := uint32(1); i < p.idrPeriod; i++ {
			p.entries[i] = GopEntry{SliceType: SliceI}
		}
		return
	}

	anchors := []uint32{0}
	for i := p.ipPeriod; i < p.idrPeriod; i += p.ipPeriod {
		anchors = append(anchors, i)
	}
	if last := anchors[len(anchors)-1]; p.idrPeriod > 1 && last != p.idrPeriod-1 {
		anchors = append(anchors, p.idrPeriod-1)
	}

	iLeft := p.numIFrames
	for _, a := range anchors[1:] {
		if a != p.idrPeriod-1 && p.iPeriod > 0 && a%p.iPeriod == 0 && iLeft > 0 {
			p.entries[a] = GopEntry{SliceType: SliceI, IsReference: true}
			iLeft--
			continue
		}
		p.entries[a] = GopEntry{SliceType: SliceP, IsReference: true}
	}

	for i := 1; i < len(anchors); i++ {
		p.fillRun(int(anchors[i-1])+1, int(anchors[i])-1)
	}
}

// fillRun levels the B positions lo..hi between two anchors.
func (p *gopPlan) fillRun(lo, hi int) {
	if lo > hi {
		return
	}
	if !p.bPyramid {
		n := hi - lo + 1
		for k := 0; k < n; k++ {
			p.entries[lo+k] = GopEntry{
				SliceType:       SliceB,
				LeftRefPocDiff:  int32(-2 * (k + 1)),
				RightRefPocDiff: int32(2 * (n - k)),
			}
		}
		return
	}
	p.fillPyramid(lo, hi, 0)
}

// fillPyramid recursively levels a B span: the middle of each span
// takes the shallowest remaining level and its halves recurse one
// level deeper, with leaves sharing the deepest level. Reference POC
// offsets point at the span's enclosing anchors.
func (p *gopPlan) fillPyramid(lo, hi, level int) {
	if lo > hi {
		return
	}
	lvl := level
	if lvl > p.highestPyramidLevel {
		lvl = p.highestPyramidLevel
	}
	mid := (lo + hi + 1) / 2
	p.entries[mid] = GopEntry{
		SliceType:       SliceB,
		IsReference:     lvl < p.highestPyramidLevel,
		PyramidLevel:    lvl,
		LeftRefPocDiff:  int32(-2 * (mid - lo + 1)),
		RightRefPocDiff: int32(2 * (hi - mid + 1)),
	}
	p.fillPyramid(lo, mid-1, level+1)
	p.fillPyramid(mid+1, hi, level+1)
}
