package slots

// PairState is the state of one before/after pair.
type PairState int

const (
	// PairEmpty has neither cell filled.
	PairEmpty PairState = iota
	// PairOpen holds a before image waiting for its after image.
	PairOpen
	// PairComplete holds a before image and an after image.
	PairComplete
	// PairOrphan has an occupied after cell and an empty before cell.
	PairOrphan
	// PairMismatched holds an image whose role does not match its cell,
	// typically the result of a swap.
	PairMismatched
)

func (s PairState) String() string {
	switch s {
	case PairEmpty:
		return "empty"
	case PairOpen:
		return "open"
	case PairComplete:
		return "complete"
	case PairOrphan:
		return "orphan"
	case PairMismatched:
		return "mismatched"
	default:
		return "unknown"
	}
}

type pair struct {
	before *Image
	after  *Image
}

func (p pair) state() PairState {
	switch {
	case p.before == nil && p.after == nil:
		return PairEmpty
	case p.before == nil:
		if p.after.Role != RoleAfter {
			return PairMismatched
		}
		return PairOrphan
	case p.before.Role != RoleBefore:
		return PairMismatched
	case p.after == nil:
		return PairOpen
	case p.after.Role != RoleAfter:
		return PairMismatched
	default:
		return PairComplete
	}
}

// accepting reports whether an after image may be placed in this pair.
func (p pair) accepting() bool {
	return p.after == nil && p.before != nil && p.before.Role == RoleBefore
}

// Allocator holds the ordered slot sequence. The flat view puts pair p at
// positions 2p (before) and 2p+1 (after), and upload k at 2*len(pairs)+k.
//
// Allocator is not safe for concurrent use.
type Allocator struct {
	pairs   []pair
	uploads []*Image
}

// New returns an empty allocator.
func New() *Allocator {
	return &Allocator{}
}

// Restore rebuilds an allocator from a flat sequence whose first 2*pairCount
// positions form the pair region.
func Restore(flat []*Image, pairCount int) *Allocator {
	a := New()
	if pairCount < 0 {
		pairCount = 0
	}
	a.pairs = make([]pair, pairCount)
	for i, img := range flat {
		a.set(i, img)
	}
	a.trim()
	return a
}

// InsertBefore places each image in the first pair whose before cell is
// empty, opening a new pair when none is.
func (a *Allocator) InsertBefore(imgs ...*Image) {
	for _, img := range imgs {
		if img == nil {
			continue
		}
		placed := false
		for i := range a.pairs {
			if a.pairs[i].before == nil {
				a.pairs[i].before = img
				placed = true
				break
			}
		}
		if !placed {
			a.pairs = append(a.pairs, pair{before: img})
		}
	}
	a.trim()
}

// InsertAfter places each image next to the first before image that is
// still waiting for its after image. Images with nowhere to go are not
// inserted and are counted in the returned Rejection.
func (a *Allocator) InsertAfter(imgs ...*Image) Rejection {
	var rej Rejection
	for _, img := range imgs {
		if img == nil {
			continue
		}
		placed := false
		for i := range a.pairs {
			if a.pairs[i].accepting() {
				a.pairs[i].after = img
				placed = true
				break
			}
		}
		if !placed {
			rej.Count++
		}
	}
	a.trim()
	return rej
}

// AppendUpload appends images after everything else.
func (a *Allocator) AppendUpload(imgs ...*Image) {
	for _, img := range imgs {
		if img != nil {
			a.uploads = append(a.uploads, img)
		}
	}
	a.trim()
}

// Insert dispatches to the insert operation of the given role.
func (a *Allocator) Insert(role Role, imgs ...*Image) Rejection {
	switch role {
	case RoleBefore:
		a.InsertBefore(imgs...)
	case RoleAfter:
		return a.InsertAfter(imgs...)
	default:
		a.AppendUpload(imgs...)
	}
	return Rejection{}
}

// Swap exchanges the contents of positions i and j. Positions past the end
// extend the sequence with empty slots. Roles are not checked.
func (a *Allocator) Swap(i, j int) {
	if i < 0 || j < 0 || i == j {
		return
	}
	a.grow(max(i, j) + 1)
	vi, vj := a.At(i), a.At(j)
	a.set(i, vj)
	a.set(j, vi)
	a.trim()
}

// Replace overwrites position i. The caption of the previous image is kept
// when the incoming image has none, and an image replacing an existing one
// takes over its role. Into an empty slot the image keeps its own role,
// defaulting to upload.
func (a *Allocator) Replace(i int, img *Image) {
	if i < 0 || img == nil {
		return
	}
	a.grow(i + 1)
	if prev := a.At(i); prev != nil {
		if img.Caption == "" {
			img.Caption = prev.Caption
		}
		img.Role = prev.Role
	} else if img.Role == "" {
		img.Role = RoleUpload
	}
	a.set(i, img)
	a.trim()
}

// Delete empties position i and trims the trailing empty slots.
// Surviving images keep their order.
func (a *Allocator) Delete(i int) {
	if i < 0 || i >= a.Len() {
		return
	}
	a.set(i, nil)
	a.trim()
}

// SetCaption sets the caption of the image with the given ID.
func (a *Allocator) SetCaption(id, text string) bool {
	if img, _ := a.Find(id); img != nil {
		img.Caption = text
		return true
	}
	return false
}

// Find returns the image with the given ID and its position, or nil and -1.
func (a *Allocator) Find(id string) (*Image, int) {
	for i, img := range a.Slots() {
		if img != nil && img.ID == id {
			return img, i
		}
	}
	return nil, -1
}

// At returns the image at position i, nil for empty or out-of-range slots.
func (a *Allocator) At(i int) *Image {
	if i < 0 {
		return nil
	}
	pairCells := 2 * len(a.pairs)
	if i < pairCells {
		p := a.pairs[i/2]
		if i%2 == 0 {
			return p.before
		}
		return p.after
	}
	k := i - pairCells
	if k < len(a.uploads) {
		return a.uploads[k]
	}
	return nil
}

// Len returns the length of the flat sequence after trimming.
func (a *Allocator) Len() int {
	n := 2*len(a.pairs) + len(a.uploads)
	for n > 0 && a.At(n-1) == nil {
		n--
	}
	return n
}

// Slots returns the flat sequence. It never ends with an empty slot.
func (a *Allocator) Slots() []*Image {
	n := a.Len()
	out := make([]*Image, n)
	for i := range n {
		out[i] = a.At(i)
	}
	return out
}

// Images returns the non-empty slots in order.
func (a *Allocator) Images() []*Image {
	var out []*Image
	for _, img := range a.Slots() {
		if img != nil {
			out = append(out, img)
		}
	}
	return out
}

// PairCount returns the number of pairs in the pair region.
func (a *Allocator) PairCount() int {
	return len(a.pairs)
}

// PairStates returns the state of every pair in order.
func (a *Allocator) PairStates() []PairState {
	states := make([]PairState, len(a.pairs))
	for i, p := range a.pairs {
		states[i] = p.state()
	}
	return states
}

// Counts tallies images per role.
type Counts struct {
	Before int `json:"before"`
	After  int `json:"after"`
	Upload int `json:"upload"`
}

// Total returns the number of images.
func (c Counts) Total() int {
	return c.Before + c.After + c.Upload
}

// Counts returns the number of images per role.
func (a *Allocator) Counts() Counts {
	var c Counts
	for _, img := range a.Images() {
		switch img.Role {
		case RoleBefore:
			c.Before++
		case RoleAfter:
			c.After++
		default:
			c.Upload++
		}
	}
	return c
}

// Clone returns a copy of the sequence sharing the image values.
func (a *Allocator) Clone() *Allocator {
	c := &Allocator{
		pairs:   make([]pair, len(a.pairs)),
		uploads: make([]*Image, len(a.uploads)),
	}
	copy(c.pairs, a.pairs)
	copy(c.uploads, a.uploads)
	return c
}

// grow makes position n-1 addressable. New positions land in the upload region.
func (a *Allocator) grow(n int) {
	for 2*len(a.pairs)+len(a.uploads) < n {
		a.uploads = append(a.uploads, nil)
	}
}

func (a *Allocator) set(i int, img *Image) {
	a.grow(i + 1)
	pairCells := 2 * len(a.pairs)
	if i < pairCells {
		if i%2 == 0 {
			a.pairs[i/2].before = img
		} else {
			a.pairs[i/2].after = img
		}
		return
	}
	a.uploads[i-pairCells] = img
}

// trim drops empty slots at the end of the sequence. Empty pairs are only
// dropped when nothing follows them, so upload positions never move.
func (a *Allocator) trim() {
	for len(a.uploads) > 0 && a.uploads[len(a.uploads)-1] == nil {
		a.uploads = a.uploads[:len(a.uploads)-1]
	}
	if len(a.uploads) > 0 {
		return
	}
	for len(a.pairs) > 0 && a.pairs[len(a.pairs)-1].state() == PairEmpty {
		a.pairs = a.pairs[:len(a.pairs)-1]
	}
}
